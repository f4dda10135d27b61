package frontierstore

import "testing"

func TestEntryRoundTrip(t *testing.T) {
	e := Entry{URL: "http://example.com/a", Depth: 2, Priority: 0.5, AddedTimestamp: 1700000000}
	line := e.Serialize()

	got, err := ParseEntry(line)
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestParseEntryRejectsMalformed(t *testing.T) {
	bad := []string{"", "only-one-field", "a|b|c", "a|notanint|0.5|1700000000"}
	for _, line := range bad {
		if _, err := ParseEntry(line); err == nil {
			t.Fatalf("ParseEntry(%q) expected error", line)
		}
	}
}
