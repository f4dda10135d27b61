package domainutil

import "testing"

func TestExtractDomain(t *testing.T) {
	cases := map[string]string{
		"http://www.example.com/path":  "example.com",
		"http://example.co.uk/x":       "example.co.uk",
		"https://A.B.EXAMPLE.COM/":     "example.com",
		"http://127.0.0.1:8080/":       "127.0.0.1",
		"http://[::1]/":                "::1",
		"http://localhost:9000/":       "localhost",
		"http://sub.sub.example.org/":  "example.org",
	}

	for input, want := range cases {
		got, err := ExtractDomain(input)
		if err != nil {
			t.Fatalf("ExtractDomain(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ExtractDomain(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSameDomainSharesFate(t *testing.T) {
	a, _ := ExtractDomain("http://a.example.com/1")
	b, _ := ExtractDomain("http://b.example.com/2")
	if a != b {
		t.Fatalf("expected same registrable domain, got %q and %q", a, b)
	}
}
