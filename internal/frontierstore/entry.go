package frontierstore

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldDelimiter separates the fields of a serialized frontier entry.
// The URL field may itself contain it (normalization leaves a query
// string as it is), so ParseEntry takes the last three fields as
// depth, priority and timestamp and everything before them as the URL.
const fieldDelimiter = "|"

// Entry is the (url, depth, priority, added_timestamp) tuple stored
// one per line in a domain's frontier file (§3, §6 file format).
type Entry struct {
	URL            string
	Depth          int
	Priority       float64
	AddedTimestamp int64
}

// Serialize renders an Entry as one frontier-file line (no trailing
// newline; callers append "\n" when writing).
func (e Entry) Serialize() string {
	return strings.Join([]string{
		e.URL,
		strconv.Itoa(e.Depth),
		strconv.FormatFloat(e.Priority, 'f', -1, 64),
		strconv.FormatInt(e.AddedTimestamp, 10),
	}, fieldDelimiter)
}

// ParseEntry parses a single frontier-file line back into an Entry.
func ParseEntry(line string) (Entry, error) {
	parts := strings.Split(line, fieldDelimiter)
	if len(parts) < 4 {
		return Entry{}, fmt.Errorf("frontierstore: malformed entry line %q", line)
	}
	n := len(parts)

	depth, err := strconv.Atoi(parts[n-3])
	if err != nil {
		return Entry{}, fmt.Errorf("frontierstore: bad depth in %q: %w", line, err)
	}
	priority, err := strconv.ParseFloat(parts[n-2], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("frontierstore: bad priority in %q: %w", line, err)
	}
	ts, err := strconv.ParseInt(parts[n-1], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("frontierstore: bad timestamp in %q: %w", line, err)
	}

	return Entry{
		URL:            strings.Join(parts[:n-3], fieldDelimiter),
		Depth:          depth,
		Priority:       priority,
		AddedTimestamp: ts,
	}, nil
}
