package metrics

import (
	"fmt"
	"time"
)

// timestampLayouts are the accepted ISO-8601 variants, tried in order.
// Offset-less layouts are interpreted as UTC. time.Parse accepts a
// fractional second after the seconds element of any layout, so no
// separate fractional variants are listed.
var timestampLayouts = []string{
	time.RFC3339,          // 2024-01-01T10:00:00Z / +00:00 / +02:00
	"2006-01-02T15:04:05", // no zone suffix
	"2006-01-02 15:04:05", // space separator
	"2006-01-02",          // date only
}

// Normalize parses a heterogeneous timestamp representation into a
// canonical instant and its canonical storage key.
//
// Accepted inputs:
//   - time.Time: used directly (zero value is rejected)
//   - string: extended ISO-8601, with or without a UTC offset/zone suffix
//
// Two inputs denoting the same instant always normalize to the same key
// ("...+00:00" and "...Z" collide), which is what makes store keys unique
// per real-world instant.
//
// Parameters:
//   - input: The timestamp in any supported representation
//
// Returns:
//   - time.Time: The canonical instant (UTC)
//   - string: The canonical key
//   - error: ErrInvalidTimestamp (wrapped) if the input is absent or unparsable
func Normalize(input any) (time.Time, string, error) {
	switch v := input.(type) {
	case nil:
		return time.Time{}, "", fmt.Errorf("%w: no timestamp provided", ErrInvalidTimestamp)
	case time.Time:
		if v.IsZero() {
			return time.Time{}, "", fmt.Errorf("%w: zero time", ErrInvalidTimestamp)
		}
		t := v.UTC()
		return t, CanonicalKey(t), nil
	case string:
		t, err := ParseTimestamp(v)
		if err != nil {
			return time.Time{}, "", err
		}
		return t, CanonicalKey(t), nil
	default:
		return time.Time{}, "", fmt.Errorf("%w: unsupported type %T", ErrInvalidTimestamp, input)
	}
}

// ParseTimestamp parses an ISO-8601 timestamp string into a UTC instant.
//
// Returns ErrInvalidTimestamp (wrapped) when no supported variant matches.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidTimestamp)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// CanonicalKey serializes an instant as its canonical storage key: RFC 3339
// in UTC, truncated to whole seconds. Fixed-width components make the keys
// sort lexicographically in chronological order; sub-second inputs collide
// on the containing second, last write wins.
func CanonicalKey(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
