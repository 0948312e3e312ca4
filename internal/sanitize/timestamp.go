package sanitize

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTimestamp is returned when an input cannot be resolved to a
// finite, valid calendar instant.
var ErrInvalidTimestamp = errors.New("value does not resolve to a valid instant")

// SecondsNanos is the split-epoch timestamp shape some upstream stores emit.
// Nanos is carried for completeness but normalization keeps millisecond
// precision from Seconds only.
type SecondsNanos struct {
	Seconds int64 `json:"seconds"`
	Nanos   int64 `json:"nanoseconds"`
}

// InstantSource is implemented by provider-style timestamp objects that can
// convert themselves to a native instant.
type InstantSource interface {
	ToTime() time.Time
}

// stringLayouts are tried in order when normalizing a textual timestamp.
var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Timestamp normalizes any supported timestamp representation to a native
// instant. Supported variants, in priority order: a native time.Time, a
// parseable date string, a provider timestamp object implementing
// InstantSource, a raw Unix-epoch value in milliseconds, and a
// SecondsNanos pair (seconds * 1000 ms, nanoseconds ignored). Anything
// else fails with ErrInvalidTimestamp.
func Timestamp(input any) (time.Time, error) {
	switch v := input.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("%w: nil instant", ErrInvalidTimestamp)
		}
		return *v, nil
	case string:
		for _, layout := range stringLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: unparseable date string %q", ErrInvalidTimestamp, v)
	case InstantSource:
		return v.ToTime(), nil
	case SecondsNanos:
		return time.UnixMilli(v.Seconds * 1000), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case int64:
		return time.UnixMilli(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, fmt.Errorf("%w: non-finite epoch value", ErrInvalidTimestamp)
		}
		return time.UnixMilli(int64(v)), nil
	case map[string]any:
		// JSON-decoded SecondsNanos objects arrive as generic maps.
		sec, ok := epochField(v, "seconds")
		if !ok {
			return time.Time{}, fmt.Errorf("%w: unrecognized timestamp object", ErrInvalidTimestamp)
		}
		return time.UnixMilli(sec * 1000), nil
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing value", ErrInvalidTimestamp)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidTimestamp, input)
	}
}

// TimestampOrNow normalizes like Timestamp but falls back to the current
// instant instead of failing. Used on the sanitize path, where validation
// has already had its chance to reject the record.
func TimestampOrNow(input any) time.Time {
	t, err := Timestamp(input)
	if err != nil {
		return time.Now()
	}
	return t
}

func epochField(m map[string]any, key string) (int64, bool) {
	raw, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := raw.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
