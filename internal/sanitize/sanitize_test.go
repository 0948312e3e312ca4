package sanitize

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextScrubbing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  coffee  ", "coffee"},
		{"strips angle brackets", "<script>alert(1)</script>", "scriptalert(1)/script"},
		{"strips javascript scheme", "javascript:alert(1)", "alert(1)"},
		{"strips javascript scheme case-insensitive", "JavaScript:alert(1)", "alert(1)"},
		{"strips event handlers", "img onerror=steal()", "img steal()"},
		{"strips spliced javascript scheme", "javajavascript:script:alert(1)", "alert(1)"},
		{"plain text unchanged", "Lunch at the corner deli", "Lunch at the corner deli"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.input))
		})
	}
}

func TestTextTruncation(t *testing.T) {
	long := strings.Repeat("a", 1500)
	got := Text(long)
	assert.Len(t, got, 1000)
}

func TestTextTruncationCountsRunes(t *testing.T) {
	// 1500 two-byte runes: the limit applies per character and the cut
	// must land on a rune boundary.
	got := Text(strings.Repeat("é", 1500))
	assert.Equal(t, 1000, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, 600, utf8.RuneCountInString(Text(strings.Repeat("é", 600))))
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"  plain  ",
		"<b onclick=do()>javascript:x</b>",
		strings.Repeat("x", 999) + "  ",
		"javajavascript:script:alert(1)",
		strings.Repeat("words and spaces ", 100),
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "sanitizing twice must equal sanitizing once for %q", in)
	}
}

func TestCategoryCoercion(t *testing.T) {
	tests := []struct {
		input string
		want  string
		known bool
	}{
		{"groceries", "groceries", true},
		{"SHOPPING", "shopping", true},
		{"  Transfer  ", "transfer", true},
		{"crypto-yolo", "other", false},
		{"", "other", false},
		{"OTHER", "other", true},
	}

	for _, tt := range tests {
		got, known := Category(tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, tt.known, known, "input %q", tt.input)
	}
}

type fakeProviderTime struct {
	at time.Time
}

func (f fakeProviderTime) ToTime() time.Time { return f.at }

func TestTimestampVariants(t *testing.T) {
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
	}{
		{"native instant", want},
		{"iso string", "2024-03-15T10:30:00Z"},
		{"epoch millis int64", want.UnixMilli()},
		{"epoch millis float", float64(want.UnixMilli())},
		{"seconds nanos", SecondsNanos{Seconds: want.Unix(), Nanos: 999}},
		{"seconds nanos map", map[string]any{"seconds": float64(want.Unix()), "nanoseconds": float64(999)}},
		{"provider timestamp object", fakeProviderTime{at: want}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Timestamp(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want.UnixMilli(), got.UnixMilli())
		})
	}
}

func TestTimestampDateOnlyString(t *testing.T) {
	got, err := Timestamp("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).UnixMilli(), got.UnixMilli())
}

func TestTimestampFailures(t *testing.T) {
	for _, input := range []any{"invalid-date", nil, true, []string{"x"}, map[string]any{"minutes": 5.0}} {
		_, err := Timestamp(input)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "input %v", input)
	}
}

func TestTimestampOrNowFallsBack(t *testing.T) {
	before := time.Now()
	got := TimestampOrNow("invalid-date")
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestTimestampOrNowKeepsValidInput(t *testing.T) {
	want := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want.UnixMilli(), TimestampOrNow(want.UnixMilli()).UnixMilli())
}
