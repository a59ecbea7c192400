package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_ExplicitOffset(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "negative offset",
			input: "2023-01-01T12:00:00-05:00",
			want:  time.Date(2023, 1, 1, 17, 0, 0, 0, time.UTC),
		},
		{
			name:  "positive offset",
			input: "2023-06-15T08:30:00+08:00",
			want:  time.Date(2023, 6, 15, 0, 30, 0, 0, time.UTC),
		},
		{
			name:  "zulu",
			input: "2024-02-29T00:00:00Z",
			want:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Location must not matter when the string carries its own offset.
			loc, err := time.LoadLocation("Asia/Singapore")
			require.NoError(t, err)
			got, err := ParseTimestamp(tt.input, loc)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_NoOffsetUsesGivenZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got, err := ParseTimestamp("2023-01-01 12:00:00", loc)
	require.NoError(t, err)
	// EST is UTC-5 in January.
	assert.True(t, got.Equal(time.Date(2023, 1, 1, 17, 0, 0, 0, time.UTC)))

	// Same input under the same zone always yields the same output.
	again, err := ParseTimestamp("2023-01-01 12:00:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(again))
}

func TestParseTimestamp_FreeFormFormats(t *testing.T) {
	got, err := ParseTimestamp("03 Feb 2025 14:45", time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 2, 3, 14, 45, 0, 0, time.UTC)))
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("not a timestamp", time.UTC)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTimestamp))
}

func TestNormalizeTime_Idempotent(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	local := time.Date(2023, 7, 1, 10, 0, 0, 0, loc)
	utc := NormalizeTime(local)
	assert.Equal(t, time.UTC, utc.Location())
	assert.True(t, utc.Equal(local))
	assert.Equal(t, utc, NormalizeTime(utc))
}
