package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2030-05-01T10:00:00Z", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01T10:00:00.250Z", time.Date(2030, 5, 1, 10, 0, 0, 250_000_000, time.UTC)},
		{"2030-05-01T12:00:00+02:00", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01T10:00:00", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01T10:00", time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2030-05-01", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)},
		{" 2030-05-01 ", time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDateTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseDateTimeRejects(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2030-13-01", "01/05/2030", "2030-05-01T25:00:00Z"} {
		_, err := ParseDateTime(in)
		assert.Error(t, err, in)
	}
}
