package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, Date("2025-03-10"), d)

	for _, bad := range []string{"", "10-03-2025", "2025-13-01", "2025-02-30", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  Date
	}{
		{"time", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "2025-03-10"},
		{"string", "2025-03-10", "2025-03-10"},
		{"timestamp string", "2025-03-10T00:00:00Z", "2025-03-10"},
		{"bytes", []byte("2025-03-10"), "2025-03-10"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.value))
			assert.Equal(t, tt.want, d)
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}
