package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDate("29-02-2024")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	opened := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	closed := time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 10, DaysBetween(opened, closed))
	assert.Equal(t, 0, DaysBetween(opened, opened))
	assert.Equal(t, -10, DaysBetween(closed, opened))
}
