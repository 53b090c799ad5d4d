package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateComparesInUTC(t *testing.T) {
	// 01:00 15.03 в UTC+5 это еще 14.03 по UTC
	now := time.Date(2024, 3, 15, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))

	_, err := parseDate("datum_vydeje", "2024-03-15", now)
	assert.ErrorIs(t, err, ErrValidation)

	d, err := parseDate("datum_vydeje", " 2024-03-14 ", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("datum_vydeje", "14.3.2024", now)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = parseDate("datum_vydeje", "", now)
	assert.ErrorIs(t, err, ErrValidation)
}
