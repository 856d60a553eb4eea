package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysSince(t *testing.T) {
	at := testNow.Add(-(6*24*time.Hour + 23*time.Hour))
	days, ok := DaysSince(&at, testNow)
	assert.True(t, ok)
	assert.Equal(t, 6, days)

	future := testNow.Add(time.Hour)
	days, ok = DaysSince(&future, testNow)
	assert.True(t, ok)
	assert.Zero(t, days)

	_, ok = DaysSince(nil, testNow)
	assert.False(t, ok)
}

func TestIsActive(t *testing.T) {
	six, eight := daysAgo(6), daysAgo(8)
	assert.True(t, IsActive(&six, testNow, 7))
	assert.False(t, IsActive(&eight, testNow, 7))
	assert.False(t, IsActive(nil, testNow, 7))
}
