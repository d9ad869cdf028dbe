package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecondsBetween(t *testing.T) {
	from := time.Unix(100, 0)
	assert.Equal(t, 1.5, SecondsBetween(from, from.Add(1500*time.Millisecond)))
}

func TestMillisOrDefault(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, MillisOrDefault(250, time.Second))
	assert.Equal(t, time.Second, MillisOrDefault(0, time.Second))
	assert.Equal(t, time.Second, MillisOrDefault(-5, time.Second))
}
