package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "fastswap", Slugify("FastSwap"))
	assert.Equal(t, "coin-shuttle", Slugify("Coin Shuttle"))
	assert.Equal(t, "coin-shuttle", Slugify("  Coin Shuttle  "))
	assert.Equal(t, "", Slugify(""))
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
