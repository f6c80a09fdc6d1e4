package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPosition_ClampsNonFiniteCoordinates(t *testing.T) {
	// Act
	p := NewPosition(math.NaN(), math.Inf(1))

	// Assert
	assert.Equal(t, 0.0, p.X)
	assert.Equal(t, 0.0, p.Y)
}

func TestNewPosition_KeepsFiniteCoordinates(t *testing.T) {
	p := NewPosition(12.5, -3.25)

	assert.Equal(t, 12.5, p.X)
	assert.Equal(t, -3.25, p.Y)
}

func TestPosition_MovedBeyond_WithinTolerance(t *testing.T) {
	// Jitter at or under the tolerance must not count as movement.
	a := NewPosition(100, 100)
	b := NewPosition(100.9, 99.2)

	assert.False(t, a.MovedBeyond(b, 1.0))
}

func TestPosition_MovedBeyond_ExactlyAtTolerance(t *testing.T) {
	a := NewPosition(100, 100)
	b := NewPosition(101, 100)

	// The threshold is strictly greater-than.
	assert.False(t, a.MovedBeyond(b, 1.0))
}

func TestPosition_MovedBeyond_SingleAxisExceeds(t *testing.T) {
	a := NewPosition(100, 100)
	b := NewPosition(100, 101.5)

	assert.True(t, a.MovedBeyond(b, 1.0))
}

func TestPosition_DistanceTo(t *testing.T) {
	a := NewPosition(0, 0)
	b := NewPosition(3, 4)

	assert.Equal(t, 5.0, a.DistanceTo(b))
}
