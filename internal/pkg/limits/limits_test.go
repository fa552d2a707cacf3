package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"empty", "", 0},
		{"valid", "12", 12},
		{"zero", "0", 0},
		{"junk", "abc", 0},
		{"negative", "-3", 0},
		{"float", "1.5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Read(tt.raw))
		})
	}
}

func TestCheckAndReserve(t *testing.T) {
	// Walk the full window: every reservation up to the limit is allowed
	used := 0
	for i := 0; i < 50; i++ {
		newUsed, remaining, allowed := CheckAndReserve(used, 50)
		assert.True(t, allowed, "reservation %d should be allowed", i+1)
		assert.Equal(t, used+1, newUsed)
		assert.Equal(t, 50-newUsed, remaining)
		used = newUsed
	}

	// The 51st is denied and the counter does not move
	newUsed, remaining, allowed := CheckAndReserve(used, 50)
	assert.False(t, allowed)
	assert.Equal(t, 50, newUsed)
	assert.Equal(t, 0, remaining)
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 50, Remaining(0, 50))
	assert.Equal(t, 1, Remaining(49, 50))
	assert.Equal(t, 0, Remaining(50, 50))
	assert.Equal(t, 0, Remaining(99, 50))
}
