package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%wid%", Contains("  WID "))
	assert.Equal(t, "%50!% off!_now!!%", Contains("50% OFF_now!"))
}
