package overlay

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColors(t *testing.T) {
	assert.Equal(t, color.RGBA{B: 255}, boxColor)
	assert.Equal(t, color.RGBA{R: 255}, alarmColor)
	assert.NotEqual(t, alarmColor, boxColor)
	assert.NotEqual(t, normalColor, boxColor)
}
