package radio_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/staticfloat/bladeRF-power/internal/radio"
)

func TestErrorKindHelpers(t *testing.T) {
	err := fmt.Errorf("wrapping: %w", &radio.Error{Kind: radio.KindTimestampInPast, Err: errors.New("boom")})

	assert.True(t, radio.IsTimestampInPast(err))
	assert.False(t, radio.IsTimeout(err))
	assert.False(t, radio.IsDeviceLost(err))
}

func TestGainStageTypeString(t *testing.T) {
	assert.Equal(t, "FE", radio.GainStageTypeFE.String())
	assert.Equal(t, "IF", radio.GainStageTypeIF.String())
}

func TestGainStageTypeIs(t *testing.T) {
	both := radio.GainStageTypeFE | radio.GainStageTypeIF
	assert.True(t, both.Is(radio.GainStageTypeFE))
	assert.True(t, both.Is(radio.GainStageTypeIF))
	assert.False(t, both.Is(radio.GainStageTypeBB))
}
