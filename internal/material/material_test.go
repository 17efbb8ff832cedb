package material

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMildSteelIsValid(t *testing.T) {
	p := MildSteel()
	assert.NoError(t, p.Validate())
	assert.Equal(t, 200000.0, p.YoungsModulus)
	assert.Equal(t, 0.15, p.FractureStrain)
}

func TestValidateRejectsBadStress(t *testing.T) {
	p := MildSteel()
	p.YoungsModulus = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperties)

	p = MildSteel()
	p.UltimateTensileStrength = math.Inf(1)
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperties)
}

func TestValidateRejectsNaNStrain(t *testing.T) {
	p := MildSteel()
	p.PlateauEndStrain = math.NaN()
	assert.ErrorIs(t, p.Validate(), ErrInvalidProperties)
}
