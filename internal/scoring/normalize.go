package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCalibration reports a logistic fit point the curve cannot pass through.
var ErrInvalidCalibration = errors.New("invalid calibration")

// MinScore and MaxScore are the closest representable values to the
// asymptotes of the normalised range.
var (
	MinScore = math.Nextafter(-1, 0)
	MaxScore = math.Nextafter(1, 0)
)

// DefaultPercentileY is the normalised value conventionally assigned to the
// raw score of a 90th percentile page.
const DefaultPercentileY = 0.9

// Calibration is the point (X0, Y0) the logistic curve is fitted through.
// X0 is the raw score expected at the 90th percentile of relevance.
type Calibration struct {
	X0 float64
	Y0 float64
}

// Percentile90 returns the conventional calibration for a 90th percentile raw score.
func Percentile90(x0 float64) Calibration {
	return Calibration{X0: x0, Y0: DefaultPercentileY}
}

// Validate checks that the curve is well defined and increasing.
func (c Calibration) Validate() error {
	switch {
	case math.IsNaN(c.X0) || math.IsInf(c.X0, 0) || math.IsNaN(c.Y0):
		return fmt.Errorf("%w: non-finite fit point (%v, %v)", ErrInvalidCalibration, c.X0, c.Y0)
	case math.Abs(c.Y0) >= 1:
		return fmt.Errorf("%w: |y0| must be < 1, got %v", ErrInvalidCalibration, c.Y0)
	case c.X0 == 0 || c.Y0 == 0:
		return fmt.Errorf("%w: fit point (%v, %v) must be off the origin", ErrInvalidCalibration, c.X0, c.Y0)
	case (c.X0 > 0) != (c.Y0 > 0):
		return fmt.Errorf("%w: fit point (%v, %v) gives a decreasing curve", ErrInvalidCalibration, c.X0, c.Y0)
	}
	return nil
}

func (c Calibration) slope() float64 {
	return -math.Log((1-c.Y0)/(1+c.Y0)) / c.X0
}

// apply assumes c has been validated.
func (c Calibration) apply(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	y := 2/(1+math.Exp(-c.slope()*x)) - 1
	switch {
	case y >= 1:
		return MaxScore
	case y <= -1:
		return MinScore
	}
	return y
}

// Normalize maps an unbounded raw score into (-1, 1) along the logistic curve
// through the origin and the calibration point.
func Normalize(x float64, c Calibration) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	return c.apply(x), nil
}
