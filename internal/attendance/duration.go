package attendance

import (
	"fmt"
	"math"
	"strconv"
)

// NormalizeDuration converts a frame count to whole seconds, rounding half away
// from zero.
func NormalizeDuration(frameCount int, frameRate float64) (int, error) {
	if err := validateFrameRate(frameRate); err != nil {
		return 0, err
	}
	if frameCount < 0 {
		return 0, fmt.Errorf("negative frame count %d", frameCount)
	}
	return int(math.Round(float64(frameCount) / frameRate)), nil
}

func FormatDuration(seconds int) string {
	return strconv.Itoa(seconds) + "sec"
}

func validateFrameRate(frameRate float64) error {
	if math.IsNaN(frameRate) || math.IsInf(frameRate, 0) || frameRate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidFrameRate, frameRate)
	}
	return nil
}
