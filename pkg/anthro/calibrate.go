package anthro

import (
	"TailorScan/pkg/pose"
	"errors"
	"fmt"
)

var ErrCalibration = errors.New("calibration failed")

const (
	// MinCalibrationVisibility is the visibility floor for the landmarks
	// that anchor the pixel-to-centimeter scale. Below it the scale would
	// be guesswork, so estimation aborts instead of degrading.
	MinCalibrationVisibility = 0.5

	// minSubjectFraction rejects frames where the subject occupies too
	// little of the image for per-pixel noise to stay below a centimeter.
	minSubjectFraction = 0.25

	// MinHeightCm and MaxHeightCm bound the operator-supplied height.
	MinHeightCm = 100
	MaxHeightCm = 250
)

// Calibration converts pixel distances in the front view to centimeters.
type Calibration struct {
	// ScaleFactor is centimeters per pixel.
	ScaleFactor float64

	// PixelHeight is the measured top-of-head to lower-ankle distance.
	PixelHeight float64
}

// Centimeters scales a pixel distance into real units.
func (c Calibration) Centimeters(pixels float64) float64 {
	return pixels * c.ScaleFactor
}

// Calibrate derives the scale factor from the subject's known height and
// their pixel height in the front view. The pixel height runs from the top
// of the head to the lower of the two ankles so a slight lean does not
// shorten the subject.
func Calibrate(front *pose.LandmarkSet, heightCm float64) (Calibration, error) {
	if front == nil {
		return Calibration{}, fmt.Errorf("%w: front view is required", ErrCalibration)
	}
	if heightCm < MinHeightCm || heightCm > MaxHeightCm {
		return Calibration{}, fmt.Errorf("%w: height %.1fcm outside %d-%dcm", ErrCalibration, heightCm, MinHeightCm, MaxHeightCm)
	}

	top, ok := front.Point(pose.PointTopHead)
	if !ok || top.Visibility < MinCalibrationVisibility {
		return Calibration{}, fmt.Errorf("%w: top of head not visible", ErrCalibration)
	}
	left, okLeft := front.Point(pose.PointLeftAnkle)
	right, okRight := front.Point(pose.PointRightAnkle)
	if !okLeft || !okRight || left.Visibility < MinCalibrationVisibility || right.Visibility < MinCalibrationVisibility {
		return Calibration{}, fmt.Errorf("%w: ankles not visible", ErrCalibration)
	}

	lowerAnkleY := left.Y
	if right.Y > lowerAnkleY {
		lowerAnkleY = right.Y
	}
	pixelHeight := lowerAnkleY - top.Y
	if pixelHeight <= 0 {
		return Calibration{}, fmt.Errorf("%w: non-positive pixel height", ErrCalibration)
	}
	if front.ImageHeight > 0 && pixelHeight < minSubjectFraction*float64(front.ImageHeight) {
		return Calibration{}, fmt.Errorf("%w: subject fills less than %.0f%% of the frame", ErrCalibration, minSubjectFraction*100)
	}

	return Calibration{
		ScaleFactor: heightCm / pixelHeight,
		PixelHeight: pixelHeight,
	}, nil
}
