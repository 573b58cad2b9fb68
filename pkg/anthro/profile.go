package anthro

import (
	"TailorScan/internal/entity"
	"errors"
)

var ErrUnknownGender = errors.New("no anthropometric profile for gender")

// Profile carries the gender-specific ratios the estimator falls back to
// when a side view cannot supply a real depth. Profiles are data, not code:
// adding a calibration profile must never touch the estimator's control flow.
type Profile struct {
	Gender string

	// WaistLevel is the waist line's position along the torso, measured as
	// a fraction of the neck-line to hip-line distance.
	WaistLevel float64

	// DepthRatios maps a girth measurement name to depth/width, the ratio
	// substituted for the side-view depth when that view is unavailable.
	DepthRatios map[string]float64
}

var profiles = map[string]Profile{
	string(entity.GenderMale): {
		Gender:     string(entity.GenderMale),
		WaistLevel: 0.58,
		DepthRatios: map[string]float64{
			entity.MeasurementNeck:  0.95,
			entity.MeasurementChest: 0.72,
			entity.MeasurementBust:  0.72,
			entity.MeasurementWaist: 0.80,
			entity.MeasurementHips:  0.70,
			entity.MeasurementThigh: 0.95,
			entity.MeasurementKnee:  1.00,
			entity.MeasurementCalf:  0.96,
			entity.MeasurementWrist: 0.78,
			entity.MeasurementAnkle: 0.80,
		},
	},
	string(entity.GenderFemale): {
		Gender:     string(entity.GenderFemale),
		WaistLevel: 0.55,
		DepthRatios: map[string]float64{
			entity.MeasurementNeck:  0.92,
			entity.MeasurementChest: 0.70,
			entity.MeasurementBust:  0.78,
			entity.MeasurementWaist: 0.72,
			entity.MeasurementHips:  0.77,
			entity.MeasurementThigh: 0.98,
			entity.MeasurementKnee:  1.00,
			entity.MeasurementCalf:  0.96,
			entity.MeasurementWrist: 0.76,
			entity.MeasurementAnkle: 0.78,
		},
	},
}

func ProfileFor(gender string) (Profile, error) {
	profile, ok := profiles[gender]
	if !ok {
		return Profile{}, ErrUnknownGender
	}
	return profile, nil
}

// DepthRatio looks up the fallback depth/width ratio for one girth. A
// missing entry means the measurement has no proportion fallback at all.
func (p Profile) DepthRatio(name string) (float64, bool) {
	ratio, ok := p.DepthRatios[name]
	return ratio, ok
}
