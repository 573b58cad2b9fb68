package anthro

import (
	"TailorScan/internal/entity"
	"errors"
	"fmt"
)

var ErrManualEntryInvalid = errors.New("manual entry needs more measurements")

// ManualEntryMinFields is the fewest distinct, positive measurement values
// a manual submission must carry before it can complete a session.
const ManualEntryMinFields = 3

// PrefillFromEstimate returns the measurements a manual-entry form starts
// from: only values the estimator truly derived from landmarks. Proportion
// guesses are withheld so the subject is not anchored on them.
func PrefillFromEstimate(est *MeasurementEstimate) entity.MeasurementMap {
	out := make(entity.MeasurementMap)
	if est == nil {
		return out
	}
	for _, name := range entity.MeasurementNames {
		if m, ok := est.Values[name]; ok && m.Provenance == entity.ProvenanceDerived {
			out[name] = m.Centimeters
		}
	}
	return out
}

// ValidateManualEntry enforces the manual-entry minimum: at least
// ManualEntryMinFields recognized measurement names with positive values.
// Unknown names and non-positive values fail outright rather than being
// silently dropped, so the subject sees exactly what to fix.
func ValidateManualEntry(values entity.MeasurementMap) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no measurements given", ErrManualEntryInvalid)
	}
	count := 0
	for name, cm := range values {
		if !entity.IsValidMeasurementName(name) {
			return fmt.Errorf("%w: unknown measurement %q", ErrManualEntryInvalid, name)
		}
		if cm <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrManualEntryInvalid, name)
		}
		count++
	}
	if count < ManualEntryMinFields {
		return fmt.Errorf("%w: got %d, need at least %d", ErrManualEntryInvalid, count, ManualEntryMinFields)
	}
	return nil
}

// ManualEstimate wraps a validated manual submission in estimate form:
// every value carries manual provenance and full confidence.
func ManualEstimate(values entity.MeasurementMap) (*MeasurementEstimate, error) {
	if err := ValidateManualEntry(values); err != nil {
		return nil, err
	}
	est := &MeasurementEstimate{
		Values:     make(map[string]Measurement, len(values)),
		Confidence: 1.0,
	}
	for _, name := range entity.MeasurementNames {
		cm, ok := values[name]
		if !ok {
			continue
		}
		est.Values[name] = Measurement{
			Centimeters: cm,
			Provenance:  entity.ProvenanceManual,
			Confidence:  1.0,
			Quality:     1.0,
		}
	}
	return est, nil
}
