package anthro

import (
	"TailorScan/internal/entity"
	"TailorScan/pkg/pose"
)

// Input bundles everything one estimation attempt consumes. Front is
// required; Side is optional and only sharpens the girth depths.
type Input struct {
	Front    *pose.LandmarkSet
	Side     *pose.LandmarkSet
	HeightCm float64
	Gender   string
}

// Measurement is a single named value with its provenance and the
// visibility quality of the landmarks it was read from.
type Measurement struct {
	Centimeters float64
	Provenance  string
	Confidence  float64

	// Quality is the minimum landmark visibility before any provenance
	// penalty. It weights this measurement in the aggregate confidence.
	Quality float64
}

// MeasurementEstimate is the output of one estimation run. Missing lists
// the measurement names that could not be computed from the landmarks at
// hand; they are excluded from Confidence rather than scored as zero.
type MeasurementEstimate struct {
	Values     map[string]Measurement
	Confidence float64
	Missing    []string
}

// MeasurementMap flattens the estimate into the persisted name to
// centimeter form, in the canonical measurement order.
func (e *MeasurementEstimate) MeasurementMap() entity.MeasurementMap {
	out := make(entity.MeasurementMap, len(e.Values))
	for _, name := range entity.MeasurementNames {
		if m, ok := e.Values[name]; ok {
			out[name] = m.Centimeters
		}
	}
	return out
}

// ProvenanceMap flattens per-measurement provenance the same way.
func (e *MeasurementEstimate) ProvenanceMap() entity.ProvenanceMap {
	out := make(entity.ProvenanceMap, len(e.Values))
	for _, name := range entity.MeasurementNames {
		if m, ok := e.Values[name]; ok {
			out[name] = m.Provenance
		}
	}
	return out
}
