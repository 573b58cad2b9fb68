package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Measurement names shared by the estimator, the gateway payloads and the
// dashboard read model. Values are always centimeters.
const (
	MeasurementShoulderWidth = "shoulder_width"
	MeasurementArmLength     = "arm_length"
	MeasurementSleeveLength  = "sleeve_length"
	MeasurementBackLength    = "back_length"
	MeasurementFrontLength   = "front_length"
	MeasurementInseam        = "inseam"

	MeasurementNeck  = "neck"
	MeasurementChest = "chest"
	MeasurementBust  = "bust"
	MeasurementWaist = "waist"
	MeasurementHips  = "hips"
	MeasurementThigh = "thigh"
	MeasurementKnee  = "knee"
	MeasurementCalf  = "calf"
	MeasurementWrist = "wrist"
	MeasurementAnkle = "ankle"
)

// MeasurementNames fixes the canonical ordering. The estimator walks this
// slice, never a map, so identical inputs always produce identical output.
var MeasurementNames = []string{
	MeasurementShoulderWidth,
	MeasurementArmLength,
	MeasurementSleeveLength,
	MeasurementBackLength,
	MeasurementFrontLength,
	MeasurementInseam,
	MeasurementNeck,
	MeasurementChest,
	MeasurementBust,
	MeasurementWaist,
	MeasurementHips,
	MeasurementThigh,
	MeasurementKnee,
	MeasurementCalf,
	MeasurementWrist,
	MeasurementAnkle,
}

func IsValidMeasurementName(name string) bool {
	for _, n := range MeasurementNames {
		if n == name {
			return true
		}
	}
	return false
}

// Provenance records how a measurement value was obtained.
const (
	ProvenanceDerived    = "derived"
	ProvenanceProportion = "proportion"
	ProvenanceManual     = "manual"
)

func IsValidProvenance(p string) bool {
	switch p {
	case ProvenanceDerived, ProvenanceProportion, ProvenanceManual:
		return true
	default:
		return false
	}
}

// MeasurementMap and ProvenanceMap round-trip through jsonb columns.

type MeasurementMap map[string]float64

func (m MeasurementMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *MeasurementMap) Scan(src interface{}) error {
	return scanJSONMap(src, m)
}

type ProvenanceMap map[string]string

func (p ProvenanceMap) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *ProvenanceMap) Scan(src interface{}) error {
	return scanJSONMap(src, p)
}

func scanJSONMap(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into json map", src)
	}
}
