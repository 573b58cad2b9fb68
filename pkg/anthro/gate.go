package anthro

import (
	"os"
	"strconv"
)

// DefaultConfidenceThreshold splits acceptable estimates from ones that
// need the subject's review. It is a starting point, not a law: deployments
// tune it through SCAN_CONFIDENCE_THRESHOLD without touching the estimator.
const DefaultConfidenceThreshold = 0.70

type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeNeedsReview Outcome = "needs_review"
)

type Remediation string

const (
	RemediationRetry        Remediation = "retry"
	RemediationAcceptAnyway Remediation = "accept_anyway"
	RemediationManualEntry  Remediation = "manual_entry"
)

// Decision is the gate's verdict on one estimate. Remediations is empty
// when the outcome is Accepted and lists the three review paths otherwise.
type Decision struct {
	Outcome      Outcome       `json:"outcome"`
	Confidence   float64       `json:"confidence"`
	Threshold    float64       `json:"threshold"`
	Remediations []Remediation `json:"remediations,omitempty"`
}

type Gate struct {
	threshold float64
}

// NewGate builds a gate with an explicit threshold. Values outside (0, 1]
// fall back to the default so a bad config cannot wave everything through.
func NewGate(threshold float64) *Gate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &Gate{threshold: threshold}
}

// NewGateFromEnv reads SCAN_CONFIDENCE_THRESHOLD, defaulting when unset.
func NewGateFromEnv() *Gate {
	raw := os.Getenv("SCAN_CONFIDENCE_THRESHOLD")
	if raw == "" {
		return NewGate(DefaultConfidenceThreshold)
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return NewGate(DefaultConfidenceThreshold)
	}
	return NewGate(threshold)
}

func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Evaluate classifies an estimate. The comparison is inclusive: an estimate
// sitting exactly on the threshold is accepted.
func (g *Gate) Evaluate(est *MeasurementEstimate) Decision {
	d := Decision{
		Confidence: est.Confidence,
		Threshold:  g.threshold,
	}
	if est.Confidence >= g.threshold {
		d.Outcome = OutcomeAccepted
		return d
	}
	d.Outcome = OutcomeNeedsReview
	d.Remediations = []Remediation{RemediationRetry, RemediationAcceptAnyway, RemediationManualEntry}
	return d
}
