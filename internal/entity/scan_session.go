package entity

import (
	"time"
)

type ScanStatus string

const (
	ScanStatusPending    ScanStatus = "pending"
	ScanStatusProcessing ScanStatus = "processing"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
	ScanStatusExpired    ScanStatus = "expired"
)

func IsValidScanStatus(status string) bool {
	switch ScanStatus(status) {
	case ScanStatusPending, ScanStatusProcessing, ScanStatusCompleted, ScanStatusFailed, ScanStatusExpired:
		return true
	default:
		return false
	}
}

func (s ScanStatus) String() string {
	return string(s)
}

// IsTerminal reports whether a session in this status can never be written
// again by the subject side.
func (s ScanStatus) IsTerminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusFailed, ScanStatusExpired:
		return true
	default:
		return false
	}
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func IsValidGender(gender string) bool {
	switch Gender(gender) {
	case GenderMale, GenderFemale:
		return true
	default:
		return false
	}
}

// ScanSession is one measurement-acquisition attempt, addressed from the
// subject device only by its link code. Designer and client display fields
// are denormalized at creation time so reads never touch designer records.
type ScanSession struct {
	ID           string `json:"id"`
	DesignerID   string `json:"designer_id"`
	DesignerName string `json:"designer_name"`
	BusinessName string `json:"business_name"`

	ClientID     string `json:"client_id,omitempty"`
	ClientName   string `json:"client_name,omitempty"`
	ClientGender string `json:"client_gender,omitempty"`

	GuestName   string `json:"guest_name,omitempty"`
	GuestPhone  string `json:"guest_phone,omitempty"`
	GuestGender string `json:"guest_gender,omitempty"`

	LinkCode    string     `json:"link_code"`
	Status      ScanStatus `json:"status"`
	IsQuickScan bool       `json:"is_quick_scan"`

	HeightCm       float64        `json:"height_cm,omitempty"`
	Gender         string         `json:"gender,omitempty"`
	Measurements   MeasurementMap `json:"measurements,omitempty"`
	Confidence     float64        `json:"confidence,omitempty"`
	Provenance     ProvenanceMap  `json:"provenance,omitempty"`
	AcceptedAnyway bool           `json:"accepted_anyway"`
	FailureReason  string         `json:"failure_reason,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// EffectiveStatus applies lazy expiry: a non-terminal session past its
// expiry is reported Expired even before the stored row has been updated.
func (s *ScanSession) EffectiveStatus(now time.Time) ScanStatus {
	if s.Status.IsTerminal() {
		return s.Status
	}
	if !now.Before(s.ExpiresAt) {
		return ScanStatusExpired
	}
	return s.Status
}

// Writable reports whether a subject-side terminal write may still land.
// This is the in-memory mirror of the store's conditional write clause.
func (s *ScanSession) Writable(now time.Time) bool {
	if s.Status != ScanStatusPending && s.Status != ScanStatusProcessing {
		return false
	}
	return now.Before(s.ExpiresAt)
}
