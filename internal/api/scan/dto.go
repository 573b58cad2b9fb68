package scan

import (
	"TailorScan/internal/entity"
	"time"
)

type CreateSessionRequest struct {
	ClientID       string `json:"client_id" validate:"omitempty,max=64"`
	ClientName     string `json:"client_name" validate:"omitempty,max=255"`
	ClientGender   string `json:"client_gender" validate:"omitempty,oneof=male female"`
	QuickScan      bool   `json:"quick_scan"`
	TTLHours       int    `json:"ttl_hours" validate:"omitempty,gte=1,lte=168"`
	Delivery       string `json:"delivery" validate:"omitempty,oneof=whatsapp email none"`
	DeliveryTarget string `json:"delivery_target" validate:"omitempty,max=255"`
}

type CreateSessionResponse struct {
	ID             string    `json:"id"`
	LinkCode       string    `json:"link_code"`
	ScanURL        string    `json:"scan_url"`
	ExpiresAt      time.Time `json:"expires_at"`
	DeliveryStatus string    `json:"delivery_status"`
}

// SessionInfoResponse is the subject-facing view of a session. It never
// carries measurements or guest contact details, only what the scan page
// needs to render. Message explains a non-writable status in words the
// subject can act on.
type SessionInfoResponse struct {
	Status       string    `json:"status"`
	DesignerName string    `json:"designer_name"`
	BusinessName string    `json:"business_name,omitempty"`
	ClientName   string    `json:"client_name,omitempty"`
	ClientGender string    `json:"client_gender,omitempty"`
	IsQuickScan  bool      `json:"is_quick_scan"`
	ExpiresAt    time.Time `json:"expires_at"`
	Message      string    `json:"message,omitempty"`
}

type StartScanRequest struct {
	DeviceRef string `json:"device_ref" validate:"omitempty,max=128"`
}

type StartScanResponse struct {
	Status string `json:"status"`

	// AlreadyClaimed means another device holds the soft processing claim.
	// The claim is advisory; submission from this device may still win.
	AlreadyClaimed bool `json:"already_claimed"`
}

type SubmitMeasurementsRequest struct {
	HeightCm       float64            `json:"height_cm" validate:"required,gte=100,lte=250"`
	Gender         string             `json:"gender" validate:"required,oneof=male female"`
	Measurements   map[string]float64 `json:"measurements" validate:"required,min=1"`
	Confidence     float64            `json:"confidence" validate:"gte=0,lte=1"`
	Provenance     map[string]string  `json:"provenance"`
	AcceptedAnyway bool               `json:"accepted_anyway"`
	ManualEntry    bool               `json:"manual_entry"`
	GuestName      string             `json:"guest_name" validate:"omitempty,max=255"`
	GuestPhone     string             `json:"guest_phone" validate:"omitempty,max=32"`
	GuestGender    string             `json:"guest_gender" validate:"omitempty,oneof=male female"`
}

type SubmitScanResponse struct {
	Status      string    `json:"status"`
	Confidence  float64   `json:"confidence"`
	CompletedAt time.Time `json:"completed_at"`
}

type FailScanRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type FailScanResponse struct {
	Status string `json:"status"`
}

type ListSessionsFilter struct {
	ClientID   string
	GuestPhone string
	Status     string
}

type SessionResponse struct {
	Data entity.ScanSession `json:"data"`
}

type SessionListResponse struct {
	Sessions []entity.ScanSession `json:"sessions"`
	Total    int                  `json:"total"`
}

type RetentionRunResponse struct {
	Archived int    `json:"archived"`
	Purged   int    `json:"purged"`
	Location string `json:"location,omitempty"`
}

// SessionEvent is pushed to dashboard watchers and published to the broker
// whenever a session reaches a new status.
type SessionEvent struct {
	SessionID      string    `json:"session_id"`
	LinkCode       string    `json:"link_code"`
	Status         string    `json:"status"`
	Confidence     float64   `json:"confidence,omitempty"`
	AcceptedAnyway bool      `json:"accepted_anyway,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
