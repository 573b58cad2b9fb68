package scan

import "TailorScan/pkg/response"

var (
	ErrLinkNotFound           = response.NewError(404, "scan link not found")
	ErrLinkExpired            = response.NewError(410, "scan link expired")
	ErrSessionNotWritable     = response.NewError(409, "scan session already finished")
	ErrSessionNotFound        = response.NewError(404, "scan session not found")
	ErrSessionNotOwned        = response.NewError(403, "scan session does not belong to designer")
	ErrClientIdentityRequired = response.NewError(400, "client id, name and gender are required")
	ErrGuestIdentityRequired  = response.NewError(400, "guest name and gender are required for quick scan")
	ErrMeasurementsRequired   = response.NewError(400, "at least one measurement is required")
	ErrUnknownMeasurement     = response.NewError(400, "unknown measurement name")
	ErrMeasurementOutOfRange  = response.NewError(400, "measurement value out of range")
	ErrManualEntryTooSparse   = response.NewError(400, "manual entry requires at least three measurements")
	ErrInvalidProvenance      = response.NewError(400, "invalid provenance value")
	ErrInvalidGender          = response.NewError(400, "invalid gender")
	ErrInvalidStatusFilter    = response.NewError(400, "invalid status filter")
	ErrInvalidDelivery        = response.NewError(400, "invalid delivery channel or target")
	ErrDuplicateLinkCode      = response.NewError(500, "link code collision")
	ErrCreateSession          = response.NewError(500, "failed to create scan session")
)
