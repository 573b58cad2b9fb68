package scanService

import (
	"TailorScan/internal/api/scan"
	scanRepository "TailorScan/internal/api/scan/repository"
	"TailorScan/internal/entity"
	"TailorScan/pkg/anthro"
	contextPkg "TailorScan/pkg/context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	// processingClaimTTL bounds how long a device may sit on the soft
	// processing claim before another device can take over.
	processingClaimTTL = 15 * time.Minute

	// terminalEventsExchange receives completed, failed and expired events.
	terminalEventsExchange = "scan.sessions"

	maxMeasurementCm = 500.0
)

// getSessionWithExpiry reads a session and applies lazy expiry: when a
// non-terminal row is past its deadline the expired status is persisted and
// announced before the caller ever sees it.
func (s *subjectDomainImpl) getSessionWithExpiry(c context.Context, repo scanRepository.Client, linkCode string, now time.Time) (entity.ScanSession, entity.ScanStatus, error) {
	requestID := contextPkg.GetRequestID(c)

	session, err := repo.Session.GetSessionByLinkCode(c, linkCode)
	if err != nil {
		return entity.ScanSession{}, "", err
	}

	status := session.EffectiveStatus(now)
	if status == entity.ScanStatusExpired && !session.Status.IsTerminal() {
		persisted, err := repo.Session.PersistExpiry(c, session.ID, now)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("Failed to persist lazy expiry")
		} else if persisted {
			s.publishEvent(requestID, scan.SessionEvent{
				SessionID:  session.ID,
				LinkCode:   session.LinkCode,
				Status:     entity.ScanStatusExpired.String(),
				OccurredAt: now,
			}, true)
		}
	}

	return session, status, nil
}

// publishEvent pushes an event to dashboard watchers, and for terminal
// transitions also to the broker exchange.
func (s *subjectDomainImpl) publishEvent(requestID string, evt scan.SessionEvent, terminal bool) {
	s.watch.Publish(evt)

	if !terminal || s.publisher == nil {
		return
	}

	body, err := json.Marshal(evt)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode session event")
		return
	}

	if err := s.publisher.Publish(terminalEventsExchange, body); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": evt.SessionID,
			"error":      err.Error(),
		}).Warn("Failed to publish session event to broker")
	}
}

func (s *subjectDomainImpl) GetSessionInfo(c context.Context, linkCode string) (scan.SessionInfoResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.SessionInfoResponse{}, err
	}

	now := time.Now()
	session, status, err := s.getSessionWithExpiry(c, repo, linkCode, now)
	if err != nil {
		return scan.SessionInfoResponse{}, err
	}

	// A known link always answers, whatever its state. The status plus
	// message tell the subject what can still happen; only submission
	// paths reject with an error.
	return scan.SessionInfoResponse{
		Status:       status.String(),
		DesignerName: session.DesignerName,
		BusinessName: session.BusinessName,
		ClientName:   session.ClientName,
		ClientGender: session.ClientGender,
		IsQuickScan:  session.IsQuickScan,
		ExpiresAt:    session.ExpiresAt,
		Message:      subjectMessage(status),
	}, nil
}

// subjectMessage words a non-writable status for the scan page. A pending
// session needs no message.
func subjectMessage(status entity.ScanStatus) string {
	switch status {
	case entity.ScanStatusExpired:
		return "This scan link has expired. Ask your designer for a new one."
	case entity.ScanStatusCompleted:
		return "This scan has already been completed."
	case entity.ScanStatusFailed:
		return "This scan was marked as failed. Ask your designer for a new link."
	case entity.ScanStatusProcessing:
		return "A scan is already in progress on another device."
	default:
		return ""
	}
}

// StartScan is advisory. It flags the session as processing for the
// dashboard and takes the soft device claim; the submit write is the only
// authority on who finishes the session.
func (s *subjectDomainImpl) StartScan(c context.Context, linkCode string, req scan.StartScanRequest) (scan.StartScanResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.StartScanResponse{}, err
	}

	now := time.Now()
	session, status, err := s.getSessionWithExpiry(c, repo, linkCode, now)
	if err != nil {
		return scan.StartScanResponse{}, err
	}

	if status == entity.ScanStatusExpired {
		return scan.StartScanResponse{}, scan.ErrLinkExpired
	}
	if status.IsTerminal() {
		return scan.StartScanResponse{}, scan.ErrSessionNotWritable
	}

	alreadyClaimed := false
	claimed, err := s.redisServer.ClaimProcessing(c, linkCode, req.DeviceRef, processingClaimTTL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to take processing claim")
	} else if !claimed {
		alreadyClaimed = true
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"link_code":  linkCode,
		}).Info("Processing claim already held by another device")
	}

	moved, err := repo.Session.MarkProcessing(c, linkCode, now)
	if err != nil {
		return scan.StartScanResponse{}, err
	}

	if moved {
		s.publishEvent(requestID, scan.SessionEvent{
			SessionID:  session.ID,
			LinkCode:   session.LinkCode,
			Status:     entity.ScanStatusProcessing.String(),
			OccurredAt: now,
		}, false)
	}

	return scan.StartScanResponse{
		Status:         entity.ScanStatusProcessing.String(),
		AlreadyClaimed: alreadyClaimed,
	}, nil
}

func (s *subjectDomainImpl) SubmitMeasurements(c context.Context, linkCode string, req scan.SubmitMeasurementsRequest) (scan.SubmitScanResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	if !entity.IsValidGender(req.Gender) {
		return scan.SubmitScanResponse{}, scan.ErrInvalidGender
	}
	if len(req.Measurements) == 0 {
		return scan.SubmitScanResponse{}, scan.ErrMeasurementsRequired
	}

	for name, value := range req.Measurements {
		if !entity.IsValidMeasurementName(name) {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"measurement": name,
			}).Warn("Rejected unknown measurement name")
			return scan.SubmitScanResponse{}, scan.ErrUnknownMeasurement
		}
		if value <= 0 || value > maxMeasurementCm {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"measurement": name,
			}).Warn("Rejected out-of-range measurement value")
			return scan.SubmitScanResponse{}, scan.ErrMeasurementOutOfRange
		}
	}

	for name, p := range req.Provenance {
		if !entity.IsValidMeasurementName(name) {
			return scan.SubmitScanResponse{}, scan.ErrUnknownMeasurement
		}
		if !entity.IsValidProvenance(p) {
			return scan.SubmitScanResponse{}, scan.ErrInvalidProvenance
		}
	}

	if req.ManualEntry && len(req.Measurements) < anthro.ManualEntryMinFields {
		return scan.SubmitScanResponse{}, scan.ErrManualEntryTooSparse
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.SubmitScanResponse{}, err
	}

	now := time.Now()
	session, status, err := s.getSessionWithExpiry(c, repo, linkCode, now)
	if err != nil {
		return scan.SubmitScanResponse{}, err
	}

	if status == entity.ScanStatusExpired {
		return scan.SubmitScanResponse{}, scan.ErrLinkExpired
	}
	if status.IsTerminal() {
		return scan.SubmitScanResponse{}, scan.ErrSessionNotWritable
	}

	if session.IsQuickScan {
		if req.GuestName == "" || req.GuestGender == "" {
			return scan.SubmitScanResponse{}, scan.ErrGuestIdentityRequired
		}
		session.GuestName = req.GuestName
		session.GuestPhone = req.GuestPhone
		session.GuestGender = req.GuestGender
	}

	provenance := make(entity.ProvenanceMap, len(req.Measurements))
	for name := range req.Measurements {
		switch {
		case req.ManualEntry:
			provenance[name] = entity.ProvenanceManual
		case req.Provenance[name] != "":
			provenance[name] = req.Provenance[name]
		default:
			provenance[name] = entity.ProvenanceDerived
		}
	}

	confidence := req.Confidence
	if req.ManualEntry {
		confidence = 1.0
	}

	session.Status = entity.ScanStatusCompleted
	session.HeightCm = req.HeightCm
	session.Gender = req.Gender
	session.Measurements = entity.MeasurementMap(req.Measurements)
	session.Confidence = confidence
	session.Provenance = provenance
	session.AcceptedAnyway = req.AcceptedAnyway
	session.CompletedAt = now

	if err := repo.Session.CompleteSession(c, session); err != nil {
		if errors.Is(err, scan.ErrSessionNotWritable) {
			return scan.SubmitScanResponse{}, s.disambiguateLostWrite(c, repo, linkCode, now)
		}
		return scan.SubmitScanResponse{}, err
	}

	if err := s.redisServer.ReleaseProcessing(c, linkCode); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to release processing claim")
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": session.ID,
		"confidence": confidence,
	}).Info("Scan session completed")

	s.publishEvent(requestID, scan.SessionEvent{
		SessionID:      session.ID,
		LinkCode:       session.LinkCode,
		Status:         entity.ScanStatusCompleted.String(),
		Confidence:     confidence,
		AcceptedAnyway: req.AcceptedAnyway,
		OccurredAt:     now,
	}, true)

	return scan.SubmitScanResponse{
		Status:      entity.ScanStatusCompleted.String(),
		Confidence:  confidence,
		CompletedAt: now,
	}, nil
}

func (s *subjectDomainImpl) FailScan(c context.Context, linkCode string, req scan.FailScanRequest) (scan.FailScanResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.FailScanResponse{}, err
	}

	now := time.Now()
	session, status, err := s.getSessionWithExpiry(c, repo, linkCode, now)
	if err != nil {
		return scan.FailScanResponse{}, err
	}

	if status == entity.ScanStatusExpired {
		return scan.FailScanResponse{}, scan.ErrLinkExpired
	}
	if status.IsTerminal() {
		return scan.FailScanResponse{}, scan.ErrSessionNotWritable
	}

	if err := repo.Session.FailSession(c, linkCode, req.Reason, now); err != nil {
		if errors.Is(err, scan.ErrSessionNotWritable) {
			return scan.FailScanResponse{}, s.disambiguateLostWrite(c, repo, linkCode, now)
		}
		return scan.FailScanResponse{}, err
	}

	if err := s.redisServer.ReleaseProcessing(c, linkCode); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to release processing claim")
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": session.ID,
		"reason":     req.Reason,
	}).Info("Scan session failed by subject")

	s.publishEvent(requestID, scan.SessionEvent{
		SessionID:  session.ID,
		LinkCode:   session.LinkCode,
		Status:     entity.ScanStatusFailed.String(),
		OccurredAt: now,
	}, true)

	return scan.FailScanResponse{Status: entity.ScanStatusFailed.String()}, nil
}

// disambiguateLostWrite re-reads after a conditional write matched nothing,
// so the caller learns whether the link vanished, expired, or was finished
// by a concurrent writer.
func (s *subjectDomainImpl) disambiguateLostWrite(c context.Context, repo scanRepository.Client, linkCode string, now time.Time) error {
	requestID := contextPkg.GetRequestID(c)

	session, err := repo.Session.GetSessionByLinkCode(c, linkCode)
	if err != nil {
		if errors.Is(err, scan.ErrLinkNotFound) {
			return scan.ErrLinkNotFound
		}
		return scan.ErrSessionNotWritable
	}

	if session.EffectiveStatus(now) == entity.ScanStatusExpired {
		if _, err := repo.Session.PersistExpiry(c, session.ID, now); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("Failed to persist lazy expiry")
		}
		return scan.ErrLinkExpired
	}

	return scan.ErrSessionNotWritable
}
