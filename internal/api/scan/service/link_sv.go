package scanService

import (
	"TailorScan/internal/api/scan"
	"TailorScan/internal/entity"
	contextPkg "TailorScan/pkg/context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	deliveryWhatsapp = "whatsapp"
	deliveryEmail    = "email"
	deliveryNone     = "none"

	deliveryStatusSent    = "sent"
	deliveryStatusFailed  = "failed"
	deliveryStatusSkipped = "skipped"

	defaultSessionTTL = 24 * time.Hour

	// linkCodeAttempts bounds regeneration after a unique-index collision.
	linkCodeAttempts = 3
)

func (s *sessionDomainImpl) CreateSession(c context.Context, designer entity.DesignerClaims, req scan.CreateSessionRequest) (scan.CreateSessionResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	if !req.QuickScan {
		if req.ClientID == "" || req.ClientName == "" || req.ClientGender == "" {
			return scan.CreateSessionResponse{}, scan.ErrClientIdentityRequired
		}
		if !entity.IsValidGender(req.ClientGender) {
			return scan.CreateSessionResponse{}, scan.ErrInvalidGender
		}
	}

	delivery := req.Delivery
	if delivery == "" {
		delivery = deliveryNone
	}
	switch delivery {
	case deliveryNone:
	case deliveryWhatsapp:
		if req.DeliveryTarget == "" {
			return scan.CreateSessionResponse{}, scan.ErrInvalidDelivery
		}
	case deliveryEmail:
		if req.DeliveryTarget == "" || !strings.Contains(req.DeliveryTarget, "@") {
			return scan.CreateSessionResponse{}, scan.ErrInvalidDelivery
		}
	default:
		return scan.CreateSessionResponse{}, scan.ErrInvalidDelivery
	}

	ttl := defaultSessionTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.CreateSessionResponse{}, err
	}

	now := time.Now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate session ID")
		return scan.CreateSessionResponse{}, err
	}

	session := entity.ScanSession{
		ID:           id,
		DesignerID:   designer.ID,
		DesignerName: designer.Name,
		BusinessName: designer.BusinessName,
		Status:       entity.ScanStatusPending,
		IsQuickScan:  req.QuickScan,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if !req.QuickScan {
		session.ClientID = req.ClientID
		session.ClientName = req.ClientName
		session.ClientGender = req.ClientGender
	}

	created := false
	for attempt := 0; attempt < linkCodeAttempts; attempt++ {
		code, err := s.utils.NewLinkCode()
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to generate link code")
			return scan.CreateSessionResponse{}, err
		}
		session.LinkCode = code

		if err := repo.Session.CreateSession(c, session); err != nil {
			if errors.Is(err, scan.ErrDuplicateLinkCode) {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"attempt":    attempt + 1,
				}).Warn("Link code collision, regenerating")
				continue
			}
			return scan.CreateSessionResponse{}, err
		}

		created = true
		break
	}
	if !created {
		return scan.CreateSessionResponse{}, scan.ErrCreateSession
	}

	scanURL := s.scanURL(session.LinkCode)
	deliveryStatus := s.deliverLink(c, requestID, designer, delivery, req.DeliveryTarget, scanURL, session.ExpiresAt)

	s.log.WithFields(logrus.Fields{
		"request_id":      requestID,
		"session_id":      session.ID,
		"designer_id":     designer.ID,
		"is_quick_scan":   session.IsQuickScan,
		"delivery_status": deliveryStatus,
	}).Info("Scan session created")

	return scan.CreateSessionResponse{
		ID:             session.ID,
		LinkCode:       session.LinkCode,
		ScanURL:        scanURL,
		ExpiresAt:      session.ExpiresAt,
		DeliveryStatus: deliveryStatus,
	}, nil
}

func (s *sessionDomainImpl) scanURL(linkCode string) string {
	base := os.Getenv("SCAN_BASE_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	return strings.TrimRight(base, "/") + "/scan/" + linkCode
}

// deliverLink sends the link over the chosen channel. Delivery is best
// effort: the session row already exists and stays valid either way.
func (s *sessionDomainImpl) deliverLink(c context.Context, requestID string, designer entity.DesignerClaims, delivery string, target string, scanURL string, expiresAt time.Time) string {
	switch delivery {
	case deliveryWhatsapp:
		if s.whatsappSender == nil || !s.whatsappSender.IsConnected() {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
			}).Warn("WhatsApp sender not connected, link not delivered")
			return deliveryStatusFailed
		}
		message := fmt.Sprintf(
			"Hi! %s invited you to a body scan. Open this link on your phone: %s. The link works once and expires at %s.",
			designer.Name, scanURL, expiresAt.Format("02 Jan 2006 15:04 MST"),
		)
		if err := s.whatsappSender.SendMessage(c, target, message); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Failed to deliver scan link over WhatsApp")
			return deliveryStatusFailed
		}
		return deliveryStatusSent
	case deliveryEmail:
		if err := s.smtpMailer.SendScanLink(target, designer.Name, scanURL, expiresAt); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Failed to deliver scan link over email")
			return deliveryStatusFailed
		}
		return deliveryStatusSent
	default:
		return deliveryStatusSkipped
	}
}

func (s *sessionDomainImpl) GetSession(c context.Context, designer entity.DesignerClaims, id string) (scan.SessionResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.SessionResponse{}, err
	}

	session, err := repo.Session.GetSessionByID(c, id)
	if err != nil {
		return scan.SessionResponse{}, err
	}

	if session.DesignerID != designer.ID {
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"session_id":  id,
			"designer_id": designer.ID,
		}).Warn("Designer requested session they do not own")
		return scan.SessionResponse{}, scan.ErrSessionNotOwned
	}

	now := time.Now()
	status := session.EffectiveStatus(now)
	if status != session.Status {
		if _, err := repo.Session.PersistExpiry(c, session.ID, now); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("Failed to persist lazy expiry")
		}
		session.Status = status
	}

	return scan.SessionResponse{Data: session}, nil
}

func (s *sessionDomainImpl) ListSessions(c context.Context, designer entity.DesignerClaims, filter scan.ListSessionsFilter) (scan.SessionListResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	if filter.Status != "" && !entity.IsValidScanStatus(filter.Status) {
		return scan.SessionListResponse{}, scan.ErrInvalidStatusFilter
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.SessionListResponse{}, err
	}

	var sessions []entity.ScanSession
	switch {
	case filter.ClientID != "":
		sessions, err = repo.Session.GetSessionsByClientID(c, designer.ID, filter.ClientID)
	case filter.GuestPhone != "":
		sessions, err = repo.Session.GetSessionsByGuestPhone(c, designer.ID, filter.GuestPhone)
	default:
		sessions, err = repo.Session.GetSessionsByDesignerID(c, designer.ID)
	}
	if err != nil {
		return scan.SessionListResponse{}, err
	}

	now := time.Now()
	result := make([]entity.ScanSession, 0, len(sessions))
	for _, session := range sessions {
		status := session.EffectiveStatus(now)
		if status != session.Status {
			if _, err := repo.Session.PersistExpiry(c, session.ID, now); err != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"session_id": session.ID,
					"error":      err.Error(),
				}).Warn("Failed to persist lazy expiry")
			}
			session.Status = status
		}

		if filter.Status != "" && session.Status.String() != filter.Status {
			continue
		}

		result = append(result, session)
	}

	return scan.SessionListResponse{
		Sessions: result,
		Total:    len(result),
	}, nil
}
