package scanRepository

import (
	"TailorScan/internal/api/scan"
	"TailorScan/internal/entity"
	contextPkg "TailorScan/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type ScanSessionDB struct {
	ID             sql.NullString        `db:"id"`
	DesignerID     sql.NullString        `db:"designer_id"`
	DesignerName   sql.NullString        `db:"designer_name"`
	BusinessName   sql.NullString        `db:"business_name"`
	ClientID       sql.NullString        `db:"client_id"`
	ClientName     sql.NullString        `db:"client_name"`
	ClientGender   sql.NullString        `db:"client_gender"`
	GuestName      sql.NullString        `db:"guest_name"`
	GuestPhone     sql.NullString        `db:"guest_phone"`
	GuestGender    sql.NullString        `db:"guest_gender"`
	LinkCode       sql.NullString        `db:"link_code"`
	Status         sql.NullString        `db:"status"`
	IsQuickScan    bool                  `db:"is_quick_scan"`
	HeightCm       sql.NullFloat64       `db:"height_cm"`
	Gender         sql.NullString        `db:"gender"`
	Measurements   entity.MeasurementMap `db:"measurements"`
	Confidence     sql.NullFloat64       `db:"confidence"`
	Provenance     entity.ProvenanceMap  `db:"provenance"`
	AcceptedAnyway bool                  `db:"accepted_anyway"`
	FailureReason  sql.NullString        `db:"failure_reason"`
	CreatedAt      time.Time             `db:"created_at"`
	ExpiresAt      time.Time             `db:"expires_at"`
	CompletedAt    sql.NullTime          `db:"completed_at"`
}

func (r *sessionRepository) makeScanSession(db ScanSessionDB) entity.ScanSession {
	session := entity.ScanSession{
		ID:             db.ID.String,
		DesignerID:     db.DesignerID.String,
		DesignerName:   db.DesignerName.String,
		BusinessName:   db.BusinessName.String,
		ClientID:       db.ClientID.String,
		ClientName:     db.ClientName.String,
		ClientGender:   db.ClientGender.String,
		GuestName:      db.GuestName.String,
		GuestPhone:     db.GuestPhone.String,
		GuestGender:    db.GuestGender.String,
		LinkCode:       db.LinkCode.String,
		Status:         entity.ScanStatus(db.Status.String),
		IsQuickScan:    db.IsQuickScan,
		HeightCm:       db.HeightCm.Float64,
		Gender:         db.Gender.String,
		Measurements:   db.Measurements,
		Confidence:     db.Confidence.Float64,
		Provenance:     db.Provenance,
		AcceptedAnyway: db.AcceptedAnyway,
		FailureReason:  db.FailureReason.String,
		CreatedAt:      db.CreatedAt,
		ExpiresAt:      db.ExpiresAt,
	}

	if db.CompletedAt.Valid {
		session.CompletedAt = db.CompletedAt.Time
	}

	return session
}

// nullableTime keeps unset timestamps as NULL instead of the zero time.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func (r *sessionRepository) CreateSession(c context.Context, session entity.ScanSession) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":              session.ID,
		"designer_id":     session.DesignerID,
		"designer_name":   session.DesignerName,
		"business_name":   session.BusinessName,
		"client_id":       session.ClientID,
		"client_name":     session.ClientName,
		"client_gender":   session.ClientGender,
		"guest_name":      session.GuestName,
		"guest_phone":     session.GuestPhone,
		"guest_gender":    session.GuestGender,
		"link_code":       session.LinkCode,
		"status":          session.Status.String(),
		"is_quick_scan":   session.IsQuickScan,
		"height_cm":       session.HeightCm,
		"gender":          session.Gender,
		"measurements":    session.Measurements,
		"confidence":      session.Confidence,
		"provenance":      session.Provenance,
		"accepted_anyway": session.AcceptedAnyway,
		"failure_reason":  session.FailureReason,
		"created_at":      session.CreatedAt,
		"expires_at":      session.ExpiresAt,
		"completed_at":    nullableTime(session.CompletedAt),
	}

	query, args, err := sqlx.Named(queryCreateSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateSession")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"link_code":  session.LinkCode,
			}).Warn("CreateSession link code collision")
			return scan.ErrDuplicateLinkCode
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating scan session")

		return err
	}

	return nil
}

func (r *sessionRepository) GetSessionByLinkCode(c context.Context, linkCode string) (entity.ScanSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var session ScanSessionDB

	argsKV := map[string]interface{}{
		"link_code": linkCode,
	}

	query, args, err := sqlx.Named(queryGetSessionByLinkCode, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByLinkCode named query preparation err")
		return entity.ScanSession{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
			}).Warn("GetSessionByLinkCode no rows found")
			return entity.ScanSession{}, scan.ErrLinkNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByLinkCode execution err")
		return entity.ScanSession{}, err
	}

	return r.makeScanSession(session), nil
}

func (r *sessionRepository) GetSessionByID(c context.Context, id string) (entity.ScanSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var session ScanSessionDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetSessionByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByID named query preparation err")
		return entity.ScanSession{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("GetSessionByID no rows found")
			return entity.ScanSession{}, scan.ErrSessionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByID execution err")
		return entity.ScanSession{}, err
	}

	return r.makeScanSession(session), nil
}

func (r *sessionRepository) GetSessionsByDesignerID(c context.Context, designerID string) ([]entity.ScanSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var sessions []ScanSessionDB

	argsKV := map[string]interface{}{
		"designer_id": designerID,
	}

	query, args, err := sqlx.Named(queryGetSessionsByDesignerID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByDesignerID named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &sessions, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByDesignerID execution err")
		return nil, err
	}

	result := make([]entity.ScanSession, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, r.makeScanSession(s))
	}

	return result, nil
}

func (r *sessionRepository) GetSessionsByClientID(c context.Context, designerID string, clientID string) ([]entity.ScanSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var sessions []ScanSessionDB

	argsKV := map[string]interface{}{
		"designer_id": designerID,
		"client_id":   clientID,
	}

	query, args, err := sqlx.Named(queryGetSessionsByClientID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByClientID named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &sessions, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByClientID execution err")
		return nil, err
	}

	result := make([]entity.ScanSession, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, r.makeScanSession(s))
	}

	return result, nil
}

func (r *sessionRepository) GetSessionsByGuestPhone(c context.Context, designerID string, guestPhone string) ([]entity.ScanSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var sessions []ScanSessionDB

	argsKV := map[string]interface{}{
		"designer_id": designerID,
		"guest_phone": guestPhone,
	}

	query, args, err := sqlx.Named(queryGetSessionsByGuestPhone, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByGuestPhone named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &sessions, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionsByGuestPhone execution err")
		return nil, err
	}

	result := make([]entity.ScanSession, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, r.makeScanSession(s))
	}

	return result, nil
}

// MarkProcessing moves a pending session to processing. Zero rows is not an
// error: the session may already be processing on another attempt, or gone.
func (r *sessionRepository) MarkProcessing(c context.Context, linkCode string, now time.Time) (bool, error) {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"link_code": linkCode,
		"now":       now,
	}

	query, args, err := sqlx.Named(queryMarkProcessing, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("MarkProcessing named query preparation err")
		return false, err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("MarkProcessing execution err")
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// CompleteSession is the single-completion write. The WHERE clause only
// matches a live session, so exactly one concurrent submit can win; losers
// get ErrSessionNotWritable and the caller re-reads to find out why.
func (r *sessionRepository) CompleteSession(c context.Context, session entity.ScanSession) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"link_code":       session.LinkCode,
		"height_cm":       session.HeightCm,
		"gender":          session.Gender,
		"measurements":    session.Measurements,
		"confidence":      session.Confidence,
		"provenance":      session.Provenance,
		"accepted_anyway": session.AcceptedAnyway,
		"guest_name":      session.GuestName,
		"guest_phone":     session.GuestPhone,
		"guest_gender":    session.GuestGender,
		"completed_at":    session.CompletedAt,
	}

	query, args, err := sqlx.Named(queryCompleteSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CompleteSession named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CompleteSession execution err")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"link_code":  session.LinkCode,
		}).Warn("CompleteSession matched no writable session")
		return scan.ErrSessionNotWritable
	}

	return nil
}

func (r *sessionRepository) FailSession(c context.Context, linkCode string, reason string, now time.Time) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"link_code":      linkCode,
		"failure_reason": reason,
		"completed_at":   now,
	}

	query, args, err := sqlx.Named(queryFailSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("FailSession named query preparation err")
		return err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("FailSession execution err")
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"link_code":  linkCode,
		}).Warn("FailSession matched no writable session")
		return scan.ErrSessionNotWritable
	}

	return nil
}

// PersistExpiry stores the expired status a read already reported. The
// status filter keeps it from ever downgrading a completed or failed row.
func (r *sessionRepository) PersistExpiry(c context.Context, id string, now time.Time) (bool, error) {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":  id,
		"now": now,
	}

	query, args, err := sqlx.Named(queryPersistExpiry, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("PersistExpiry named query preparation err")
		return false, err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("PersistExpiry execution err")
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// GetPurgeableSessions returns sessions older than the retention cutoff
// whose stored or effective status is terminal. Rows that are merely old
// but still writable stay out of the sweep.
func (r *sessionRepository) GetPurgeableSessions(c context.Context, cutoff time.Time, now time.Time) ([]entity.ScanSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var sessions []ScanSessionDB

	argsKV := map[string]interface{}{
		"cutoff": cutoff,
		"now":    now,
	}

	query, args, err := sqlx.Named(queryGetPurgeableSessions, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetPurgeableSessions named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &sessions, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetPurgeableSessions execution err")
		return nil, err
	}

	result := make([]entity.ScanSession, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, r.makeScanSession(s))
	}

	return result, nil
}

// DeletePurgeableSessions removes the rows GetPurgeableSessions matched.
// Both run with the same cutoff and now so the sets line up.
func (r *sessionRepository) DeletePurgeableSessions(c context.Context, cutoff time.Time, now time.Time) (int64, error) {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"cutoff": cutoff,
		"now":    now,
	}

	query, args, err := sqlx.Named(queryDeletePurgeableSessions, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeletePurgeableSessions named query preparation err")
		return 0, err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeletePurgeableSessions execution err")
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return affected, nil
}
