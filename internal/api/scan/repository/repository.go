package scanRepository

import (
	"TailorScan/internal/entity"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		var err error
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Session:  &sessionRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Session interface {
		CreateSession(c context.Context, session entity.ScanSession) error
		GetSessionByLinkCode(c context.Context, linkCode string) (entity.ScanSession, error)
		GetSessionByID(c context.Context, id string) (entity.ScanSession, error)
		GetSessionsByDesignerID(c context.Context, designerID string) ([]entity.ScanSession, error)
		GetSessionsByClientID(c context.Context, designerID string, clientID string) ([]entity.ScanSession, error)
		GetSessionsByGuestPhone(c context.Context, designerID string, guestPhone string) ([]entity.ScanSession, error)
		MarkProcessing(c context.Context, linkCode string, now time.Time) (bool, error)
		CompleteSession(c context.Context, session entity.ScanSession) error
		FailSession(c context.Context, linkCode string, reason string, now time.Time) error
		PersistExpiry(c context.Context, id string, now time.Time) (bool, error)
		GetPurgeableSessions(c context.Context, cutoff time.Time, now time.Time) ([]entity.ScanSession, error)
		DeletePurgeableSessions(c context.Context, cutoff time.Time, now time.Time) (int64, error)
	}

	Commit   func() error
	Rollback func() error
}

type sessionRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
