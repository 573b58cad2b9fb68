package scanService

import (
	"TailorScan/internal/api/scan"
	scanRepository "TailorScan/internal/api/scan/repository"
	"TailorScan/internal/entity"
	"TailorScan/pkg/rabbitmq"
	"TailorScan/pkg/redis"
	"TailorScan/pkg/s3"
	"TailorScan/pkg/smtp"
	"TailorScan/pkg/utils"
	"TailorScan/pkg/whatsapp"
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type ScanService interface {
	Subject() SubjectDomain
	Session() SessionDomain
	Watch() WatchDomain
	Retention() RetentionDomain
	GetRepository() scanRepository.Repository
}

// SubjectDomain is the unauthenticated device-side flow, addressed only by
// link code.
type SubjectDomain interface {
	GetSessionInfo(c context.Context, linkCode string) (scan.SessionInfoResponse, error)
	StartScan(c context.Context, linkCode string, req scan.StartScanRequest) (scan.StartScanResponse, error)
	SubmitMeasurements(c context.Context, linkCode string, req scan.SubmitMeasurementsRequest) (scan.SubmitScanResponse, error)
	FailScan(c context.Context, linkCode string, req scan.FailScanRequest) (scan.FailScanResponse, error)
}

// SessionDomain is the designer-side dashboard flow.
type SessionDomain interface {
	CreateSession(c context.Context, designer entity.DesignerClaims, req scan.CreateSessionRequest) (scan.CreateSessionResponse, error)
	GetSession(c context.Context, designer entity.DesignerClaims, id string) (scan.SessionResponse, error)
	ListSessions(c context.Context, designer entity.DesignerClaims, filter scan.ListSessionsFilter) (scan.SessionListResponse, error)
}

// WatchDomain fans session status events out to dashboard subscribers.
type WatchDomain interface {
	Subscribe(sessionID string) (<-chan scan.SessionEvent, func())
	Publish(evt scan.SessionEvent)
	Snapshot(c context.Context, sessionID string) (scan.SessionEvent, error)
}

type RetentionDomain interface {
	Run(c context.Context) (scan.RetentionRunResponse, error)
}

type scanService struct {
	log            *logrus.Logger
	scanRepository scanRepository.Repository
	redisServer    redis.IRedis
	whatsappSender whatsapp.IWhatsappSender
	smtpMailer     smtp.ItfSmtp
	s3Client       s3.ItfS3
	publisher      rabbitmq.IPublisher
	utils          utils.IUtils

	subjectDomain   SubjectDomain
	sessionDomain   SessionDomain
	watchDomain     WatchDomain
	retentionDomain RetentionDomain
}

func (s *scanService) Subject() SubjectDomain {
	return s.subjectDomain
}

func (s *scanService) Session() SessionDomain {
	return s.sessionDomain
}

func (s *scanService) Watch() WatchDomain {
	return s.watchDomain
}

func (s *scanService) Retention() RetentionDomain {
	return s.retentionDomain
}

func (s *scanService) GetRepository() scanRepository.Repository {
	return s.scanRepository
}

type subjectDomainImpl struct {
	log         *logrus.Logger
	repo        scanRepository.Repository
	redisServer redis.IRedis
	publisher   rabbitmq.IPublisher
	watch       WatchDomain
}

type sessionDomainImpl struct {
	log            *logrus.Logger
	repo           scanRepository.Repository
	whatsappSender whatsapp.IWhatsappSender
	smtpMailer     smtp.ItfSmtp
	utils          utils.IUtils
}

type watchDomainImpl struct {
	log  *logrus.Logger
	repo scanRepository.Repository

	mu       sync.RWMutex
	watchers map[string]map[chan scan.SessionEvent]struct{}
}

type retentionDomainImpl struct {
	log      *logrus.Logger
	repo     scanRepository.Repository
	s3Client s3.ItfS3
}

func New(log *logrus.Logger,
	scanRepo scanRepository.Repository,
	redisServer redis.IRedis,
	whatsappSender whatsapp.IWhatsappSender,
	smtpMailer smtp.ItfSmtp,
	s3Client s3.ItfS3,
	publisher rabbitmq.IPublisher,
	utils utils.IUtils,
) ScanService {
	watchDomain := &watchDomainImpl{log: log, repo: scanRepo, watchers: make(map[string]map[chan scan.SessionEvent]struct{})}

	return &scanService{
		log:            log,
		scanRepository: scanRepo,
		redisServer:    redisServer,
		whatsappSender: whatsappSender,
		smtpMailer:     smtpMailer,
		s3Client:       s3Client,
		publisher:      publisher,
		utils:          utils,

		subjectDomain:   &subjectDomainImpl{log: log, repo: scanRepo, redisServer: redisServer, publisher: publisher, watch: watchDomain},
		sessionDomain:   &sessionDomainImpl{log: log, repo: scanRepo, whatsappSender: whatsappSender, smtpMailer: smtpMailer, utils: utils},
		watchDomain:     watchDomain,
		retentionDomain: &retentionDomainImpl{log: log, repo: scanRepo, s3Client: s3Client},
	}
}
