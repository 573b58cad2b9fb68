package scanService

import (
	"TailorScan/internal/api/scan"
	scanRepository "TailorScan/internal/api/scan/repository"
	"TailorScan/internal/entity"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeSessionStore mirrors the store's conditional-write contract in
// memory: terminal writes only land on a live row.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]entity.ScanSession

	completeAttempts int
	createErr        error

	// onComplete runs once before the next CompleteSession takes the lock,
	// to interleave a concurrent writer between read and write.
	onComplete func()
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]entity.ScanSession)}
}

func (f *fakeSessionStore) seed(session entity.ScanSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.LinkCode] = session
}

func (f *fakeSessionStore) get(linkCode string) (entity.ScanSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[linkCode]
	return session, ok
}

func (f *fakeSessionStore) CreateSession(c context.Context, session entity.ScanSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.sessions[session.LinkCode]; ok {
		return scan.ErrDuplicateLinkCode
	}
	f.sessions[session.LinkCode] = session
	return nil
}

func (f *fakeSessionStore) GetSessionByLinkCode(c context.Context, linkCode string) (entity.ScanSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[linkCode]
	if !ok {
		return entity.ScanSession{}, scan.ErrLinkNotFound
	}
	return session, nil
}

func (f *fakeSessionStore) GetSessionByID(c context.Context, id string) (entity.ScanSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return entity.ScanSession{}, scan.ErrSessionNotFound
}

func (f *fakeSessionStore) GetSessionsByDesignerID(c context.Context, designerID string) ([]entity.ScanSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []entity.ScanSession
	for _, session := range f.sessions {
		if session.DesignerID == designerID {
			result = append(result, session)
		}
	}
	return result, nil
}

func (f *fakeSessionStore) GetSessionsByClientID(c context.Context, designerID string, clientID string) ([]entity.ScanSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []entity.ScanSession
	for _, session := range f.sessions {
		if session.DesignerID == designerID && session.ClientID == clientID {
			result = append(result, session)
		}
	}
	return result, nil
}

func (f *fakeSessionStore) GetSessionsByGuestPhone(c context.Context, designerID string, guestPhone string) ([]entity.ScanSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []entity.ScanSession
	for _, session := range f.sessions {
		if session.DesignerID == designerID && session.GuestPhone == guestPhone {
			result = append(result, session)
		}
	}
	return result, nil
}

func (f *fakeSessionStore) MarkProcessing(c context.Context, linkCode string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[linkCode]
	if !ok || session.Status != entity.ScanStatusPending || !session.ExpiresAt.After(now) {
		return false, nil
	}
	session.Status = entity.ScanStatusProcessing
	f.sessions[linkCode] = session
	return true, nil
}

func (f *fakeSessionStore) CompleteSession(c context.Context, session entity.ScanSession) error {
	if f.onComplete != nil {
		hook := f.onComplete
		f.onComplete = nil
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeAttempts++

	stored, ok := f.sessions[session.LinkCode]
	if !ok {
		return scan.ErrSessionNotWritable
	}
	if stored.Status != entity.ScanStatusPending && stored.Status != entity.ScanStatusProcessing {
		return scan.ErrSessionNotWritable
	}
	if !stored.ExpiresAt.After(session.CompletedAt) {
		return scan.ErrSessionNotWritable
	}

	stored.Status = entity.ScanStatusCompleted
	stored.HeightCm = session.HeightCm
	stored.Gender = session.Gender
	stored.Measurements = session.Measurements
	stored.Confidence = session.Confidence
	stored.Provenance = session.Provenance
	stored.AcceptedAnyway = session.AcceptedAnyway
	stored.GuestName = session.GuestName
	stored.GuestPhone = session.GuestPhone
	stored.GuestGender = session.GuestGender
	stored.CompletedAt = session.CompletedAt
	f.sessions[session.LinkCode] = stored
	return nil
}

func (f *fakeSessionStore) FailSession(c context.Context, linkCode string, reason string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.sessions[linkCode]
	if !ok {
		return scan.ErrSessionNotWritable
	}
	if stored.Status != entity.ScanStatusPending && stored.Status != entity.ScanStatusProcessing {
		return scan.ErrSessionNotWritable
	}
	if !stored.ExpiresAt.After(now) {
		return scan.ErrSessionNotWritable
	}

	stored.Status = entity.ScanStatusFailed
	stored.FailureReason = reason
	stored.CompletedAt = now
	f.sessions[linkCode] = stored
	return nil
}

func (f *fakeSessionStore) PersistExpiry(c context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for linkCode, session := range f.sessions {
		if session.ID != id {
			continue
		}
		if session.Status != entity.ScanStatusPending && session.Status != entity.ScanStatusProcessing {
			return false, nil
		}
		if session.ExpiresAt.After(now) {
			return false, nil
		}
		session.Status = entity.ScanStatusExpired
		f.sessions[linkCode] = session
		return true, nil
	}
	return false, nil
}

func purgeable(session entity.ScanSession, cutoff, now time.Time) bool {
	if !session.CreatedAt.Before(cutoff) {
		return false
	}
	return session.Status.IsTerminal() || !session.ExpiresAt.After(now)
}

func (f *fakeSessionStore) GetPurgeableSessions(c context.Context, cutoff time.Time, now time.Time) ([]entity.ScanSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []entity.ScanSession
	for _, session := range f.sessions {
		if purgeable(session, cutoff, now) {
			result = append(result, session)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeSessionStore) DeletePurgeableSessions(c context.Context, cutoff time.Time, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for linkCode, session := range f.sessions {
		if purgeable(session, cutoff, now) {
			delete(f.sessions, linkCode)
			deleted++
		}
	}
	return deleted, nil
}

type fakeRepository struct {
	store     *fakeSessionStore
	clientErr error
}

func (f *fakeRepository) NewClient(tx bool) (scanRepository.Client, error) {
	if f.clientErr != nil {
		return scanRepository.Client{}, f.clientErr
	}
	return scanRepository.Client{
		Session:  f.store,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type fakeRedis struct {
	mu       sync.Mutex
	claims   map[string]string
	claimErr error
	released []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{claims: make(map[string]string)}
}

func (f *fakeRedis) ClaimProcessing(ctx context.Context, linkCode string, deviceRef string, expiration time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	if _, ok := f.claims[linkCode]; ok {
		return false, nil
	}
	f.claims[linkCode] = deviceRef
	return true, nil
}

func (f *fakeRedis) GetProcessingOwner(ctx context.Context, linkCode string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claims[linkCode], nil
}

func (f *fakeRedis) ReleaseProcessing(ctx context.Context, linkCode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, linkCode)
	f.released = append(f.released, linkCode)
	return nil
}

type publishedMessage struct {
	exchange string
	body     []byte
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (f *fakePublisher) Publish(exchange string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{exchange: exchange, body: body})
	return nil
}

func (f *fakePublisher) Close() {}

type sentMessage struct {
	target  string
	message string
}

type fakeWhatsapp struct {
	mu        sync.Mutex
	connected bool
	sendErr   error
	sent      []sentMessage
}

func (f *fakeWhatsapp) SendMessage(ctx context.Context, phoneNumber, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{target: phoneNumber, message: message})
	return nil
}

func (f *fakeWhatsapp) Disconnect() error { return nil }

func (f *fakeWhatsapp) IsConnected() bool { return f.connected }

type fakeSmtp struct {
	mu      sync.Mutex
	sendErr error
	sent    []sentMessage
}

func (f *fakeSmtp) SendScanLink(email string, designerName string, link string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{target: email, message: link})
	return nil
}

type fakeS3 struct {
	mu        sync.Mutex
	uploadErr error
	uploads   map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{uploads: make(map[string][]byte)}
}

func (f *fakeS3) UploadArchive(key string, body []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads[key] = body
	return "https://archives.test/" + key, nil
}

func (f *fakeS3) PresignUrl(key string) (string, error) {
	return "https://archives.test/" + key + "?presigned", nil
}

func (f *fakeS3) DeleteArchive(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, key)
	return nil
}

type fakeUtils struct {
	mu        sync.Mutex
	idCounter int
	codes     []string
	codeIndex int
}

func (f *fakeUtils) NewULIDFromTimestamp(t time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idCounter++
	return fmt.Sprintf("session-%03d", f.idCounter), nil
}

func (f *fakeUtils) NewLinkCode() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codeIndex < len(f.codes) {
		code := f.codes[f.codeIndex]
		f.codeIndex++
		return code, nil
	}
	f.codeIndex++
	return fmt.Sprintf("linkcode%024d", f.codeIndex), nil
}
