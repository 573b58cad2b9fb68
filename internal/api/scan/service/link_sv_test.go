package scanService

import (
	"TailorScan/internal/api/scan"
	"TailorScan/internal/entity"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newSessionDomain(store *fakeSessionStore) (*sessionDomainImpl, *fakeWhatsapp, *fakeSmtp, *fakeUtils) {
	log := testLogger()
	wa := &fakeWhatsapp{}
	mailer := &fakeSmtp{}
	u := &fakeUtils{}
	domain := &sessionDomainImpl{
		log:            log,
		repo:           &fakeRepository{store: store},
		whatsappSender: wa,
		smtpMailer:     mailer,
		utils:          u,
	}
	return domain, wa, mailer, u
}

func testDesigner() entity.DesignerClaims {
	return entity.DesignerClaims{
		ID:           "designer-1",
		Name:         "Ayu Lestari",
		BusinessName: "Atelier Ayu",
		Email:        "ayu@atelier.test",
	}
}

func clientRequest() scan.CreateSessionRequest {
	return scan.CreateSessionRequest{
		ClientID:     "client-1",
		ClientName:   "Budi",
		ClientGender: "male",
	}
}

func TestCreateSession(t *testing.T) {
	t.Setenv("SCAN_BASE_URL", "https://scan.example.test")

	store := newFakeSessionStore()
	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.CreateSession(context.Background(), testDesigner(), clientRequest())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if res.ID == "" || res.LinkCode == "" {
		t.Fatalf("expected id and link code, got %+v", res)
	}
	if res.ScanURL != "https://scan.example.test/scan/"+res.LinkCode {
		t.Fatalf("unexpected scan url %q", res.ScanURL)
	}
	if res.DeliveryStatus != "skipped" {
		t.Fatalf("no delivery requested, expected skipped, got %q", res.DeliveryStatus)
	}
	if ttl := time.Until(res.ExpiresAt); ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Fatalf("expected default 24h ttl, got %v", ttl)
	}

	stored, ok := store.get(res.LinkCode)
	if !ok {
		t.Fatal("expected session stored under its link code")
	}
	if stored.Status != entity.ScanStatusPending {
		t.Fatalf("expected pending, got %q", stored.Status)
	}
	if stored.DesignerID != "designer-1" || stored.DesignerName != "Ayu Lestari" || stored.BusinessName != "Atelier Ayu" {
		t.Fatalf("expected denormalized designer fields, got %+v", stored)
	}
	if stored.ClientID != "client-1" || stored.ClientName != "Budi" || stored.ClientGender != "male" {
		t.Fatalf("expected client binding, got %+v", stored)
	}
	if stored.IsQuickScan {
		t.Fatal("client-bound session must not be a quick scan")
	}
}

func TestCreateSessionCustomTTL(t *testing.T) {
	store := newFakeSessionStore()
	domain, _, _, _ := newSessionDomain(store)

	req := clientRequest()
	req.TTLHours = 48

	res, err := domain.CreateSession(context.Background(), testDesigner(), req)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if ttl := time.Until(res.ExpiresAt); ttl < 47*time.Hour || ttl > 49*time.Hour {
		t.Fatalf("expected 48h ttl, got %v", ttl)
	}
}

func TestCreateSessionMissingClientIdentity(t *testing.T) {
	store := newFakeSessionStore()
	domain, _, _, _ := newSessionDomain(store)

	_, err := domain.CreateSession(context.Background(), testDesigner(), scan.CreateSessionRequest{ClientID: "client-1"})
	if !errors.Is(err, scan.ErrClientIdentityRequired) {
		t.Fatalf("expected ErrClientIdentityRequired, got %v", err)
	}
}

func TestCreateQuickScan(t *testing.T) {
	store := newFakeSessionStore()
	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.CreateSession(context.Background(), testDesigner(), scan.CreateSessionRequest{QuickScan: true})
	if err != nil {
		t.Fatalf("quick scan needs no client binding: %v", err)
	}

	stored, _ := store.get(res.LinkCode)
	if !stored.IsQuickScan {
		t.Fatal("expected quick scan flag stored")
	}
	if stored.ClientID != "" || stored.ClientName != "" {
		t.Fatalf("quick scan must not carry client fields, got %+v", stored)
	}
}

func TestCreateSessionInvalidDelivery(t *testing.T) {
	tests := []struct {
		name     string
		delivery string
		target   string
	}{
		{name: "unknown channel", delivery: "pigeon", target: "somewhere"},
		{name: "whatsapp without target", delivery: "whatsapp"},
		{name: "email without target", delivery: "email"},
		{name: "email target without at sign", delivery: "email", target: "not-an-address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSessionStore()
			domain, _, _, _ := newSessionDomain(store)

			req := clientRequest()
			req.Delivery = tt.delivery
			req.DeliveryTarget = tt.target

			_, err := domain.CreateSession(context.Background(), testDesigner(), req)
			if !errors.Is(err, scan.ErrInvalidDelivery) {
				t.Fatalf("expected ErrInvalidDelivery, got %v", err)
			}
		})
	}
}

func TestCreateSessionWhatsappDelivery(t *testing.T) {
	store := newFakeSessionStore()
	domain, wa, _, _ := newSessionDomain(store)
	wa.connected = true

	req := clientRequest()
	req.Delivery = "whatsapp"
	req.DeliveryTarget = "+628123456789"

	res, err := domain.CreateSession(context.Background(), testDesigner(), req)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if res.DeliveryStatus != "sent" {
		t.Fatalf("expected sent, got %q", res.DeliveryStatus)
	}

	if len(wa.sent) != 1 {
		t.Fatalf("expected one whatsapp message, got %d", len(wa.sent))
	}
	if wa.sent[0].target != "+628123456789" {
		t.Fatalf("unexpected target %q", wa.sent[0].target)
	}
	if !strings.Contains(wa.sent[0].message, res.ScanURL) {
		t.Fatalf("message must carry the scan link, got %q", wa.sent[0].message)
	}
	if !strings.Contains(wa.sent[0].message, "Ayu Lestari") {
		t.Fatalf("message must name the designer, got %q", wa.sent[0].message)
	}
}

func TestCreateSessionWhatsappDisconnected(t *testing.T) {
	store := newFakeSessionStore()
	domain, wa, _, _ := newSessionDomain(store)
	wa.connected = false

	req := clientRequest()
	req.Delivery = "whatsapp"
	req.DeliveryTarget = "+628123456789"

	res, err := domain.CreateSession(context.Background(), testDesigner(), req)
	if err != nil {
		t.Fatalf("delivery failure must not fail creation: %v", err)
	}
	if res.DeliveryStatus != "failed" {
		t.Fatalf("expected failed, got %q", res.DeliveryStatus)
	}

	if _, ok := store.get(res.LinkCode); !ok {
		t.Fatal("session must exist even when delivery failed")
	}
}

func TestCreateSessionEmailDelivery(t *testing.T) {
	store := newFakeSessionStore()
	domain, _, mailer, _ := newSessionDomain(store)

	req := clientRequest()
	req.Delivery = "email"
	req.DeliveryTarget = "budi@example.com"

	res, err := domain.CreateSession(context.Background(), testDesigner(), req)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if res.DeliveryStatus != "sent" {
		t.Fatalf("expected sent, got %q", res.DeliveryStatus)
	}

	if len(mailer.sent) != 1 || mailer.sent[0].target != "budi@example.com" {
		t.Fatalf("expected one mail to budi@example.com, got %v", mailer.sent)
	}
	if mailer.sent[0].message != res.ScanURL {
		t.Fatalf("expected scan link in mail, got %q", mailer.sent[0].message)
	}
}

func TestCreateSessionEmailFailureStillCreates(t *testing.T) {
	store := newFakeSessionStore()
	domain, _, mailer, _ := newSessionDomain(store)
	mailer.sendErr = errors.New("smtp refused")

	req := clientRequest()
	req.Delivery = "email"
	req.DeliveryTarget = "budi@example.com"

	res, err := domain.CreateSession(context.Background(), testDesigner(), req)
	if err != nil {
		t.Fatalf("delivery failure must not fail creation: %v", err)
	}
	if res.DeliveryStatus != "failed" {
		t.Fatalf("expected failed, got %q", res.DeliveryStatus)
	}
	if _, ok := store.get(res.LinkCode); !ok {
		t.Fatal("session must exist even when delivery failed")
	}
}

func TestCreateSessionLinkCodeCollision(t *testing.T) {
	store := newFakeSessionStore()
	store.seed(entity.ScanSession{ID: "sess-existing", LinkCode: "dup", Status: entity.ScanStatusPending})
	domain, _, _, u := newSessionDomain(store)
	u.codes = []string{"dup", "fresh"}

	res, err := domain.CreateSession(context.Background(), testDesigner(), clientRequest())
	if err != nil {
		t.Fatalf("collision should be retried: %v", err)
	}
	if res.LinkCode != "fresh" {
		t.Fatalf("expected regenerated code, got %q", res.LinkCode)
	}
}

func TestCreateSessionCollisionExhausted(t *testing.T) {
	store := newFakeSessionStore()
	store.seed(entity.ScanSession{ID: "sess-existing", LinkCode: "dup", Status: entity.ScanStatusPending})
	domain, _, _, u := newSessionDomain(store)
	u.codes = []string{"dup", "dup", "dup"}

	_, err := domain.CreateSession(context.Background(), testDesigner(), clientRequest())
	if !errors.Is(err, scan.ErrCreateSession) {
		t.Fatalf("expected ErrCreateSession after exhausted retries, got %v", err)
	}
}

func TestGetSession(t *testing.T) {
	store := newFakeSessionStore()
	session := pendingSession("abc")
	store.seed(session)
	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.GetSession(context.Background(), testDesigner(), session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if res.Data.ID != session.ID || res.Data.LinkCode != "abc" {
		t.Fatalf("unexpected session %+v", res.Data)
	}
}

func TestGetSessionNotOwned(t *testing.T) {
	store := newFakeSessionStore()
	session := pendingSession("abc")
	store.seed(session)
	domain, _, _, _ := newSessionDomain(store)

	other := testDesigner()
	other.ID = "designer-2"

	_, err := domain.GetSession(context.Background(), other, session.ID)
	if !errors.Is(err, scan.ErrSessionNotOwned) {
		t.Fatalf("expected ErrSessionNotOwned, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := newFakeSessionStore()
	domain, _, _, _ := newSessionDomain(store)

	_, err := domain.GetSession(context.Background(), testDesigner(), "missing")
	if !errors.Is(err, scan.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetSessionLazyExpiry(t *testing.T) {
	store := newFakeSessionStore()
	session := pendingSession("old")
	session.ExpiresAt = time.Now().Add(-time.Minute)
	store.seed(session)
	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.GetSession(context.Background(), testDesigner(), session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if res.Data.Status != entity.ScanStatusExpired {
		t.Fatalf("expected expired in response, got %q", res.Data.Status)
	}

	stored, _ := store.get("old")
	if stored.Status != entity.ScanStatusExpired {
		t.Fatalf("expected persisted expired, got %q", stored.Status)
	}
}

func TestListSessions(t *testing.T) {
	store := newFakeSessionStore()

	live := pendingSession("live")
	store.seed(live)

	done := pendingSession("done")
	done.Status = entity.ScanStatusCompleted
	done.ClientID = "client-2"
	store.seed(done)

	stale := pendingSession("stale")
	stale.ExpiresAt = time.Now().Add(-time.Hour)
	store.seed(stale)

	foreign := pendingSession("foreign")
	foreign.DesignerID = "designer-2"
	store.seed(foreign)

	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.ListSessions(context.Background(), testDesigner(), scan.ListSessionsFilter{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("expected 3 own sessions, got %d", res.Total)
	}

	byCode := make(map[string]entity.ScanSession, len(res.Sessions))
	for _, s := range res.Sessions {
		byCode[s.LinkCode] = s
	}
	if _, ok := byCode["foreign"]; ok {
		t.Fatal("must not list another designer's sessions")
	}
	if byCode["stale"].Status != entity.ScanStatusExpired {
		t.Fatalf("expected stale session reported expired, got %q", byCode["stale"].Status)
	}

	stored, _ := store.get("stale")
	if stored.Status != entity.ScanStatusExpired {
		t.Fatalf("expected lazy expiry persisted during list, got %q", stored.Status)
	}
}

func TestListSessionsStatusFilter(t *testing.T) {
	store := newFakeSessionStore()
	store.seed(pendingSession("live"))

	done := pendingSession("done")
	done.Status = entity.ScanStatusCompleted
	store.seed(done)

	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.ListSessions(context.Background(), testDesigner(), scan.ListSessionsFilter{Status: "completed"})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if res.Total != 1 || res.Sessions[0].LinkCode != "done" {
		t.Fatalf("expected only the completed session, got %+v", res.Sessions)
	}
}

func TestListSessionsClientFilter(t *testing.T) {
	store := newFakeSessionStore()
	store.seed(pendingSession("one"))

	other := pendingSession("two")
	other.ClientID = "client-2"
	store.seed(other)

	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.ListSessions(context.Background(), testDesigner(), scan.ListSessionsFilter{ClientID: "client-2"})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if res.Total != 1 || res.Sessions[0].LinkCode != "two" {
		t.Fatalf("expected only client-2 sessions, got %+v", res.Sessions)
	}
}

func TestListSessionsGuestPhoneFilter(t *testing.T) {
	store := newFakeSessionStore()
	store.seed(pendingSession("one"))

	guest := pendingSession("qk")
	guest.ClientID = ""
	guest.ClientName = ""
	guest.ClientGender = ""
	guest.IsQuickScan = true
	guest.GuestPhone = "+628123456789"
	store.seed(guest)

	domain, _, _, _ := newSessionDomain(store)

	res, err := domain.ListSessions(context.Background(), testDesigner(), scan.ListSessionsFilter{GuestPhone: "+628123456789"})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if res.Total != 1 || res.Sessions[0].LinkCode != "qk" {
		t.Fatalf("expected only the guest session, got %+v", res.Sessions)
	}
}

func TestListSessionsInvalidStatusFilter(t *testing.T) {
	store := newFakeSessionStore()
	domain, _, _, _ := newSessionDomain(store)

	_, err := domain.ListSessions(context.Background(), testDesigner(), scan.ListSessionsFilter{Status: "archived"})
	if !errors.Is(err, scan.ErrInvalidStatusFilter) {
		t.Fatalf("expected ErrInvalidStatusFilter, got %v", err)
	}
}
