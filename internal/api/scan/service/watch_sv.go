package scanService

import (
	"TailorScan/internal/api/scan"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const watchBuffer = 8

// Subscribe registers a watcher for one session's events. The returned
// cancel func is safe to call more than once; the channel is closed on the
// first call.
func (w *watchDomainImpl) Subscribe(sessionID string) (<-chan scan.SessionEvent, func()) {
	ch := make(chan scan.SessionEvent, watchBuffer)

	w.mu.Lock()
	subs, ok := w.watchers[sessionID]
	if !ok {
		subs = make(map[chan scan.SessionEvent]struct{})
		w.watchers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		subs, ok := w.watchers[sessionID]
		if !ok {
			return
		}
		if _, member := subs[ch]; !member {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(w.watchers, sessionID)
		}
	}

	return ch, cancel
}

// Snapshot reads the current state of a session as an event, so a fresh
// subscriber can render before the next transition arrives.
func (w *watchDomainImpl) Snapshot(c context.Context, sessionID string) (scan.SessionEvent, error) {
	repo, err := w.repo.NewClient(false)
	if err != nil {
		return scan.SessionEvent{}, err
	}

	session, err := repo.Session.GetSessionByID(c, sessionID)
	if err != nil {
		return scan.SessionEvent{}, err
	}

	now := time.Now()
	return scan.SessionEvent{
		SessionID:  session.ID,
		LinkCode:   session.LinkCode,
		Status:     session.EffectiveStatus(now).String(),
		Confidence: session.Confidence,
		OccurredAt: now,
	}, nil
}

// Publish delivers an event to every watcher of the session. A watcher that
// cannot keep up misses the event; the dashboard re-reads on reconnect.
func (w *watchDomainImpl) Publish(evt scan.SessionEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for ch := range w.watchers[evt.SessionID] {
		select {
		case ch <- evt:
		default:
			w.log.WithFields(logrus.Fields{
				"session_id": evt.SessionID,
				"status":     evt.Status,
			}).Warn("Dropping session event for slow watcher")
		}
	}
}
