// Package presence is a thin façade over the external presence store. The
// live connection is the authoritative presence signal; the store is the
// best-effort durable copy consulted when a watcher first subscribes.
package presence

import (
	"context"
	"log"
	"time"

	"github.com/instacall/signaling/internal/models"
)

// Store persists last-known presence per host.
type Store interface {
	Get(ctx context.Context, userID string) (models.PresenceRecord, bool, error)
	Upsert(ctx context.Context, rec models.PresenceRecord) error
	Touch(ctx context.Context, userID string, t time.Time) error
}

// BroadcastFunc pushes a status change to every watcher of hostID.
type BroadcastFunc func(hostID string, status models.PresenceStatus)

// Gateway reconciles in-memory transitions with the store. Persistence
// failures never suppress the broadcast and never surface to callers.
type Gateway struct {
	store     Store
	broadcast BroadcastFunc
	timeout   time.Duration
}

func NewGateway(store Store, broadcast BroadcastFunc) *Gateway {
	return &Gateway{store: store, broadcast: broadcast, timeout: 3 * time.Second}
}

func (g *Gateway) MarkOnline(userID string) {
	g.mark(userID, models.StatusOnline)
}

func (g *Gateway) MarkOffline(userID string) {
	g.mark(userID, models.StatusOffline)
}

func (g *Gateway) mark(userID string, status models.PresenceStatus) {
	g.broadcast(userID, status)
	go g.persist(userID, status)
}

// Current reads the persisted status, defaulting to offline when there is no
// record or the store is unreachable.
func (g *Gateway) Current(userID string) models.PresenceStatus {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	rec, ok, err := g.store.Get(ctx, userID)
	if err != nil {
		log.Printf("presence: read failed for %s: %v", userID, err)
		return models.StatusOffline
	}
	if !ok {
		return models.StatusOffline
	}
	return rec.Status
}

// Touch refreshes lastActiveTime for a host that sent an application ping.
func (g *Gateway) Touch(userID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()
		if err := g.store.Touch(ctx, userID, time.Now()); err != nil {
			log.Printf("presence: touch failed for %s: %v", userID, err)
		}
	}()
}

// persist upserts the record with one retry. Failures are logged only;
// presence persistence is best-effort.
func (g *Gateway) persist(userID string, status models.PresenceStatus) {
	rec := models.PresenceRecord{UserID: userID, Status: status, LastActiveTime: time.Now()}
	for attempt := 1; attempt <= 2; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		err := g.store.Upsert(ctx, rec)
		cancel()
		if err == nil {
			return
		}
		log.Printf("presence: upsert failed for %s (attempt %d): %v", userID, attempt, err)
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
}
