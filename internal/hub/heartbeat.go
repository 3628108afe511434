package hub

import (
	"context"
	"log"
	"time"

	"github.com/instacall/signaling/internal/obs"
)

// RunHeartbeat probes every registered connection on a fixed period and
// reclaims the ones that never acknowledged the previous probe. This is the
// only mechanism that cleans up transports that died without a close frame.
// Blocks until ctx is done.
func (h *Hub) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.reg.conns))
	for _, c := range h.reg.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if !c.alive.Load() {
			log.Printf("conn %s: missed liveness probe, reclaiming", c.ID)
			obs.HeartbeatReaps.Inc()
			h.Disconnect(c)
			continue
		}
		c.alive.Store(false)
		c.probe()
	}
}
