// Package history records terminated call attempts per host so the dashboard
// can show recent activity. Writes are asynchronous and best-effort; losing a
// record never affects call handling.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/instacall/signaling/internal/models"
)

const historyTTL = 30 * 24 * time.Hour

// Recorder appends call records to a capped per-host redis list.
type Recorder struct {
	rdb     *redis.Client
	keep    int64
	timeout time.Duration
}

func NewRecorder(rdb *redis.Client, keep int) *Recorder {
	if keep <= 0 {
		keep = 50
	}
	return &Recorder{rdb: rdb, keep: int64(keep), timeout: 3 * time.Second}
}

func key(hostID string) string {
	return "callhistory:" + hostID
}

// Record appends rec off the caller's goroutine.
func (r *Recorder) Record(rec models.CallRecord) {
	go func() {
		data, err := json.Marshal(rec)
		if err != nil {
			log.Printf("history: marshal failed for call %s: %v", rec.CallID, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		k := key(rec.HostID)
		pipe := r.rdb.TxPipeline()
		pipe.LPush(ctx, k, data)
		pipe.LTrim(ctx, k, 0, r.keep-1)
		pipe.Expire(ctx, k, historyTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("history: write failed for call %s: %v", rec.CallID, err)
		}
	}()
}

// History returns the host's most recent records, newest first.
func (r *Recorder) History(ctx context.Context, hostID string) ([]models.CallRecord, error) {
	raw, err := r.rdb.LRange(ctx, key(hostID), 0, r.keep-1).Result()
	if err != nil {
		return nil, fmt.Errorf("history read failed: %w", err)
	}
	records := make([]models.CallRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.CallRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Printf("history: skipping corrupt record for host %s: %v", hostID, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
