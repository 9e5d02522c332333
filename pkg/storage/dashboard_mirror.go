package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

type setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// DashboardMirror copies the latest aggregate snapshot into Redis so that
// read-only displays outside this process can show it. The ledger stays the
// source of truth; nothing reads the mirror back.
type DashboardMirror struct {
	client setter
	key    string
	ttl    time.Duration
}

func NewDashboardMirror(client setter, key string, ttl time.Duration) *DashboardMirror {
	return &DashboardMirror{client: client, key: key, ttl: ttl}
}

func (m *DashboardMirror) Publish(ctx context.Context, snapshot models.AggregateSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding dashboard snapshot: %w", err)
	}

	if err := m.client.Set(ctx, m.key, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("writing dashboard mirror %s: %w", m.key, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"key":   m.key,
		"size":  len(data),
		"total": snapshot.TotalPredictions,
	}).Debug("Dashboard mirror updated")
	return nil
}
