package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
)

var _ saga.AuditLog = (*RedisAuditLog)(nil)

const redisAuditKeyPrefix = "saga:audit:"

// RedisAuditKey is the list holding the audit entries of one saga
func RedisAuditKey(correlationID string) string {
	return redisAuditKeyPrefix + correlationID
}

// RedisAuditLog implements saga.AuditLog with one append-only list per saga
type RedisAuditLog struct {
	client redis.UniversalClient
}

func NewRedisAuditLog(client redis.UniversalClient) *RedisAuditLog {
	return &RedisAuditLog{client: client}
}

// Append pushes the JSON encoded entry to the tail of the saga list
func (l *RedisAuditLog) Append(ctx context.Context, entry saga.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = models.GenerateUUID().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit entry")
	}
	if err := l.client.RPush(ctx, RedisAuditKey(entry.CorrelationID), data).Err(); err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}
	return nil
}

// Query returns the entries of a saga in append order
func (l *RedisAuditLog) Query(ctx context.Context, correlationID string, filter saga.AuditFilter) ([]saga.AuditEntry, error) {
	raw, err := l.client.LRange(ctx, RedisAuditKey(correlationID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit log")
	}

	entries := make([]saga.AuditEntry, 0, len(raw))
	for _, item := range raw {
		var entry saga.AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal audit entry")
		}
		if filter.Matches(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
