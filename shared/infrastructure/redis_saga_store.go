package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/draftea/flight-booking/shared/models"
	"github.com/draftea/flight-booking/shared/saga"
)

var (
	_ saga.StateStore = (*RedisSagaStore)(nil)
	_ saga.Leaser     = (*RedisSagaStore)(nil)
)

const (
	redisTxKeyPrefix    = "saga:tx:"
	redisLeaseKeyPrefix = "saga:lease:"
	redisInFlightIndex  = "saga:inflight"
	redisMaxTxRetries   = 10

	// DefaultRedisLeaseTTL is how long a lease survives an owner that stopped renewing it
	DefaultRedisLeaseTTL = 30 * time.Second
)

// RedisTxKey is the key holding the JSON encoded transaction
func RedisTxKey(correlationID string) string {
	return redisTxKeyPrefix + correlationID
}

// RedisLeaseKey is the key holding the token of the orchestrator driving a saga
func RedisLeaseKey(correlationID string) string {
	return redisLeaseKeyPrefix + correlationID
}

var (
	renewLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisSagaStore implements saga.StateStore on Redis. Each transaction lives under its own key
// and is updated with WATCH/MULTI, so concurrent sagas never block each other. Unfinished sagas
// are indexed in a sorted set scored by their last update.
type RedisSagaStore struct {
	client   redis.UniversalClient
	now      func() time.Time
	leaseTTL time.Duration
	newToken func() string
	logger   zerolog.Logger
}

func NewRedisSagaStore(client redis.UniversalClient) *RedisSagaStore {
	return &RedisSagaStore{
		client:   client,
		now:      func() time.Time { return time.Now().UTC() },
		leaseTTL: DefaultRedisLeaseTTL,
		newToken: func() string { return models.GenerateUUID().String() },
		logger:   zerolog.Nop(),
	}
}

// WithLeaseTTL sets how long a lease outlives a crashed owner. Held leases are renewed every
// third of it.
func (s *RedisSagaStore) WithLeaseTTL(ttl time.Duration) *RedisSagaStore {
	if ttl > 0 {
		s.leaseTTL = ttl
	}
	return s
}

func (s *RedisSagaStore) WithLogger(log zerolog.Logger) *RedisSagaStore {
	s.logger = log
	return s
}

func (s *RedisSagaStore) Close() error {
	return s.client.Close()
}

func (s *RedisSagaStore) Create(ctx context.Context, correlationID, definition string, payload saga.BookingPayload) (*saga.Transaction, error) {
	now := s.now()
	tx := &saga.Transaction{
		CorrelationID:  correlationID,
		Definition:     definition,
		Status:         saga.StatusStarted,
		Payload:        payload,
		StepsCompleted: []string{},
		StepResults:    []saga.StepResult{},
		Compensations:  []saga.CompensationRecord{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal saga transaction")
	}

	key := RedisTxKey(correlationID)
	err = s.client.Watch(ctx, func(rtx *redis.Tx) error {
		n, err := rtx.Exists(ctx, key).Result()
		if err != nil {
			return errors.Wrap(err, "failed to check saga transaction")
		}
		if n > 0 {
			return saga.ErrAlreadyExists
		}
		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, redisInFlightIndex, redis.Z{Score: score(now), Member: correlationID})
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		return tx, nil
	case errors.Is(err, saga.ErrAlreadyExists), errors.Is(err, redis.TxFailedErr):
		return nil, saga.ErrAlreadyExists
	default:
		return nil, errors.Wrap(err, "failed to create saga transaction")
	}
}

// AcquireLease takes saga:lease:{id} with SET NX PX and renews it until released. A crashed
// owner loses the lease once the TTL runs out.
func (s *RedisSagaStore) AcquireLease(ctx context.Context, correlationID string) (func(), error) {
	key := RedisLeaseKey(correlationID)
	token := s.newToken()
	ttl := s.leaseTTL

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to take saga lease")
	}
	if !ok {
		return nil, saga.ErrLeaseHeld
	}

	log := s.logger.With().Str("correlation_id", correlationID).Logger()
	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				renewed, err := renewLeaseScript.Run(ctx, s.client, []string{key}, token, ttl.Milliseconds()).Int()
				if err != nil {
					log.Warn().Err(err).Msg("failed to renew saga lease")
					continue
				}
				if renewed == 0 {
					log.Error().Msg("saga lease lost")
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			if err := releaseLeaseScript.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err(); err != nil {
				log.Warn().Err(err).Msg("failed to release saga lease")
			}
		})
	}, nil
}

func (s *RedisSagaStore) Get(ctx context.Context, correlationID string) (*saga.Transaction, error) {
	data, err := s.client.Get(ctx, RedisTxKey(correlationID)).Bytes()
	if err == redis.Nil {
		return nil, saga.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get saga transaction")
	}
	return decodeTransaction(data)
}

func (s *RedisSagaStore) RecordStepResult(ctx context.Context, correlationID string, result saga.StepResult) error {
	return s.update(ctx, correlationID, func(tx *saga.Transaction, now time.Time) error {
		saga.ApplyStepResult(tx, result, now)
		return nil
	})
}

func (s *RedisSagaStore) RecordCompensation(ctx context.Context, correlationID string, record saga.CompensationRecord) error {
	return s.update(ctx, correlationID, func(tx *saga.Transaction, now time.Time) error {
		return saga.ApplyCompensation(tx, record, now)
	})
}

func (s *RedisSagaStore) SetStatus(ctx context.Context, correlationID string, status saga.Status) error {
	return s.update(ctx, correlationID, func(tx *saga.Transaction, now time.Time) error {
		return saga.ApplyStatus(tx, status, now)
	})
}

func (s *RedisSagaStore) ListInFlight(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + formatScore(score(olderThan)),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}

	ids, err := s.client.ZRangeByScore(ctx, redisInFlightIndex, by).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list in-flight sagas")
	}
	return ids, nil
}

// update applies fn under an optimistic lock on the transaction key and retries on conflicts
func (s *RedisSagaStore) update(ctx context.Context, correlationID string, fn func(tx *saga.Transaction, now time.Time) error) error {
	key := RedisTxKey(correlationID)

	txf := func(rtx *redis.Tx) error {
		data, err := rtx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return saga.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to read saga transaction")
		}

		tx, err := decodeTransaction(data)
		if err != nil {
			return err
		}

		now := s.now()
		if err := fn(tx, now); err != nil {
			return err
		}

		updated, err := json.Marshal(tx)
		if err != nil {
			return errors.Wrap(err, "failed to marshal saga transaction")
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			if tx.Status.IsTerminal() {
				pipe.ZRem(ctx, redisInFlightIndex, correlationID)
			} else {
				pipe.ZAdd(ctx, redisInFlightIndex, redis.Z{Score: score(tx.UpdatedAt), Member: correlationID})
			}
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, saga.ErrNotFound) || errors.Is(err, saga.ErrInvalidTransition) || errors.Is(err, saga.ErrStepNotCompleted) {
			return err
		}
		return errors.Wrap(err, "failed to update saga transaction")
	}
	return errors.New("saga transaction update kept conflicting")
}

func decodeTransaction(data []byte) (*saga.Transaction, error) {
	var tx saga.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal saga transaction")
	}
	return &tx, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
