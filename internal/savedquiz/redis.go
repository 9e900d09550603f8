package savedquiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/opening-quiz/internal/domain"
	"github.com/park285/opening-quiz/internal/obslog"
)

const maxTxAttempts = 5

// RedisStore keeps the list as one JSON string, the same shape the browser
// stored under localStorage["pgns"]. Writes go through WATCH/MULTI and are
// announced on "<key>:changed".
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// NewRedisStoreFromURL dials REDIS_URL style addresses and pings the server.
func NewRedisStoreFromURL(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(rdb, key), nil
}

func (s *RedisStore) channel() string { return s.key + ":changed" }

func (s *RedisStore) List(ctx context.Context) ([]domain.SavedQuiz, error) {
	raw, err := s.rdb.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return []domain.SavedQuiz{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

func (s *RedisStore) Append(ctx context.Context, q domain.SavedQuiz) error {
	if q.ID == "" {
		q.ID = LegacyID(q)
	}
	return s.update(ctx, func(list []domain.SavedQuiz) ([]domain.SavedQuiz, error) {
		return append(list, q), nil
	})
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.update(ctx, func(list []domain.SavedQuiz) ([]domain.SavedQuiz, error) {
		return removeByID(list, id)
	})
}

func (s *RedisStore) update(ctx context.Context, fn func([]domain.SavedQuiz) ([]domain.SavedQuiz, error)) error {
	var encoded string
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, s.key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		list, err := Decode(raw)
		if err != nil {
			return err
		}
		next, err := fn(list)
		if err != nil {
			return err
		}
		encoded, err = Encode(next)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, s.key, encoded, 0)
		_, err = pipe.Exec(ctx)
		return err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Debug("saved_quiz_tx_retry", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return err
		}
		if perr := s.rdb.Publish(ctx, s.channel(), encoded).Err(); perr != nil {
			obslog.L().Warn("saved_quiz_publish_failed", zap.Error(perr))
		}
		return nil
	}
	return fmt.Errorf("update saved quizzes: %w", redis.TxFailedErr)
}

func (s *RedisStore) Watch(ctx context.Context) (<-chan []domain.SavedQuiz, error) {
	sub := s.rdb.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel(), err)
	}
	out := make(chan []domain.SavedQuiz, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				list, err := Decode(msg.Payload)
				if err != nil {
					obslog.L().Warn("saved_quiz_watch_decode_failed", zap.Error(err))
					continue
				}
				select {
				case out <- list:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
