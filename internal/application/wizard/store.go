package wizard

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "wizard:"
	DefaultTTL = time.Hour
)

// ErrNoDraft means the session has no draft for the mode, or it expired.
var ErrNoDraft = errors.New("Por favor complete primero los datos básicos.")

// Store keeps one draft per session and mode.
type Store interface {
	Load(ctx context.Context, session string, mode Mode) (*Draft, error)
	Save(ctx context.Context, session string, mode Mode, d *Draft) error
	Clear(ctx context.Context, session string, mode Mode) error
}

// RedisStore keeps drafts as JSON under wizard:<session>:<mode>.
type RedisStore struct {
	Rdb *redis.Client
	TTL time.Duration
}

func draftKey(session string, mode Mode) string {
	return keyPrefix + session + ":" + string(mode)
}

func (s *RedisStore) Load(ctx context.Context, session string, mode Mode) (*Draft, error) {
	b, err := s.Rdb.Get(ctx, draftKey(session, mode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, err
	}
	return DecodeDraft(b)
}

// Save stores d and restarts its expiry.
func (s *RedisStore) Save(ctx context.Context, session string, mode Mode, d *Draft) error {
	b, err := d.Encode()
	if err != nil {
		return err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return s.Rdb.Set(ctx, draftKey(session, mode), b, ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, session string, mode Mode) error {
	return s.Rdb.Del(ctx, draftKey(session, mode)).Err()
}
