// Package redis stores sessions in Redis and serializes advance calls
// across replicas with a Redis lock.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the adapter writes.
const DefaultPrefix = "fable:session:"

// never scores sessions saved without a TTL (2100-01-01).
const never = 4102444800

// Store implements ports.SessionStore on Redis. Each session is a JSON
// string under prefix+id. The sorted set prefix+"index" scores ids by
// expiry, so List never reports sessions whose keys Redis has already
// evicted.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL expires sessions ttl after their last save. Zero keeps them.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix changes the key namespace.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New dials addr and returns a store over the new client.
func New(addr, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the underlying client, e.g. to build a Locker.
func (s *Store) Client() *backend.Client { return s.client }

func (s *Store) index() string { return s.prefix + "index" }

// expiry is the index score of a session saved now.
func (s *Store) expiry() float64 {
	if s.ttl <= 0 {
		return never
	}
	return float64(s.now().Add(s.ttl).Unix())
}

func (s *Store) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: encode session %q: %w", sessionID, err)
	}
	_, err = s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Set(ctx, s.prefix+sessionID, data, s.ttl)
		tx.ZAdd(ctx, s.index(), backend.Z{Score: s.expiry(), Member: sessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save session %q: %w", sessionID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+sessionID).Bytes()
	switch {
	case errors.Is(err, backend.Nil):
		return nil, domain.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("redis: load session %q: %w", sessionID, err)
	}

	session := new(domain.Session)
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("redis: decode session %q: %w", sessionID, err)
	}
	session.Normalize()
	return session, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Del(ctx, s.prefix+sessionID)
		tx.ZRem(ctx, s.index(), sessionID)
		return nil
	})
	return err
}

// List prunes index entries that have expired and returns the rest.
func (s *Store) List(ctx context.Context) ([]string, error) {
	cutoff := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.index(), "-inf", cutoff).Err(); err != nil {
		return nil, fmt.Errorf("redis: prune index: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }
