package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the adapter.
const DefaultPrefix = "tendril:dialogue:"

// farFuture is the index score of transcripts that never expire.
const farFuture = 4102444800 // 2100-01-01

// Store implements ports.TranscriptStore using Redis. Transcripts are kept
// as JSON strings; a sorted set indexed by expiry time backs List.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for transcripts. Every save refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for transcripts.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(dialogueID string) string {
	return s.prefix + dialogueID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the transcript to Redis.
func (s *Store) Save(ctx context.Context, dialogueID string, t *domain.Transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(dialogueID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: dialogueID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the transcript from Redis.
func (s *Store) Load(ctx context.Context, dialogueID string) (*domain.Transcript, error) {
	val, err := s.client.Get(ctx, s.key(dialogueID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrDialogueNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var t domain.Transcript
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &t, nil
}

// Delete removes the transcript and its index entry.
func (s *Store) Delete(ctx context.Context, dialogueID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(dialogueID))
	pipe.ZRem(ctx, s.indexKey(), dialogueID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the stored dialogues, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired dialogues: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dialogues: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
