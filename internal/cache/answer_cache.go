// Package cache keeps answers to repeated questions in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Waqasabid99/agiAI/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL       = 10 * time.Minute
	DefaultKeyPrefix = "agiai:answer"
)

// AnswerCache stores query results keyed by the normalized question and the
// current index generation. Invalidate bumps the generation, which orphans every
// earlier entry; orphans expire with their TTL.
type AnswerCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewAnswerCache(client redis.Cmdable, prefix string, ttl time.Duration) *AnswerCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AnswerCache{client: client, prefix: prefix, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (c *AnswerCache) Get(ctx context.Context, question string) (*domain.QueryResult, bool, error) {
	key, err := c.answerKey(ctx, question)
	if err != nil {
		return nil, false, err
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get answer failed: %w", err)
	}

	var result domain.QueryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached answer failed: %w", err)
	}
	return &result, true, nil
}

func (c *AnswerCache) Set(ctx context.Context, question string, result *domain.QueryResult) error {
	key, err := c.answerKey(ctx, question)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal answer failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set answer failed: %w", err)
	}
	return nil
}

func (c *AnswerCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("redis bump answer generation failed: %w", err)
	}
	return nil
}

func (c *AnswerCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get answer generation failed: %w", err)
	}
	return gen, nil
}

func (c *AnswerCache) answerKey(ctx context.Context, question string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, QuestionKey(question)), nil
}

func (c *AnswerCache) generationKey() string {
	return c.prefix + ":generation"
}

// QuestionKey hashes a question after lower-casing it and collapsing whitespace,
// so trivially different spellings share an entry.
func QuestionKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
