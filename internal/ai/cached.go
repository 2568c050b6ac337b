package ai

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

// Cache stores opaque values by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedProvider caches illustrations and speech of another provider.
// Questions always go to the wrapped provider so every round is fresh.
type CachedProvider struct {
	next  ContentProvider
	cache Cache
	ttl   time.Duration
}

// NewCachedProvider wraps next with a media cache.
func NewCachedProvider(next ContentProvider, cache Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl}
}

func (c *CachedProvider) GenerateQuestion(ctx context.Context, subject domain.Subject, profile domain.Profile) (domain.Question, error) {
	return c.next.GenerateQuestion(ctx, subject, profile)
}

func (c *CachedProvider) GenerateIllustration(ctx context.Context, description string) (Illustration, error) {
	key := mediaKey("illustration", "", description)

	var img Illustration
	if c.lookup(ctx, key, &img) {
		return img, nil
	}

	img, err := c.next.GenerateIllustration(ctx, description)
	if err != nil {
		return Illustration{}, err
	}
	c.store(ctx, key, img)
	return img, nil
}

func (c *CachedProvider) Synthesize(ctx context.Context, text string, profile domain.Profile) (Audio, error) {
	key := mediaKey("speech", profile.Voice(), text)

	var audio Audio
	if c.lookup(ctx, key, &audio) {
		return audio, nil
	}

	audio, err := c.next.Synthesize(ctx, text, profile)
	if err != nil {
		return Audio{}, err
	}
	c.store(ctx, key, audio)
	return audio, nil
}

func (c *CachedProvider) lookup(ctx context.Context, key string, v any) bool {
	data, found, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("media cache read failed", "key", key, "error", err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("media cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedProvider) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		slog.Warn("media cache write failed", "key", key, "error", err)
	}
}

func mediaKey(kind, voice, text string) string {
	sum := blake2b.Sum256([]byte(kind + "\x00" + voice + "\x00" + text))
	return "pai:media:" + kind + ":" + hex.EncodeToString(sum[:])
}
