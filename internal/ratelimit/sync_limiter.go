package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/kiranalabs/kirana/internal/config"
)

const (
	keyPaymentSync = "payments:sync:%s"
	keyWebhook     = "payments:webhook:%s"
)

// SyncLimiter throttles the payment sync endpoints per user and webhook
// ingestion per gateway. Disabled means every request is allowed.
type SyncLimiter struct {
	enabled bool
	bucket  *TokenBucket

	syncRate     float64
	syncBurst    int
	webhookRate  float64
	webhookBurst int
}

func NewSyncLimiter(cfg config.Config, client *redis.Client) *SyncLimiter {
	if !cfg.RateLimitEnabled || client == nil {
		return &SyncLimiter{}
	}
	return &SyncLimiter{
		enabled:      true,
		bucket:       NewTokenBucket(client),
		syncRate:     cfg.SyncRate,
		syncBurst:    cfg.SyncBurst,
		webhookRate:  cfg.WebhookRate,
		webhookBurst: cfg.WebhookBurst,
	}
}

func (l *SyncLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *SyncLimiter) AllowSync(ctx context.Context, subject string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyPaymentSync, strings.ToLower(strings.TrimSpace(subject)))
	return l.bucket.Allow(ctx, key, l.syncRate, l.syncBurst)
}

func (l *SyncLimiter) AllowWebhook(ctx context.Context, gatewayName string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyWebhook, strings.ToLower(strings.TrimSpace(gatewayName)))
	return l.bucket.Allow(ctx, key, l.webhookRate, l.webhookBurst)
}
