package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReconcileConfig tunes the payment reconciliation workflow. It is loaded
// from reconcile.yml and hot-reloaded on change, so operators can widen the
// idempotency window or shrink sweep batches without a restart.
type ReconcileConfig struct {
	// IdempotencyWindow is how long a created intent for the same
	// order and user is reused instead of opening a new one.
	IdempotencyWindow time.Duration `mapstructure:"idempotencyWindow"`
	// SweepBatchSize caps how many pending intents a single
	// reconciliation sweep loads.
	SweepBatchSize int `mapstructure:"sweepBatchSize"`
	// GatewayTimeout bounds every outbound gateway HTTP call.
	GatewayTimeout time.Duration `mapstructure:"gatewayTimeout"`
	// WebhookAckOnError acknowledges webhooks whose signature verified
	// but whose processing failed, leaving recovery to the sweep.
	WebhookAckOnError bool `mapstructure:"webhookAckOnError"`
}

func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		IdempotencyWindow: 5 * time.Minute,
		SweepBatchSize:    100,
		GatewayTimeout:    10 * time.Second,
		WebhookAckOnError: true,
	}
}

type ReconcileConfigHolder struct {
	current atomic.Value // holds ReconcileConfig
}

func NewReconcileConfigHolder() (*ReconcileConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reconcile")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/kirana/config") // Volume-mounted config
	v.AddConfigPath("/etc/kirana")            // System config
	v.AddConfigPath(".")                      // Current directory (dev mode)

	v.SetEnvPrefix("KIRANA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconcileConfig()
	v.SetDefault("reconcile.idempotencyWindow", defaults.IdempotencyWindow)
	v.SetDefault("reconcile.sweepBatchSize", defaults.SweepBatchSize)
	v.SetDefault("reconcile.gatewayTimeout", defaults.GatewayTimeout)
	v.SetDefault("reconcile.webhookAckOnError", defaults.WebhookAckOnError)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg ReconcileConfig
	if err := v.UnmarshalKey("reconcile", &cfg); err != nil {
		return nil, err
	}
	if err := validateReconcileConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReconcileConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReconcileConfig
		if err := v.UnmarshalKey("reconcile", &updated); err != nil {
			log.Printf("[reconcile-config] reload failed: %v", err)
			return
		}
		if err := validateReconcileConfig(updated); err != nil {
			log.Printf("[reconcile-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reconcile-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ReconcileConfigHolder) Get() ReconcileConfig {
	return h.current.Load().(ReconcileConfig)
}

// NewStaticReconcileConfigHolder returns a holder pinned to cfg, for tests.
func NewStaticReconcileConfigHolder(cfg ReconcileConfig) *ReconcileConfigHolder {
	holder := &ReconcileConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateReconcileConfig(cfg ReconcileConfig) error {
	if cfg.IdempotencyWindow <= 0 {
		return errors.New("reconcile.idempotencyWindow must be positive")
	}
	if cfg.SweepBatchSize <= 0 {
		return errors.New("reconcile.sweepBatchSize must be positive")
	}
	if cfg.GatewayTimeout <= 0 {
		return errors.New("reconcile.gatewayTimeout must be positive")
	}
	return nil
}
