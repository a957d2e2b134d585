package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig is the firm-wide billing policy. It is hot-reloadable so
// rate or tax changes do not require a restart.
type BillingConfig struct {
	// TaxRateBps is the invoice tax rate in basis points (1500 = 15%).
	TaxRateBps int64 `mapstructure:"taxRateBps"`

	// AdjustmentToleranceCents is the threshold below which a billed-amount
	// override is treated as unadjusted and needs no reason.
	AdjustmentToleranceCents int64 `mapstructure:"adjustmentToleranceCents"`

	// DefaultHourlyRateCents applies when neither the time entry nor its
	// project carries a rate.
	DefaultHourlyRateCents int64 `mapstructure:"defaultHourlyRateCents"`

	AgingBuckets []AgingBucket `mapstructure:"agingBuckets"`

	// AssistantModels is the allow-list of chat models the assistant proxy
	// will forward to.
	AssistantModels []string `mapstructure:"assistantModels"`
}

type AgingBucket struct {
	Label   string `mapstructure:"label"`
	MinDays int    `mapstructure:"minDays"`
	MaxDays *int   `mapstructure:"maxDays"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		TaxRateBps:               1500,
		AdjustmentToleranceCents: 1,
		DefaultHourlyRateCents:   15000,
		AgingBuckets: []AgingBucket{
			{Label: "0-30", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "60+", MinDays: 61, MaxDays: nil},
		},
		AssistantModels: []string{"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"},
	}
}

func intPtr(v int) *int { return &v }

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/praxis/config") // Volume-mounted config
	v.AddConfigPath("/etc/praxis")            // System config
	v.AddConfigPath(".")                      // Current directory (dev mode)

	v.SetEnvPrefix("PRAXIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.taxRateBps", defaults.TaxRateBps)
		v.SetDefault("billing.adjustmentToleranceCents", defaults.AdjustmentToleranceCents)
		v.SetDefault("billing.defaultHourlyRateCents", defaults.DefaultHourlyRateCents)
		v.SetDefault("billing.agingBuckets", defaults.AgingBuckets)
		v.SetDefault("billing.assistantModels", defaults.AssistantModels)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active billing policy.
func (h *BillingConfigHolder) Current() BillingConfig {
	cfg, ok := h.current.Load().(BillingConfig)
	if !ok {
		return DefaultBillingConfig()
	}
	return cfg
}

// NewStaticBillingConfigHolder wraps a fixed config, for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.TaxRateBps < 0 || cfg.TaxRateBps > 10000 {
		return errors.New("billing.taxRateBps must be between 0 and 10000")
	}
	if cfg.AdjustmentToleranceCents < 0 {
		return errors.New("billing.adjustmentToleranceCents must not be negative")
	}
	if cfg.DefaultHourlyRateCents < 0 {
		return errors.New("billing.defaultHourlyRateCents must not be negative")
	}
	for _, bucket := range cfg.AgingBuckets {
		if bucket.MaxDays != nil && *bucket.MaxDays < bucket.MinDays {
			return errors.New("billing.agingBuckets bucket range is inverted")
		}
	}
	return nil
}
