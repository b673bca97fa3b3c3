package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig is the reconciliation policy: renewal interval, grace window
// and per-plan default pricing. It replaces the module-level mutable
// constants of earlier iterations with an injectable value.
type BillingConfig struct {
	RenewalIntervalDays int                `mapstructure:"renewalIntervalDays"`
	GraceDays           int                `mapstructure:"graceDays"`
	DefaultCurrency     string             `mapstructure:"defaultCurrency"`
	DefaultProvider     string             `mapstructure:"defaultProvider"`
	PlanAmounts         map[string]float64 `mapstructure:"planAmounts"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		RenewalIntervalDays: 30,
		GraceDays:           3,
		DefaultCurrency:     "BRL",
		DefaultProvider:     "mercadopago",
		PlanAmounts: map[string]float64{
			"essential": 39.90,
			"vip":       99.90,
		},
	}
}

// AmountForPlan returns the configured default amount for a plan tier.
func (c BillingConfig) AmountForPlan(plan string) float64 {
	if amount, ok := c.PlanAmounts[strings.ToLower(strings.TrimSpace(plan))]; ok {
		return amount
	}
	return c.PlanAmounts["essential"]
}

// BillingConfigHolder exposes an atomically swapped BillingConfig so a config
// file edit takes effect without a restart.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/sitebill/config") // volume-mounted config
	v.AddConfigPath("/etc/sitebill")
	v.AddConfigPath(".") // dev mode

	v.SetEnvPrefix("SITEBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.renewalIntervalDays", defaults.RenewalIntervalDays)
	v.SetDefault("billing.graceDays", defaults.GraceDays)
	v.SetDefault("billing.defaultCurrency", defaults.DefaultCurrency)
	v.SetDefault("billing.defaultProvider", defaults.DefaultProvider)
	v.SetDefault("billing.planAmounts", defaults.PlanAmounts)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
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

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

// NewStaticBillingConfigHolder wraps a fixed config, for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.RenewalIntervalDays <= 0 {
		return errors.New("billing.renewalIntervalDays must be positive")
	}
	if cfg.GraceDays < 0 {
		return errors.New("billing.graceDays cannot be negative")
	}
	if len(cfg.PlanAmounts) == 0 {
		return errors.New("billing.planAmounts cannot be empty")
	}
	return nil
}
