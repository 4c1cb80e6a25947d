package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds the tunable pricing parameters. They are read from a
// mounted YAML file and reloadable at runtime; environment defaults apply
// when no file is present.
type PricingConfig struct {
	SanityThreshold      float64 `mapstructure:"sanityThreshold"`
	HighOccupancyPct     float64 `mapstructure:"highOccupancyPct"`
	LowOccupancyPct      float64 `mapstructure:"lowOccupancyPct"`
	HighOccupancyBoost   float64 `mapstructure:"highOccupancyBoost"`
	LowOccupancyDiscount float64 `mapstructure:"lowOccupancyDiscount"`
	OccupancyWindowDays  int     `mapstructure:"occupancyWindowDays"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		SanityThreshold:      0.5,
		HighOccupancyPct:     0.8,
		LowOccupancyPct:      0.3,
		HighOccupancyBoost:   0.15,
		LowOccupancyDiscount: 0.10,
		OccupancyWindowDays:  30,
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/nightly/config")
	v.AddConfigPath("/etc/nightly")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NIGHTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.sanityThreshold", defaults.SanityThreshold)
	v.SetDefault("pricing.highOccupancyPct", defaults.HighOccupancyPct)
	v.SetDefault("pricing.lowOccupancyPct", defaults.LowOccupancyPct)
	v.SetDefault("pricing.highOccupancyBoost", defaults.HighOccupancyBoost)
	v.SetDefault("pricing.lowOccupancyDiscount", defaults.LowOccupancyDiscount)
	v.SetDefault("pricing.occupancyWindowDays", defaults.OccupancyWindowDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPricingConfigHolder pins a config without file watching.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func validatePricingConfig(cfg PricingConfig) error {
	if cfg.SanityThreshold <= 0 || cfg.SanityThreshold > 1 {
		return errors.New("pricing.sanityThreshold must be in (0, 1]")
	}
	if cfg.HighOccupancyPct <= cfg.LowOccupancyPct {
		return errors.New("pricing.highOccupancyPct must exceed lowOccupancyPct")
	}
	if cfg.OccupancyWindowDays <= 0 {
		return errors.New("pricing.occupancyWindowDays must be positive")
	}
	return nil
}
