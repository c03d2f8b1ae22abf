package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PolicyConfig is the reward business policy. The earn rate and paging knobs
// are operator-tunable without a restart.
type PolicyConfig struct {
	// TicketEarnRate is the fraction of a ticket's currency amount credited as
	// points. Points are floored, so amounts below 1/rate earn nothing.
	TicketEarnRate float64 `mapstructure:"ticketEarnRate"`

	HistoryDefaultLimit int `mapstructure:"historyDefaultLimit"`
	HistoryMaxLimit     int `mapstructure:"historyMaxLimit"`
	DashboardRecentSize int `mapstructure:"dashboardRecentSize"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		TicketEarnRate:      0.005,
		HistoryDefaultLimit: 20,
		HistoryMaxLimit:     100,
		DashboardRecentSize: 10,
	}
}

type PolicyHolder struct {
	current atomic.Value // holds PolicyConfig
}

func NewPolicyHolder() (*PolicyHolder, error) {
	return newPolicyHolder(
		"/var/lib/perks/config", // Volume-mounted config
		"/etc/perks",            // System config
		".",                     // Current directory (dev mode)
	)
}

func newPolicyHolder(configPaths ...string) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("PERKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults must be registered before the read so a file that sets only
	// some knobs merges over them instead of zeroing the rest.
	defaults := DefaultPolicyConfig()
	v.SetDefault("rewards.ticketEarnRate", defaults.TicketEarnRate)
	v.SetDefault("rewards.historyDefaultLimit", defaults.HistoryDefaultLimit)
	v.SetDefault("rewards.historyMaxLimit", defaults.HistoryMaxLimit)
	v.SetDefault("rewards.dashboardRecentSize", defaults.DashboardRecentSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PolicyConfig
	if err := v.UnmarshalKey("rewards", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicyConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PolicyConfig
		if err := v.UnmarshalKey("rewards", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		if err := validatePolicyConfig(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder returns a holder pinned to the given config. Used by
// tests and by callers that do not want file watching.
func NewStaticPolicyHolder(cfg PolicyConfig) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PolicyHolder) Get() PolicyConfig {
	return h.current.Load().(PolicyConfig)
}

func validatePolicyConfig(cfg PolicyConfig) error {
	if cfg.TicketEarnRate < 0 || cfg.TicketEarnRate >= 1 {
		return errors.New("rewards.ticketEarnRate must be in [0, 1)")
	}
	if cfg.HistoryDefaultLimit <= 0 {
		return errors.New("rewards.historyDefaultLimit must be positive")
	}
	if cfg.HistoryMaxLimit < cfg.HistoryDefaultLimit {
		return errors.New("rewards.historyMaxLimit cannot be below the default limit")
	}
	if cfg.DashboardRecentSize <= 0 {
		return errors.New("rewards.dashboardRecentSize must be positive")
	}
	return nil
}
