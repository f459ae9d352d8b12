package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TenancyPolicy controls what a valid tenant-creation batch looks like and
// which user roles each downstream service replicates.
type TenancyPolicy struct {
	RequiredRoles   []string            `mapstructure:"requiredRoles"`
	ReplicatedRoles map[string][]string `mapstructure:"replicatedRoles"`
	MinInitialUsers int                 `mapstructure:"minInitialUsers"`
	AllowedStatuses []string            `mapstructure:"allowedStatuses"`
	DefaultStatus   string              `mapstructure:"defaultStatus"`
	DefaultTimezone string              `mapstructure:"defaultTimezone"`
	DefaultCurrency string              `mapstructure:"defaultCurrency"`
}

func DefaultTenancyPolicy() TenancyPolicy {
	return TenancyPolicy{
		RequiredRoles: []string{
			"SUPER_ADMIN", "ADMIN", "REGISTRAR", "STAFF", "HOD",
			"LECTURER", "STUDENT", "AUDITOR_GENERAL", "AUDITOR",
		},
		ReplicatedRoles: map[string][]string{
			"auditd": {"ADMIN", "AUDITOR_GENERAL", "AUDITOR"},
		},
		MinInitialUsers: 1,
		AllowedStatuses: []string{"PENDING", "ACTIVE", "SUSPENDED", "INACTIVE"},
		DefaultStatus:   "PENDING",
		DefaultTimezone: "Africa/Nairobi",
		DefaultCurrency: "KES",
	}
}

// TenancyPolicyHolder exposes the current policy and hot-reloads it when the
// mounted config file changes.
type TenancyPolicyHolder struct {
	current atomic.Value // holds TenancyPolicy
}

func NewTenancyPolicyHolder() (*TenancyPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("tenancy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/acadia/config") // Volume-mounted config
	v.AddConfigPath("/etc/acadia")            // System config
	v.AddConfigPath(".")                      // Current directory (dev mode)

	v.SetEnvPrefix("ACADIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTenancyPolicy()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("tenancy.requiredRoles", defaults.RequiredRoles)
		v.SetDefault("tenancy.replicatedRoles", defaults.ReplicatedRoles)
		v.SetDefault("tenancy.minInitialUsers", defaults.MinInitialUsers)
		v.SetDefault("tenancy.allowedStatuses", defaults.AllowedStatuses)
		v.SetDefault("tenancy.defaultStatus", defaults.DefaultStatus)
		v.SetDefault("tenancy.defaultTimezone", defaults.DefaultTimezone)
		v.SetDefault("tenancy.defaultCurrency", defaults.DefaultCurrency)
	}

	var policy TenancyPolicy
	if err := v.UnmarshalKey("tenancy", &policy); err != nil {
		return nil, err
	}
	if err := validateTenancyPolicy(policy); err != nil {
		return nil, err
	}

	holder := &TenancyPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TenancyPolicy
		if err := v.UnmarshalKey("tenancy", &updated); err != nil {
			log.Printf("[tenancy-config] reload failed: %v", err)
			return
		}
		if err := validateTenancyPolicy(updated); err != nil {
			log.Printf("[tenancy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tenancy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticTenancyPolicyHolder wraps a fixed policy with no file watching.
func NewStaticTenancyPolicyHolder(p TenancyPolicy) *TenancyPolicyHolder {
	holder := &TenancyPolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *TenancyPolicyHolder) Get() TenancyPolicy {
	return h.current.Load().(TenancyPolicy)
}

// ReplicatedRolesFor returns the user-role predicate for a service; empty
// means replicate everything.
func (p TenancyPolicy) ReplicatedRolesFor(service string) []string {
	if p.ReplicatedRoles == nil {
		return nil
	}
	return p.ReplicatedRoles[service]
}

func validateTenancyPolicy(p TenancyPolicy) error {
	if len(p.RequiredRoles) == 0 {
		return errors.New("tenancy.requiredRoles cannot be empty")
	}
	if len(p.AllowedStatuses) == 0 {
		return errors.New("tenancy.allowedStatuses cannot be empty")
	}
	return nil
}
