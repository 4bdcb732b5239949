package config

import (
	"runtime"
	"time"
)

// Default values applied when the configuration leaves a field empty.
const (
	DefaultDateInput      = "%Y-%m-%d"
	DefaultDateOutput     = "%B %d, %Y"
	DefaultHighlightStyle = "monokai"
	DefaultRefreshHost    = "localhost"
	DefaultSubscriberPort = 4111
	DefaultTriggerPort    = 4112
	DefaultPingInterval   = 30 * time.Second
	DefaultWriteTimeout   = 2 * time.Second
	DefaultNATSSubject    = "verin.refresh"
)

// ApplyDefaults fills unset fields. A negative ping interval disables heartbeats.
func ApplyDefaults(cfg *Config) {
	if cfg.Date.Input == "" {
		cfg.Date.Input = DefaultDateInput
	}
	if cfg.Date.Output == "" {
		cfg.Date.Output = DefaultDateOutput
	}
	if cfg.Highlight.Style == "" {
		cfg.Highlight.Style = DefaultHighlightStyle
	}
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	applyRefreshDefaults(&cfg.Refresh)
}

func applyRefreshDefaults(r *RefreshConfig) {
	if r.Host == "" {
		r.Host = DefaultRefreshHost
	}
	if r.SubscriberPort == 0 {
		r.SubscriberPort = DefaultSubscriberPort
	}
	if r.TriggerPort == 0 {
		r.TriggerPort = DefaultTriggerPort
	}
	if r.PingInterval == 0 {
		r.PingInterval = DefaultPingInterval
	}
	if r.PingInterval < 0 {
		r.PingInterval = 0
	}
	if r.WriteTimeout <= 0 {
		r.WriteTimeout = DefaultWriteTimeout
	}
	if r.NATSSubject == "" {
		r.NATSSubject = DefaultNATSSubject
	}
}

// DefaultRefresh returns refresh settings with every default applied. Used by the
// refresh commands, which run without a site configuration.
func DefaultRefresh() RefreshConfig {
	var r RefreshConfig
	applyRefreshDefaults(&r)
	return r
}
