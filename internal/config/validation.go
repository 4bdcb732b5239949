package config

import (
	"fmt"
	"strings"

	"github.com/ncruces/go-strftime"

	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/retry"
)

// Validate checks a defaulted configuration.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return ferrors.ConfigError("site name is required").WithContext("field", "name").Build()
	}
	if err := validatePattern("date.input", cfg.Date.Input); err != nil {
		return err
	}
	if err := validatePattern("date.output", cfg.Date.Output); err != nil {
		return err
	}
	if err := validatePort("refresh.subscriber_port", cfg.Refresh.SubscriberPort); err != nil {
		return err
	}
	if err := validatePort("refresh.trigger_port", cfg.Refresh.TriggerPort); err != nil {
		return err
	}
	if cfg.Refresh.SubscriberPort == cfg.Refresh.TriggerPort {
		return ferrors.ConfigError("subscriber and trigger ports must differ").
			WithContext("port", cfg.Refresh.TriggerPort).Build()
	}
	if err := triggerPolicy(cfg.Refresh).Validate(); err != nil {
		return ferrors.ConfigError("invalid refresh trigger retry settings").WithCause(err).
			WithContext("field", "refresh.trigger_*").Build()
	}
	if cfg.RSS != nil && strings.TrimSpace(cfg.RSS.Link) == "" {
		return ferrors.ConfigError("rss.link is required when rss is configured").WithContext("field", "rss.link").Build()
	}
	return nil
}

func validatePattern(field, pattern string) error {
	if _, err := strftime.Layout(pattern); err != nil {
		return ferrors.ConfigError(fmt.Sprintf("invalid %s pattern %q", field, pattern)).WithCause(err).
			WithContext("field", field).Build()
	}
	return nil
}

func validatePort(field string, port int) error {
	if port <= 0 || port > 65535 {
		return ferrors.ConfigError(fmt.Sprintf("%s out of range: %d", field, port)).WithContext("field", field).Build()
	}
	return nil
}

// triggerPolicy is the retry policy as configured, before NewPolicy replaces
// invalid values with defaults.
func triggerPolicy(r RefreshConfig) retry.Policy {
	p := retry.DefaultPolicy()
	p.Mode = retry.Mode(r.TriggerBackoff)
	p.MaxRetries = r.TriggerRetries
	if r.TriggerRetryDelay != 0 {
		p.Initial = r.TriggerRetryDelay
	}
	return p
}
