package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/verin/internal/config"
	"git.home.luguber.info/inful/verin/internal/metrics"
	"git.home.luguber.info/inful/verin/internal/refresh"
)

// RefreshFlags are shared by the refresh commands. Flags override config.yaml.
type RefreshFlags struct {
	Posts          string `short:"p" name:"posts" default:"." help:"Directory whose config.yaml supplies refresh settings"`
	Host           string `name:"host" help:"Refresh server host"`
	SubscriberPort int    `name:"subscriber-port" help:"WebSocket port pages connect to"`
	TriggerPort    int    `name:"trigger-port" help:"TCP port triggers are sent to"`
	NATSURL        string `name:"nats-url" env:"VERIN_NATS_URL" help:"Relay triggers over NATS instead of TCP"`
}

// resolve returns the refresh settings from config.yaml when it exists,
// defaults otherwise, with flags applied on top.
func (f RefreshFlags) resolve() (config.RefreshConfig, error) {
	rc := config.DefaultRefresh()
	cfg, err := config.LoadDir(f.Posts)
	switch {
	case err == nil:
		rc = cfg.Refresh
	case errors.Is(err, config.ErrNotFound):
	default:
		return rc, err
	}

	if f.Host != "" {
		rc.Host = f.Host
	}
	if f.SubscriberPort != 0 {
		rc.SubscriberPort = f.SubscriberPort
	}
	if f.TriggerPort != 0 {
		rc.TriggerPort = f.TriggerPort
	}
	if f.NATSURL != "" {
		rc.NATSURL = f.NATSURL
	}
	return rc, nil
}

// StartRefreshServerCmd runs the refresh broadcast service.
type StartRefreshServerCmd struct {
	RefreshFlags
	Metrics bool `name:"metrics" help:"Serve Prometheus metrics at /metrics on the subscriber port"`
}

func (s *StartRefreshServerCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rc, err := s.resolve()
	if err != nil {
		return err
	}

	opts := []refresh.Option{refresh.WithLogger(g.Logger)}
	if s.Metrics {
		reg := prom.NewRegistry()
		opts = append(opts,
			refresh.WithRecorder(metrics.NewPrometheusRecorder(reg)),
			refresh.WithMetricsHandler(metrics.HTTPHandler(reg)))
	}
	return refresh.NewServer(rc, opts...).Run(ctx)
}

// TriggerRefreshCmd sends one trigger and exits.
type TriggerRefreshCmd struct {
	RefreshFlags
}

func (t *TriggerRefreshCmd) Run(g *Global, _ *CLI) error {
	rc, err := t.resolve()
	if err != nil {
		return err
	}
	if err := refresh.Trigger(context.Background(), rc); err != nil {
		return err
	}
	g.Logger.Info("Refresh triggered")
	return nil
}
