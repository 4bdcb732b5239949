package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/verin/internal/build"
	"git.home.luguber.info/inful/verin/internal/config"
	"git.home.luguber.info/inful/verin/internal/logfields"
	"git.home.luguber.info/inful/verin/internal/metrics"
	"git.home.luguber.info/inful/verin/internal/refresh"
	"git.home.luguber.info/inful/verin/internal/watch"
)

// WatchCmd builds in debug mode, then rebuilds and triggers a refresh whenever
// the posts directory changes.
type WatchCmd struct {
	Posts    string        `arg:"" help:"Directory holding posts, templates and config.yaml"`
	Output   string        `arg:"" optional:"" help:"Output directory for the generated site" default:"./site"`
	RSS      bool          `name:"rss" help:"Also write rss.xml"`
	Debounce time.Duration `name:"debounce" default:"300ms" help:"Quiet period before a rebuild"`
	Metrics  string        `name:"metrics" placeholder:"ADDR" help:"Serve build metrics at http://ADDR/metrics (e.g. localhost:9090)"`
}

func (w *WatchCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadDir(w.Posts)
	if err != nil {
		return err
	}

	svc := build.NewService().WithLogger(g.Logger)
	if w.Metrics != "" {
		reg := prom.NewRegistry()
		ms, err := startMetricsServer(w.Metrics, reg, g.Logger)
		if err != nil {
			return err
		}
		defer ms.Close()
		svc.WithRecorder(metrics.NewPrometheusRecorder(reg))
	}
	req := build.Request{PostsDir: w.Posts, OutputDir: w.Output, Config: cfg, Debug: true, RSS: w.RSS}

	report, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	last := report.Fingerprint

	rebuild := func(ctx context.Context) {
		// Templates and config may have changed too.
		if fresh, err := config.LoadDir(w.Posts); err == nil {
			req.Config = fresh
		} else {
			g.Logger.Warn("Keeping previous configuration", logfields.Error(err))
		}
		report, err := svc.Run(ctx, req)
		if err != nil {
			g.Logger.Error("Rebuild failed", logfields.Error(err))
			return
		}
		printReport(os.Stdout, report)
		if report.Fingerprint == last {
			g.Logger.Debug("Output unchanged; not refreshing", logfields.Fingerprint(last))
			return
		}
		last = report.Fingerprint
		if err := refresh.Trigger(ctx, req.Config.Refresh); err != nil {
			g.Logger.Warn("Refresh server not notified", logfields.Error(err))
		}
	}

	g.Logger.Info("Watching for changes", logfields.Output(w.Output), slog.String("dir", w.Posts))
	return watch.Run(ctx, watch.Options{
		Dir:      w.Posts,
		Ignore:   []string{w.Output},
		Debounce: w.Debounce,
		Logger:   g.Logger,
	}, rebuild)
}
