package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/verin/internal/build"
	"git.home.luguber.info/inful/verin/internal/config"
	"git.home.luguber.info/inful/verin/internal/logfields"
	"git.home.luguber.info/inful/verin/internal/refresh"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Posts   string `arg:"" help:"Directory holding posts, templates and config.yaml"`
	Output  string `arg:"" optional:"" help:"Output directory for the generated site" default:"./site"`
	Debug   bool   `short:"d" help:"Embed the live-reload script in every page"`
	RSS     bool   `name:"rss" help:"Also write rss.xml (needs an rss section in config.yaml)"`
	Trigger bool   `short:"t" help:"Notify the refresh server after building"`
}

func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadDir(b.Posts)
	if err != nil {
		return err
	}

	report, err := build.NewService().WithLogger(g.Logger).Run(ctx, build.Request{
		PostsDir:  b.Posts,
		OutputDir: b.Output,
		Config:    cfg,
		Debug:     b.Debug,
		RSS:       b.RSS,
	})
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)

	if b.Trigger {
		if err := refresh.Trigger(ctx, cfg.Refresh); err != nil {
			g.Logger.Warn("Refresh server not notified", logfields.Error(err))
		}
	}
	return report.Err()
}

// printReport writes a human-readable build summary.
func printReport(w io.Writer, r *build.Report) {
	_, _ = fmt.Fprintf(w, "Built %d documents in %s\n", r.Documents, r.Duration.Round(time.Millisecond))
	for _, de := range r.Errors {
		_, _ = fmt.Fprintf(w, "  skipped %s: %v\n", de.File, de.Err)
	}
}
