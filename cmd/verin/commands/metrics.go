package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/logfields"
	"git.home.luguber.info/inful/verin/internal/metrics"
)

// metricsServer exposes a registry at /metrics for long-running commands.
type metricsServer struct {
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

func startMetricsServer(addr string, reg *prom.Registry, logger *slog.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, ferrors.InternalError("listen for metrics").WithCause(err).
			WithContext("addr", addr).Fatal().Build()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	m := &metricsServer{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		done: make(chan struct{}),
	}
	go func() {
		defer close(m.done)
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener stopped", logfields.Error(err))
		}
	}()
	logger.Info("Serving metrics", logfields.Addr(ln.Addr().String()))
	return m, nil
}

func (m *metricsServer) Addr() net.Addr { return m.ln.Addr() }

func (m *metricsServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
	<-m.done
}
