package refresh

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/nats-io/nats.go"
	"golang.org/x/net/websocket"

	"git.home.luguber.info/inful/verin/internal/config"
	"git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/logfields"
	"git.home.luguber.info/inful/verin/internal/metrics"
)

// TriggerToken is the line a trigger client sends.
const TriggerToken = "reload"

// triggerAck is written back to accepted trigger connections.
const triggerAck = "ok"

const (
	triggerReadTimeout = 2 * time.Second
	maxTriggerLine     = 64
)

// Server accepts subscriber WebSockets and trigger connections and owns the
// Hub between Start and Shutdown.
type Server struct {
	cfg      config.RefreshConfig
	hub      *Hub
	recorder metrics.Recorder
	logger   *slog.Logger
	metricsH http.Handler

	httpServer *http.Server
	subLn      net.Listener
	triggerLn  net.Listener
	scheduler  gocron.Scheduler
	nc         *nats.Conn

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopping chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler serves h at /metrics on the subscriber port.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsH = h }
}

// NewServer creates a server for cfg. Port 0 picks a free port; a
// non-positive ping interval disables heartbeats.
func NewServer(cfg config.RefreshConfig, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		stopping: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.WriteTimeout <= 0 {
		s.cfg.WriteTimeout = config.DefaultWriteTimeout
	}
	return s
}

// Hub returns the subscriber registry. It is nil before Start.
func (s *Server) Hub() *Hub { return s.hub }

// SubscriberAddr returns the bound subscriber address. It is nil before Start.
func (s *Server) SubscriberAddr() net.Addr {
	if s.subLn == nil {
		return nil
	}
	return s.subLn.Addr()
}

// TriggerAddr returns the bound trigger address. It is nil before Start.
func (s *Server) TriggerAddr() net.Addr {
	if s.triggerLn == nil {
		return nil
	}
	return s.triggerLn.Addr()
}

// Start binds both listeners, connects the optional NATS relay, schedules the
// heartbeat and begins serving in the background.
func (s *Server) Start() error {
	s.hub = NewHub(s.recorder, s.logger)

	subAddr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.SubscriberPort))
	subLn, err := net.Listen("tcp", subAddr)
	if err != nil {
		s.hub.Close()
		return errors.InternalError("listen for subscribers").WithCause(err).
			WithContext("addr", subAddr).Fatal().Build()
	}
	triggerAddr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.TriggerPort))
	triggerLn, err := net.Listen("tcp", triggerAddr)
	if err != nil {
		_ = subLn.Close()
		s.hub.Close()
		return errors.InternalError("listen for triggers").WithCause(err).
			WithContext("addr", triggerAddr).Fatal().Build()
	}
	s.subLn, s.triggerLn = subLn, triggerLn

	if err := s.startRelay(); err != nil {
		s.closeListeners()
		s.hub.Close()
		return err
	}
	if err := s.startHeartbeat(); err != nil {
		s.stopRelay()
		s.closeListeners()
		s.hub.Close()
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", websocket.Server{
		// Pages may be opened from file:// and send a null origin.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   s.serveSubscriber,
	})
	if s.metricsH != nil {
		mux.Handle("/metrics", s.metricsH)
	}
	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(subLn); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Subscriber listener stopped", logfields.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.acceptTriggers(triggerLn)
	}()

	s.logger.Info("Refresh server listening",
		slog.String("subscribers", subLn.Addr().String()),
		slog.String("triggers", triggerLn.Addr().String()))
	return nil
}

// Run starts the server and blocks until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting connections and drops every subscriber. The
// registry does not survive a restart.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopping)
		if s.scheduler != nil {
			if serr := s.scheduler.Shutdown(); serr != nil {
				s.logger.Warn("Heartbeat scheduler shutdown failed", logfields.Error(serr))
			}
		}
		s.stopRelay()
		if s.triggerLn != nil {
			_ = s.triggerLn.Close()
		}
		// Dropping subscribers first ends their handlers so Shutdown does not
		// wait on hijacked connections.
		if s.hub != nil {
			s.hub.Close()
		}
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		s.wg.Wait()
		s.logger.Info("Refresh server stopped")
	})
	return err
}

func (s *Server) closeListeners() {
	if s.subLn != nil {
		_ = s.subLn.Close()
	}
	if s.triggerLn != nil {
		_ = s.triggerLn.Close()
	}
}

// acceptTriggers handles trigger connections one at a time.
func (s *Server) acceptTriggers(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return
			default:
			}
			if stderrors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Trigger accept failed", logfields.Error(err))
			continue
		}
		s.handleTrigger(conn)
	}
}

func (s *Server) handleTrigger(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	remote := conn.RemoteAddr().String()

	_ = conn.SetDeadline(time.Now().Add(triggerReadTimeout))
	line, err := bufio.NewReader(io.LimitReader(conn, maxTriggerLine)).ReadString('\n')
	if err != nil && !stderrors.Is(err, io.EOF) {
		s.recorder.IncTrigger(metrics.TriggerRejected)
		s.logger.Warn("Ignoring unreadable trigger", logfields.Addr(remote), logfields.Error(err))
		return
	}
	if strings.TrimSpace(line) != TriggerToken {
		s.recorder.IncTrigger(metrics.TriggerRejected)
		s.logger.Warn("Ignoring trigger with unexpected token", logfields.Addr(remote))
		return
	}

	s.recorder.IncTrigger(metrics.TriggerTCP)
	s.hub.Publish(MessageReload)
	s.logger.Info("Request taken into account", logfields.Addr(remote), logfields.Subscribers(s.hub.Len()))
	_, _ = io.WriteString(conn, triggerAck+"\n")
}

// serveSubscriber pumps hub messages to one WebSocket until either side
// goes away.
func (s *Server) serveSubscriber(ws *websocket.Conn) {
	defer func() { _ = ws.Close() }()

	sub, err := s.hub.Subscribe()
	if err != nil {
		return
	}
	defer s.hub.Remove(sub.ID())

	// Browsers never send anything; a read error means the page went away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var discard string
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-sub.Done():
			return
		case msg := <-sub.Messages():
			_ = ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := websocket.Message.Send(ws, msg); err != nil {
				werr := errors.SubscriberWriteFailure(sub.ID()).WithCause(err).Build()
				s.logger.Debug("Dropping refresh subscriber", logfields.SubscriberID(sub.ID()), logfields.Error(werr))
				s.hub.remove(sub.ID(), metrics.DropWriteFailed)
				return
			}
		}
	}
}

// startHeartbeat schedules a ping to all subscribers so dead connections are
// noticed between triggers.
func (s *Server) startHeartbeat() error {
	if s.cfg.PingInterval <= 0 {
		return nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return errors.InternalError("create heartbeat scheduler").WithCause(err).Build()
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.cfg.PingInterval),
		gocron.NewTask(func() { s.hub.Publish(MessagePing) }),
		gocron.WithName("refresh-heartbeat"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return errors.InternalError("schedule heartbeat").WithCause(err).Build()
	}
	sched.Start()
	s.scheduler = sched
	return nil
}

// startRelay subscribes to the NATS trigger subject when a NATS URL is set.
func (s *Server) startRelay() error {
	if s.cfg.NATSURL == "" {
		return nil
	}
	nc, err := nats.Connect(s.cfg.NATSURL, nats.Name("verin-refresh-server"))
	if err != nil {
		return errors.ServerUnreachable(s.cfg.NATSURL).WithCause(err).Build()
	}
	_, err = nc.Subscribe(s.cfg.NATSSubject, func(m *nats.Msg) {
		if strings.TrimSpace(string(m.Data)) != TriggerToken {
			s.recorder.IncTrigger(metrics.TriggerRejected)
			return
		}
		s.recorder.IncTrigger(metrics.TriggerNATS)
		s.hub.Publish(MessageReload)
		s.logger.Info("Request taken into account", slog.String("subject", m.Subject), logfields.Subscribers(s.hub.Len()))
	})
	if err != nil {
		nc.Close()
		return errors.InternalError("subscribe to trigger subject").WithCause(err).
			WithContext("subject", s.cfg.NATSSubject).Build()
	}
	s.nc = nc
	s.logger.Info("Relaying NATS triggers", slog.String("subject", s.cfg.NATSSubject))
	return nil
}

func (s *Server) stopRelay() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
	}
	s.nc = nil
}
