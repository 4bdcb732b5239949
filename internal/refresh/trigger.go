package refresh

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/verin/internal/config"
	"git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/retry"
)

// DefaultTriggerTimeout bounds a whole trigger exchange.
const DefaultTriggerTimeout = 2 * time.Second

// Send delivers one trigger to the TCP trigger port at addr and waits for the
// server to acknowledge it.
func Send(ctx context.Context, addr string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTriggerTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.ServerUnreachable(addr).WithCause(err).Build()
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := io.WriteString(conn, TriggerToken+"\n"); err != nil {
		return errors.ServerUnreachable(addr).WithCause(err).Build()
	}

	reply, err := bufio.NewReader(io.LimitReader(conn, maxTriggerLine)).ReadString('\n')
	if strings.TrimSpace(reply) != triggerAck {
		b := errors.NewError(errors.CategoryUnreachable, "refresh server did not acknowledge trigger").
			WithContext("addr", addr)
		if err != nil {
			b = b.WithCause(err)
		}
		return b.Build()
	}
	return nil
}

// SendNATS publishes one trigger on subject and flushes it to the server.
func SendNATS(ctx context.Context, url, subject string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTriggerTimeout
	}
	nc, err := nats.Connect(url, nats.Name("verin-trigger"), nats.Timeout(timeout))
	if err != nil {
		return errors.ServerUnreachable(url).WithCause(err).Build()
	}
	defer nc.Close()

	if err := nc.Publish(subject, []byte(TriggerToken)); err != nil {
		return errors.ServerUnreachable(url).WithCause(err).WithContext("subject", subject).Build()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := nc.FlushWithContext(ctx); err != nil {
		return errors.ServerUnreachable(url).WithCause(err).WithContext("subject", subject).Build()
	}
	return nil
}

// Trigger sends one trigger as configured: over NATS when a NATS URL is set,
// otherwise to the TCP trigger port. Failed sends are retried per the
// trigger_* settings.
func Trigger(ctx context.Context, cfg config.RefreshConfig) error {
	policy := retry.NewPolicy(retry.Mode(cfg.TriggerBackoff), cfg.TriggerRetryDelay, 0, cfg.TriggerRetries)
	return policy.Do(ctx, func(ctx context.Context) error {
		if cfg.NATSURL != "" {
			return SendNATS(ctx, cfg.NATSURL, cfg.NATSSubject, cfg.WriteTimeout)
		}
		return Send(ctx, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.TriggerPort)), cfg.WriteTimeout)
	})
}
