package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/resilience"
)

const DefaultSubject = "complaint.submitted"

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Publisher announces finished submissions on a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	pub     msgPublisher
	subject string
	guard   *resilience.Guard
	logger  *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	Guard                *resilience.Guard
	Logger               *slog.Logger
}

func New(url, subject string) (*Publisher, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 10
	}
	retryOnFailedConnect := false
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("complaint-desk"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := newPublisher(conn, subject, options.Guard, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(pub msgPublisher, subject string, guard *resilience.Guard, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{pub: pub, subject: subject, guard: guard, logger: logger}
}

// Close drains pending publishes before closing the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		p.logger.Warn("nats_flush_failed", "error", err)
	}
	p.conn.Close()
}

func (p *Publisher) PublishComplaintSubmitted(ctx context.Context, event domain.ComplaintSubmittedEvent) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := p.pub.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.guard != nil {
		err = p.guard.Do(ctx, "nats.publish", call, tripsBreaker)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return publishError(err)
	}
	return nil
}

// message sets Nats-Msg-Id to the tracking code plus evidence outcome.
func (p *Publisher) message(event domain.ComplaintSubmittedEvent) (*nats.Msg, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal complaint submitted event: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, event.TrackingCode+":"+string(event.Evidence))
	msg.Header.Set("Content-Type", "application/json")
	return msg, nil
}
