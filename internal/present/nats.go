package present

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/model"
)

// natsConn is the subset of *nats.Conn the presenter uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	IsConnected() bool
	Drain() error
}

// Message is the JSON payload published for each notification.
type Message struct {
	model.NotificationRequest
	SentAt time.Time `json:"sent_at"`
}

// Tap is the JSON payload a client publishes on "<subject>.tap".
type Tap struct {
	ID string `json:"id"`
}

// NATSPresenter publishes notifications to a NATS subject for push
// gateways and listens for taps on "<subject>.tap".
type NATSPresenter struct {
	conn    natsConn
	subject string
	log     *zap.Logger

	mu    sync.Mutex
	onTap func(id string)
	sub   *nats.Subscription
}

// DialNATS connects to url and returns a presenter publishing on subject.
func DialNATS(url, subject string, log *zap.Logger) (*NATSPresenter, error) {
	nc, err := nats.Connect(url, nats.Name("daypulse"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p, err := NewNATSPresenter(nc, subject, log)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

// NewNATSPresenter wraps an existing connection.
func NewNATSPresenter(conn natsConn, subject string, log *zap.Logger) (*NATSPresenter, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &NATSPresenter{conn: conn, subject: subject, log: log}
	sub, err := conn.Subscribe(p.TapSubject(), p.handleTap)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to taps: %w", err)
	}
	p.sub = sub
	log.Info("NATS presenter ready", zap.String("subject", subject))
	return p, nil
}

// TapSubject is where clients report taps.
func (p *NATSPresenter) TapSubject() string { return p.subject + ".tap" }

func (p *NATSPresenter) Present(_ context.Context, req model.NotificationRequest) error {
	data, err := json.Marshal(Message{NotificationRequest: req, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	p.log.Debug("published notification", zap.String("id", req.ID), zap.String("subject", p.subject))
	return nil
}

// Permission is granted while the connection is up.
func (p *NATSPresenter) Permission(context.Context) (model.Permission, error) {
	if p.conn.IsConnected() {
		return model.PermissionGranted, nil
	}
	return model.PermissionPrompt, nil
}

func (p *NATSPresenter) OnTap(fn func(id string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTap = fn
}

func (p *NATSPresenter) handleTap(msg *nats.Msg) {
	var tap Tap
	if err := json.Unmarshal(msg.Data, &tap); err != nil || tap.ID == "" {
		p.log.Warn("ignoring malformed tap", zap.ByteString("data", msg.Data), zap.Error(err))
		return
	}
	p.mu.Lock()
	fn := p.onTap
	p.mu.Unlock()
	if fn != nil {
		fn(tap.ID)
	}
}

// Close unsubscribes and drains the connection.
func (p *NATSPresenter) Close() error {
	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}
	return p.conn.Drain()
}
