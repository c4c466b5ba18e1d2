// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify emails the configured operator address when records are
// scanned. Alerts are best-effort and throttled per record.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/scanlinkhq/scanlink/internal/config"
	"github.com/scanlinkhq/scanlink/internal/sse"
)

// DefaultThrottle is the minimum interval between alert mails for the same
// record when no throttle is configured.
const DefaultThrottle = 15 * time.Minute

// Notifier subscribes to the scan event hub and sends alert emails.
type Notifier struct {
	cfg      *config.SMTPConfig
	throttle time.Duration
	send     func(subject, body string) error

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSender injects the mail delivery function, used by tests.
func WithSender(send func(subject, body string) error) Option {
	return func(n *Notifier) { n.send = send }
}

// WithClock injects a clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// New creates a Notifier. SMTP host, from and to addresses are required.
func New(cfg *config.SMTPConfig, opts ...Option) (*Notifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	if cfg.To == "" {
		return nil, fmt.Errorf("alert recipient address is required")
	}

	throttle := DefaultThrottle
	if cfg.ThrottleMinutes > 0 {
		throttle = time.Duration(cfg.ThrottleMinutes) * time.Minute
	}

	n := &Notifier{
		cfg:      cfg,
		throttle: throttle,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
	n.send = n.sendMail
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Run subscribes to the hub and delivers alerts until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, hub *sse.Hub) {
	events, dispose := hub.SubscribeAll()
	defer dispose()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			n.handle(event)
		}
	}
}

func (n *Notifier) handle(event sse.ScanEvent) {
	if !n.shouldSend(event.RecordID) {
		return
	}

	subject := fmt.Sprintf("Code %q was scanned", event.Label)
	body := fmt.Sprintf("The code %q (%s) was scanned at %s. Total scans: %d.\n",
		event.Label, event.RecordID,
		time.UnixMilli(event.ScannedAt).Format(time.RFC1123), event.ScanCount)

	if err := n.send(subject, body); err != nil {
		slog.Warn("scan alert delivery failed", "id", event.RecordID, "error", err)
	}
}

// shouldSend applies the per-record throttle and records the send time.
func (n *Notifier) shouldSend(recordID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.lastSent[recordID]; ok && now.Sub(last) < n.throttle {
		return false
	}
	n.lastSent[recordID] = now
	return true
}

// sendMail delivers one alert via SMTP using go-mail.
func (n *Notifier) sendMail(subject, body string) error {
	msg := mail.NewMsg()

	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
	}
	if n.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if n.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	return client.DialAndSend(msg)
}
