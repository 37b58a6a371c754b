package mailer

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Plain   string
	HTML    string
}

// Sender delivers messages to account holders. Verification codes are
// undeliverable without it, so code-issuing flows treat a send failure as
// fatal; lock and unlock notices stay best-effort.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid sends via the SendGrid v3 API.
type SendGrid struct {
	client    *sendgrid.Client
	fromName  string
	fromAddr  string
	sandboxed bool
}

var _ Sender = (*SendGrid)(nil)

// NewSendGrid builds a sender. Sandbox mode validates the request with
// SendGrid without delivering, for staging environments.
func NewSendGrid(apiKey, fromName, fromAddr string, sandboxed bool) *SendGrid {
	return &SendGrid{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromAddr:  fromAddr,
		sandboxed: sandboxed,
	}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail("", msg.To)
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.Plain, msg.HTML)
	if s.sandboxed {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		m.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("mailer: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mailer: sendgrid send: status %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes messages to a logger instead of delivering them. It keeps
// development environments usable without SendGrid credentials: the code the
// user would have received ends up in the server log.
type LogSender struct {
	Logger *log.Logger
}

var _ Sender = (*LogSender)(nil)

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.Printf(`{"type":"mail","to":%q,"subject":%q,"body":%q}`, msg.To, msg.Subject, msg.Plain)
	return nil
}

// Recorder captures sent messages for tests. When Err is set every Send
// fails with it.
type Recorder struct {
	mu   sync.Mutex
	Err  error
	sent []Message
}

var _ Sender = (*Recorder)(nil)

func (r *Recorder) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
