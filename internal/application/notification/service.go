// Package notification renders account notifications and hands them to a
// delivery driver. Delivery is best-effort and bounded in time.
package notification

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/go-auth-nosql/internal/observability"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds one delivery when ServiceDeps.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Message is one rendered notification.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message. Implementations must honor ctx.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// TemplateSource supplies template bodies that replace the built-in ones.
// It returns an error wrapping domain.ErrNotFound when no override exists.
type TemplateSource interface {
	Fetch(ctx context.Context, name string) (string, error)
}

type ServiceDeps struct {
	Sender    Sender
	Templates TemplateSource
	Limiter   *rate.Limiter
	Timeout   time.Duration
	ClientURL string
	Logger    *slog.Logger
}

type Service struct {
	sender    Sender
	limiter   *rate.Limiter
	timeout   time.Duration
	clientURL string
	log       *slog.Logger
	templates map[Kind]*template.Template
}

// NewService parses the templates, applying overrides from deps.Templates
// when one is configured.
func NewService(ctx context.Context, deps ServiceDeps) (*Service, error) {
	if deps.Sender == nil {
		return nil, errors.New("notification sender is required")
	}
	s := &Service{
		sender:    deps.Sender,
		limiter:   deps.Limiter,
		timeout:   deps.Timeout,
		clientURL: deps.ClientURL,
		log:       deps.Logger,
		templates: make(map[Kind]*template.Template, len(kinds)),
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	for _, k := range kinds {
		body := builtin[k]
		if deps.Templates != nil {
			override, err := deps.Templates.Fetch(ctx, string(k))
			switch {
			case err == nil:
				body = override
				s.log.Info("using template override", "kind", k)
			case errors.Is(err, domain.ErrNotFound):
			default:
				s.log.Warn("template override unavailable, using built-in", "kind", k, "err", err)
			}
		}
		t, err := parseTemplate(k, body)
		if err != nil {
			return nil, err
		}
		s.templates[k] = t
	}
	return s, nil
}

func (s *Service) SendVerification(ctx context.Context, to, code string) error {
	return s.send(ctx, KindVerification, to, templateData{Email: to, Code: code})
}

func (s *Service) SendWelcome(ctx context.Context, to, name string) error {
	return s.send(ctx, KindWelcome, to, templateData{Email: to, Name: name})
}

// SendPasswordReset mails the link <client URL>/reset-password/<token>.
func (s *Service) SendPasswordReset(ctx context.Context, to, token string) error {
	return s.send(ctx, KindPasswordReset, to, templateData{Email: to, ResetURL: s.ResetURL(token)})
}

func (s *Service) SendResetSuccess(ctx context.Context, to string) error {
	return s.send(ctx, KindResetSuccess, to, templateData{Email: to})
}

func (s *Service) ResetURL(token string) string {
	return s.clientURL + "/reset-password/" + token
}

// send renders and delivers one message. The deadline covers pacing and
// delivery and is detached from ctx cancellation, so a client hanging up
// after a committed transition does not abort the notification.
func (s *Service) send(ctx context.Context, kind Kind, to string, data templateData) (err error) {
	defer func() {
		observability.RecordNotification(string(kind), err)
		if err != nil {
			s.log.Warn("notification failed", "kind", kind, "to", to, "err", err)
		}
	}()

	subject := subjects[kind]
	html, err := render(s.templates[kind], subject, data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for send slot: %w: %w", domain.ErrDependency, err)
		}
	}
	if err := s.sender.Send(ctx, Message{Kind: kind, To: to, Subject: subject, HTML: html}); err != nil {
		return fmt.Errorf("send %s: %w: %w", kind, domain.ErrDependency, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. The body is
// logged at debug level so local runs can read codes and links.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	l.log.InfoContext(ctx, "notification", "kind", msg.Kind, "to", msg.To, "subject", msg.Subject)
	l.log.DebugContext(ctx, "notification body", "kind", msg.Kind, "to", msg.To, "html", msg.HTML)
	return ctx.Err()
}
