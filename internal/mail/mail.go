// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

// Package mail delivers verification codes by email.
package mail

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"time"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"

	"github.com/verifid/verifid/internal/auth"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "Verify your email"

// DefaultBodyTemplate renders the HTML body of a verification email.
const DefaultBodyTemplate = `<p>Hi {{.Email}},</p>
<p>Your verification code is: <b>{{.Code}}</b></p>
<p>The code is valid for {{printf "%.f" .TTL.Minutes}} minutes.</p>`

// BodyParams is passed as data when executing the body template.
type BodyParams struct {
	Email string
	Code  string
	TTL   time.Duration
}

// TLS policies accepted by Config.TLS.
const (
	TLSMandatory     = "mandatory"
	TLSOpportunistic = "opportunistic"
	TLSNone          = "none"
)

// Config configures an SMTPNotifier.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From    string
	Subject string
	TLS     string
	Timeout time.Duration
	// CodeTTL is shown in the message body.
	CodeTTL time.Duration
	// BodyTemplate overrides DefaultBodyTemplate.
	BodyTemplate string
}

// sender is satisfied by *gomail.Client.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPNotifier implements auth.Notifier over SMTP.
type SMTPNotifier struct {
	client  sender
	from    string
	subject string
	ttl     time.Duration
	body    *template.Template
	logger  *slog.Logger
}

// NewSMTPNotifier creates an SMTPNotifier. No connection is made until the first send.
func NewSMTPNotifier(cfg Config, logger *slog.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("SMTP host is required")
	}
	// go-mail rejects zero values, so unset ones keep the library defaults.
	var opts []gomail.Option
	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	switch cfg.TLS {
	case "", TLSMandatory:
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	case TLSOpportunistic:
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	case TLSNone:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	default:
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("tls", cfg.TLS).Errorf("unknown TLS policy")
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("host", cfg.Host).Wrap(err)
	}
	return newSMTPNotifier(client, cfg, logger)
}

func newSMTPNotifier(client sender, cfg Config, logger *slog.Logger) (*SMTPNotifier, error) {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	if from == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("sender address is required")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	ttl := cfg.CodeTTL
	if ttl <= 0 {
		ttl = auth.DefaultCodeTTL
	}
	src := cfg.BodyTemplate
	if src == "" {
		src = DefaultBodyTemplate
	}
	body, err := template.New("body").Parse(src)
	if err != nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("operation", "parse body template").Wrap(err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{client: client, from: from, subject: subject, ttl: ttl, body: body, logger: logger}, nil
}

// SendVerificationCode emails code to email.
//
// A permanent rejection of the recipient by the server wraps auth.ErrInvalidRecipient.
// Every other failure is treated as transient.
func (n *SMTPNotifier) SendVerificationCode(ctx context.Context, email, code string) error {
	var buf bytes.Buffer
	if err := n.body.Execute(&buf, BodyParams{Email: email, Code: code, TTL: n.ttl}); err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return oops.Code("MAIL_INVALID_CONFIG").With("from", n.from).Wrap(err)
	}
	if err := msg.To(email); err != nil {
		return oops.With("email", email).Wrap(errors.Join(auth.ErrInvalidRecipient, err))
	}
	msg.Subject(n.subject)
	msg.SetBodyString(gomail.TypeTextHTML, buf.String())

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		var sendErr *gomail.SendError
		if errors.As(err, &sendErr) && sendErr.Reason == gomail.ErrSMTPRcptTo && !sendErr.IsTemp() {
			return oops.With("email", email).Wrap(errors.Join(auth.ErrInvalidRecipient, err))
		}
		return oops.Code("MAIL_SEND_FAILED").With("email", email).Wrap(err)
	}

	n.logger.DebugContext(ctx, "verification email sent", "email", email)
	return nil
}

// LogNotifier writes codes to the log instead of sending them. It is meant for
// local development only.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendVerificationCode logs the code.
func (n *LogNotifier) SendVerificationCode(ctx context.Context, email, code string) error {
	n.logger.InfoContext(ctx, "verification code", "email", email, "code", code)
	return nil
}

var (
	_ auth.Notifier = (*SMTPNotifier)(nil)
	_ auth.Notifier = (*LogNotifier)(nil)
)
