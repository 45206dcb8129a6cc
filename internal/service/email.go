package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/resepia/backend/internal/models"
)

// Mailer sends account lifecycle emails
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, user *models.User) error
	SendAccountDeletedEmail(ctx context.Context, user *models.User) error
}

// EmailConfig holds SMTP settings; an empty Host logs emails instead of sending
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type EmailService struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
	logger *zap.Logger
}

var _ Mailer = (*EmailService)(nil)

func NewEmailService(cfg EmailConfig, log *zap.Logger) *EmailService {
	s := &EmailService{cfg: cfg, logger: log}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	log.Info("Email service initialized",
		zap.String("smtp_host", cfg.Host),
		zap.Bool("enabled", s.dialer != nil),
	)
	return s
}

// SendEmail delivers one HTML message
func (s *EmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.dialer == nil {
		s.logger.Info("SMTP not configured, logging email",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, user *models.User) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Welcome to Resepia! Sign in to set up your profile and share your first recipe.</p>
<p>Happy cooking,<br>The Resepia team</p>`, html.EscapeString(greetingName(user)))
	return s.SendEmail(ctx, user.Email, "Welcome to Resepia!", body)
}

func (s *EmailService) SendAccountDeletedEmail(ctx context.Context, user *models.User) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your Resepia account and everything you shared (recipes, comments and reviews) has been deleted.</p>
<p>If this was not you, reply to this email.</p>`, html.EscapeString(greetingName(user)))
	return s.SendEmail(ctx, user.Email, "Your Resepia account has been deleted", body)
}

func greetingName(user *models.User) string {
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		name, _, _ = strings.Cut(user.Email, "@")
	}
	return models.TitleName(name)
}
