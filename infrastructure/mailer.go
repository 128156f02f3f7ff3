package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"shiftmatch/application"
)

const resendBaseURL = "https://api.resend.com"

// ResendMailer delivers email through the Resend HTTP API.
type ResendMailer struct {
	http   *resty.Client
	from   string
	logger *zap.Logger
}

func NewResendMailer(apiKey, from string, logger *zap.Logger) *ResendMailer {
	return newResendMailer(resendBaseURL, apiKey, from, logger)
}

func newResendMailer(baseURL, apiKey, from string, logger *zap.Logger) *ResendMailer {
	return &ResendMailer{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json"),
		from:   from,
		logger: logger.Named("resend"),
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type resendResult struct {
	ID string `json:"id"`
}

func (m *ResendMailer) Send(ctx context.Context, e application.Email) error {
	var out resendResult
	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(resendEmail{From: m.from, To: e.To, Subject: e.Subject, Text: e.Body}).
		SetResult(&out).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("failed to call Resend: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}
	m.logger.Debug("email accepted", zap.String("id", out.ID), zap.Int("recipients", len(e.To)))
	return nil
}

// LogMailer only logs. It stands in for Resend in development.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mail")}
}

func (m *LogMailer) Send(_ context.Context, e application.Email) error {
	m.logger.Info("email not sent (no RESEND_API_KEY)",
		zap.Strings("to", e.To), zap.String("subject", e.Subject))
	return nil
}

// NewMailer picks Resend when an API key is configured.
func NewMailer(cfg *Config, logger *zap.Logger) application.Mailer {
	if cfg.ResendAPIKey == "" {
		return NewLogMailer(logger)
	}
	return NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom, logger)
}
