package notifier

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/ratelimit"
)

const DEFAULT_TELEGRAM_API_URL = "https://api.telegram.org"

// Config holds the Telegram Bot API configuration
type Config struct {
	APIURL   string
	BotToken string
	ChatID   string
}

// Notifier defines the interface for posting alerts to the messaging channel
//
//go:generate mockgen -source=telegram.go -destination=../mocks/notifier.go -package=mocks -mock_names=Notifier=MockNotifier
type Notifier interface {
	// Send posts text to the configured chat. It makes exactly one attempt.
	Send(ctx context.Context, text string) error
}

// sendMessageRequest is the sendMessage payload. Text is sent as is, without a parse mode.
type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// TelegramNotifier implements Notifier using the Telegram Bot API
type TelegramNotifier struct {
	httpClient adapter.HTTPClient
	limiter    ratelimit.Limiter
	json       adapter.JSON
	cfg        Config
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(httpClient adapter.HTTPClient, limiter ratelimit.Limiter, json adapter.JSON, cfg Config) Notifier {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DEFAULT_TELEGRAM_API_URL
	}

	return &TelegramNotifier{
		httpClient: httpClient,
		limiter:    limiter,
		json:       json,
		cfg:        cfg,
	}
}

func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	var missing []string
	if n.cfg.BotToken == "" {
		missing = append(missing, "telegram.bot_token")
	}
	if n.cfg.ChatID == "" {
		missing = append(missing, "telegram.chat_id")
	}
	if len(missing) > 0 {
		return &domain.ConfigError{Missing: missing}
	}

	payload, err := n.json.Marshal(sendMessageRequest{
		ChatID:                n.cfg.ChatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := n.limiter.Wait(ctx, ratelimit.PROVIDER_TELEGRAM); err != nil {
		return &domain.UpstreamError{Service: domain.SERVICE_TELEGRAM, Err: err}
	}

	_, err = n.httpClient.Post(ctx, n.sendMessageURL(), "application/json", bytes.NewReader(payload))
	if err != nil {
		if statusErr, ok := adapter.AsHTTPStatusError(err); ok {
			return &domain.UpstreamError{
				Service:    domain.SERVICE_TELEGRAM,
				StatusCode: statusErr.StatusCode,
				Message:    statusErr.Body,
			}
		}
		return &domain.UpstreamError{Service: domain.SERVICE_TELEGRAM, Err: err}
	}

	return nil
}

func (n *TelegramNotifier) sendMessageURL() string {
	return fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.cfg.APIURL, "/"), n.cfg.BotToken)
}
