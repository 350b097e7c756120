package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

const telegramAPI = "https://api.telegram.org"

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client
	// BaseBackoff is the first retry delay; it doubles on every attempt.
	BaseBackoff time.Duration

	logger log.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, logger log.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  telegramAPI,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseBackoff: time.Second,
		logger:      logger,
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.BaseBackoff * time.Duration(1<<uint(i))
		level.Warn(t.logger).Log("msg", "telegram send failed", "attempt", i+1, "max", maxRetries+1, "err", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
