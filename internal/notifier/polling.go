package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/kit/log/level"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
// Messages from chats other than ChatID are ignored.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}

	for {
		select {
		case <-ctx.Done():
			level.Info(t.logger).Log("msg", "telegram polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			level.Warn(t.logger).Log("msg", "polling request failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if fmt.Sprint(update.Message.Chat.ID) != t.ChatID {
				level.Warn(t.logger).Log("msg", "ignoring command from unknown chat", "chat_id", update.Message.Chat.ID)
				continue
			}
			text := strings.TrimSpace(update.Message.Text)
			level.Info(t.logger).Log("msg", "received command", "command", text)
			reply := handler(ctx, text)
			if reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					level.Error(t.logger).Log("msg", "send reply", "err", err)
				}
			}
		}
	}
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s?offset=%d&timeout=30", t.endpoint("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}
	var result struct {
		OK     bool             `json:"ok"`
		Result []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return result.Result, nil
}
