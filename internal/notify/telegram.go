package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Sender delivers one message. It does not retry.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TelegramSender posts messages through the Bot API sendMessage method with
// HTML parse mode.
type TelegramSender struct {
	BotToken string
	ChatID   string
	// BaseURL overrides the Bot API host, mainly for tests.
	BaseURL string
	HTTP    *http.Client
}

type telegramSendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send implements Sender.
func (s TelegramSender) Send(ctx context.Context, text string) error {
	if s.BotToken == "" || s.ChatID == "" {
		return fmt.Errorf("missing bot_token/chat_id")
	}
	base := s.BaseURL
	if base == "" {
		base = defaultTelegramAPI
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?parse_mode=html", base, url.PathEscape(s.BotToken))

	b, err := json.Marshal(telegramSendMessageRequest{ChatID: s.ChatID, Text: text})
	if err != nil {
		return err
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var parsed telegramResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Description != "" {
			return fmt.Errorf("telegram http %d: %s", resp.StatusCode, parsed.Description)
		}
		return fmt.Errorf("telegram http %d", resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram rejected message: %s", parsed.Description)
	}
	return nil
}
