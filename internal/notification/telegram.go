package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dolarwatch/internal/httpx"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *httpx.Client
	logger   *slog.Logger
}

// TelegramOption customizes a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithAPIBase points the notifier at another Bot API host.
func WithAPIBase(url string) TelegramOption {
	return func(t *TelegramNotifier) { t.apiBase = strings.TrimRight(url, "/") }
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: default target chat/group/channel ID
func NewTelegramNotifier(botToken, chatID string, logger *slog.Logger, opts ...TelegramOption) *TelegramNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  DefaultTelegramAPI,
		client:   httpx.New(10 * time.Second),
		logger:   logger.With(slog.String("component", "telegram")),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	chatID := msg.ChatID
	if chatID == "" {
		chatID = t.chatID
	}
	if chatID == "" {
		return &SendError{Channel: "telegram", Err: errors.New("no chat id")}
	}

	payload := map[string]any{
		"chat_id": chatID,
		"text":    msg.Text,
	}
	if msg.Format != FormatPlain {
		payload["parse_mode"] = string(msg.Format)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &SendError{Channel: "telegram", Err: fmt.Errorf("marshal: %w", err)}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &SendError{Channel: "telegram", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(ctx, req)
	if err != nil {
		return &SendError{Channel: "telegram", Err: fmt.Errorf("send: %w", err)}
	}
	defer resp.Body.Close()

	var tr telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&tr)
	if resp.StatusCode != http.StatusOK || !tr.OK {
		return &SendError{Channel: "telegram", Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, tr.Description)}
	}

	t.logger.DebugContext(ctx, "sent message", "chat_id", chatID, "bytes", len(msg.Text))
	return nil
}
