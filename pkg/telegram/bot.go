package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIURL = "https://api.telegram.org"

type Bot struct {
	chatID  string
	baseURL string
	client  *http.Client
}

func NewBot(token, chatID string) *Bot {
	return NewBotWithURL(defaultAPIURL, token, chatID)
}

func NewBotWithURL(apiURL, token, chatID string) *Bot {
	return &Bot{
		chatID:  chatID,
		baseURL: strings.TrimRight(apiURL, "/") + "/bot" + token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends text to the configured admin chat.
func (b *Bot) Notify(ctx context.Context, text string) error {
	return b.SendMessage(ctx, b.chatID, text)
}

func (b *Bot) SendMessage(ctx context.Context, chatID, text string) error {
	params := url.Values{}
	params.Add("chat_id", chatID)
	params.Add("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sendMessage", strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}

	return nil
}
