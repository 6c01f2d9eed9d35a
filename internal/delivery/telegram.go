package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// TelegramConfig configures the Telegram channel sender.
type TelegramConfig struct {
	Token   string
	ChatID  int64 // target channel or chat
	Timeout time.Duration
}

// Telegram publishes posts to a single Telegram channel via the Bot API.
type Telegram struct {
	bot     *tele.Bot
	chatID  int64
	timeout time.Duration
	log     *slog.Logger
}

// NewTelegram creates the Telegram sender. The token is validated against
// the Bot API during construction.
func NewTelegram(cfg TelegramConfig, log *slog.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// No poller: this bot only sends.
	bot, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: cfg.ChatID, timeout: timeout, log: log}, nil
}

// Send publishes one post as an HTML-formatted channel message.
func (t *Telegram) Send(ctx context.Context, msg *Message) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	text := formatPost(msg)

	type sendResult struct {
		m   *tele.Message
		err error
	}
	ch := make(chan sendResult, 1)
	go func() {
		m, err := t.bot.Send(tele.ChatID(t.chatID), text, tele.ModeHTML)
		ch <- sendResult{m, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("telegram send failed: %w", res.err)
		}
		t.log.Debug("post published",
			"post_id", msg.PostID,
			"chat_id", res.m.Chat.ID,
			"message_id", res.m.ID,
		)
		return &Result{
			ChatID:    res.m.Chat.ID,
			MessageID: res.m.ID,
		}, nil
	}
}

// formatPost renders the message body with a bold title line.
func formatPost(msg *Message) string {
	var b strings.Builder
	if msg.Title != "" {
		b.WriteString("<b>")
		b.WriteString(escapeHTML(msg.Title))
		b.WriteString("</b>\n\n")
	}
	b.WriteString(escapeHTML(msg.Body))
	return b.String()
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
