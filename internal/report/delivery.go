package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Alias1177/spacradar/internal/platform/http"
)

// Sender delivers a rendered report to one chat channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, targetDate, content, summary string) error
}

// TelegramSender delivers the report as a Markdown document to a chat.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSender creates a sender for the given bot token and chat.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}

	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

func (s *TelegramSender) Channel() string { return "telegram" }

func (s *TelegramSender) Send(_ context.Context, targetDate, content, summary string) error {
	doc := tgbotapi.NewDocument(s.chatID, tgbotapi.FileBytes{
		Name:  Filename(targetDate),
		Bytes: []byte(content),
	})
	doc.Caption = fmt.Sprintf("📊 SPAC Anomaly Report for %s\n%s", targetDate, summary)

	_, err := s.bot.Send(doc)
	return err
}

// DiscordSender posts the report file to a Discord webhook.
type DiscordSender struct {
	client     *http.Client
	webhookURL string
}

// NewDiscordSender creates a webhook sender reusing the shared
// rate-limited HTTP client.
func NewDiscordSender(client *http.Client, webhookURL string) *DiscordSender {
	return &DiscordSender{client: client, webhookURL: webhookURL}
}

func (s *DiscordSender) Channel() string { return "discord" }

func (s *DiscordSender) Send(ctx context.Context, targetDate, content, summary string) error {
	body, contentType, err := discordPayload(targetDate, content, summary)
	if err != nil {
		return err
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, s.webhookURL, body)
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.DoRequest(ctx, req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// discordPayload builds the multipart body: a message field with the
// summary plus the report as a markdown file attachment.
func discordPayload(targetDate, content, summary string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	message := fmt.Sprintf("📊 SPAC Anomaly Report for %s\n%s", targetDate, summary)
	if err := w.WriteField("content", message); err != nil {
		return nil, "", err
	}

	part, err := w.CreateFormFile("file", Filename(targetDate))
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write([]byte(content)); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
