package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/coneflip/overlay-server-go/internal/errors"
	"github.com/coneflip/overlay-server-go/internal/util"
)

const (
	chatTimeout         = 5 * time.Second
	chatSignatureHeader = "X-Overlay-Signature"
)

type chatPayload struct {
	Text string `json:"text"`
}

// ChatService posts announcements to the chat integration webhook. With no
// webhook configured every send is a logged no-op.
type ChatService struct {
	client     *http.Client
	webhookURL string
	token      string
}

func NewChatService(webhookURL, token string) *ChatService {
	return &ChatService{
		client:     &http.Client{Timeout: chatTimeout},
		webhookURL: webhookURL,
		token:      token,
	}
}

func (s *ChatService) Enabled() bool {
	return s.webhookURL != ""
}

// SendChatMessage is best effort: failures are logged and reported as false,
// never returned as errors.
func (s *ChatService) SendChatMessage(ctx context.Context, text string) bool {
	if !s.Enabled() {
		log.Debug().Str("text", text).Msg("chat disabled, announcement skipped")
		return false
	}
	if err := s.post(ctx, text); err != nil {
		log.Error().Err(apperrors.ChatDeliveryFailed(err)).Msg("chat announcement failed")
		return false
	}
	return true
}

func (s *ChatService) post(ctx context.Context, text string) error {
	if !isValidWebhookURL(s.webhookURL) {
		return fmt.Errorf("invalid webhook URL")
	}

	body, err := json.Marshal(chatPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set(chatSignatureHeader, util.HmacSHA256(s.token, string(body)))
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook failed with status %d", resp.StatusCode)
	}

	log.Info().
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("chat announcement delivered")
	return nil
}

// isValidWebhookURL requires https, except for loopback hosts used in
// local development.
func isValidWebhookURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	switch parsed.Scheme {
	case "https":
		return true
	case "http":
		host := strings.ToLower(parsed.Hostname())
		return host == "localhost" || host == "127.0.0.1" || host == "::1"
	default:
		return false
	}
}
