package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/denizkaplan/lunera-backend/pkg/config"
	"github.com/denizkaplan/lunera-backend/pkg/enums"
)

// MailMessage is one transactional mail render request.
type MailMessage struct {
	To        string             `json:"to"`
	From      string             `json:"from"`
	Subject   string             `json:"subject"`
	Template  enums.MailTemplate `json:"template"`
	Variables map[string]string  `json:"variables,omitempty"`
}

// Mailer delivers transactional mail. Implementations must be safe to call
// concurrently.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

type httpMailer struct {
	httpClient *http.Client
	cfg        config.MailConfig
}

// NewHTTPMailer builds the JSON mail-provider client.
func NewHTTPMailer(cfg config.MailConfig) (Mailer, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("mail base url required")
	}
	return &httpMailer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cfg:        cfg,
	}, nil
}

func (m *httpMailer) Send(ctx context.Context, msg MailMessage) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail recipient required")
	}
	if msg.From == "" {
		msg.From = m.cfg.DefaultFrom
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail request: %w", err)
	}

	url := strings.TrimRight(m.cfg.BaseURL, "/") + "/v1/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}
	return nil
}
