// Package notify announces recorded expenses to a Slack channel through an
// incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jqlim/expense-bot/internal/model"
	"github.com/jqlim/expense-bot/internal/service"
)

// SlackNotifier posts expense summaries to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier creates a notifier for the given webhook URL.
func NewSlackNotifier(webhookURL string, logger *slog.Logger) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		logger:     logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type slackMessage struct {
	Text string `json:"text"`
}

// NotifyExpense implements the service.Notifier interface.
func (s *SlackNotifier) NotifyExpense(ctx context.Context, n service.ExpenseNotification) error {
	payload := slackMessage{Text: formatExpense(n)}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// formatExpense builds the one-line channel announcement.
func formatExpense(n service.ExpenseNotification) string {
	return fmt.Sprintf(":money_with_wings: %s spent %s %s at %s (%s, %s) on %s",
		n.Person, n.Currency, n.Amount.StringFixed(2), n.Payee,
		n.Category, n.PaymentMethod, model.SheetDate(n.Date))
}
