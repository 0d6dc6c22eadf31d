// Package notifier sends operational notifications to Slack.
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonasrmichel/solcascade/pkg/cascade"
	"github.com/jonasrmichel/solcascade/pkg/solana"
)

// SlackNotifier posts cascade outcomes to a Slack incoming webhook. A zero
// webhook URL disables it; all methods are then no-ops.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	enabled    bool
}

// NewSlackNotifier creates a Slack notifier for the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return &SlackNotifier{enabled: false}
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    true,
	}
}

// IsEnabled returns whether the notifier is configured.
func (s *SlackNotifier) IsEnabled() bool {
	return s.enabled
}

type slackMessage struct {
	Text string `json:"text"`
}

// NotifyCascadeResult posts a summary of a completed cascade.
func (s *SlackNotifier) NotifyCascadeResult(result *cascade.Result) error {
	if !s.enabled || result == nil {
		return nil
	}

	status := "✅ succeeded"
	if !result.Success {
		status = fmt.Sprintf("❌ failed: %s", result.ErrorMessage)
	}

	text := fmt.Sprintf("Cascade %s %s\nSteps: %d | Initial: %s SOL | Final: %s SOL | P/L: %s",
		result.ID, status, len(result.Steps),
		solana.FormatSOL(result.InitialLamports), solana.FormatSOL(result.FinalLamports),
		formatProfit(result.ProfitLamports))

	return s.post(&slackMessage{Text: text})
}

// NotifyReconciliationNeeded flags a submitted-but-unconfirmed transaction.
// These need a human: the on-chain outcome is unknown and resubmission risks
// a double spend.
func (s *SlackNotifier) NotifyReconciliationNeeded(step *cascade.Step) error {
	if !s.enabled || step == nil {
		return nil
	}

	text := fmt.Sprintf("⚠️ Manual reconciliation needed for pair %s (step %d): %s",
		step.PairID, step.StepNumber, step.Error)
	return s.post(&slackMessage{Text: text})
}

func (s *SlackNotifier) post(msg *slackMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to post to Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func formatProfit(lamports int64) string {
	if lamports < 0 {
		return "-" + solana.FormatSOL(uint64(-lamports)) + " SOL"
	}
	return "+" + solana.FormatSOL(uint64(lamports)) + " SOL"
}
