// Package alerting delivers qualification alerts to an external webhook.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// envelope is the wire shape posted per alert. The analysis identifier
// lets the receiver correlate alerts from one qualification run.
type envelope struct {
	AnalysisID string      `json:"analysis_id,omitempty"`
	Alert      model.Alert `json:"alert"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Notifier posts alerts to a configured webhook URL.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a Notifier. An empty URL disables delivery.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers alerts one POST at a time. Failures are logged and
// skipped so one bad delivery never drops the rest. Returns the number
// delivered.
func (n *Notifier) Send(ctx context.Context, analysisID string, alerts []model.Alert) int {
	if n.webhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := n.post(ctx, analysisID, alert); err != nil {
			zap.L().Error("alerting: failed to deliver alert",
				zap.String("type", string(alert.Type)),
				zap.String("analysis_id", analysisID),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("alerting: alert delivered",
			zap.String("type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
		)
		sent++
	}
	return sent
}

func (n *Notifier) post(ctx context.Context, analysisID string, alert model.Alert) error {
	payload, err := json.Marshal(envelope{
		AnalysisID: analysisID,
		Alert:      alert,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "alerting: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "alerting: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alerting: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("alerting: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
