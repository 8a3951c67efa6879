// Package notify posts plain-text completion notifications to an NTFY-style
// endpoint so long-running batches can ping the operator.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/sc_agent/internal/orchestrator"
)

// BatchMessage renders a one-line human summary of a finished batch.
func BatchMessage(summary *orchestrator.Summary) string {
	return fmt.Sprintf("Chart batch finished: %d/%d succeeded, %d cache hits, elapsed %s",
		summary.Succeeded, summary.Total, summary.CacheHits, summary.Elapsed.Round(time.Second))
}

// SendBatchSummary posts the batch summary. A configured empty endpoint
// disables notifications silently.
func SendBatchSummary(ctx context.Context, client *http.Client, endpoint string, summary *orchestrator.Summary) error {
	if endpoint == "" {
		return nil
	}
	return Send(ctx, client, endpoint, BatchMessage(summary))
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
