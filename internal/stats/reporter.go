// Package stats carries the room-to-admin side channel: a fire-and-forget
// reporter on the room side and the aggregating actor behind the dashboard.
package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cashly-rent-a-car/bingo/internal"
)

// Reporter pushes room summaries to the aggregator endpoint. Every failure
// is logged and swallowed: stats must never block or fail a game command.
// A nil *Reporter is valid and does nothing.
type Reporter struct {
	endpoint string
	client   *http.Client
}

// NewReporter targets the aggregator ingest endpoint, e.g.
// "http://localhost:8080/admin/report".
func NewReporter(endpoint string) *Reporter {
	return &Reporter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Report sends one report. Callers run it as a detached goroutine.
func (r *Reporter) Report(report internal.RoomReport) {
	if r == nil {
		return
	}
	if err := r.post(report); err != nil {
		log.Printf("[Reporter] %s failed (ignored): %v", report.Type, err)
	}
}

func (r *Reporter) post(report internal.RoomReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}

	resp, err := r.client.Post(r.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aggregator answered %d", resp.StatusCode)
	}
	return nil
}
