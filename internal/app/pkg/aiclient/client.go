// Package aiclient calls the external movement-explanation service that
// turns raw session metrics into clinician-readable text. The service is
// best-effort: callers must tolerate it being down.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/parthjod/neuroblock/internal/app/ds"
)

// ErrUnavailable is returned when no service URL is configured.
var ErrUnavailable = errors.New("ai service not configured")

// ExplainRequest is the payload the explanation service expects. The
// service works in variance terms for stability, so StabilityVariance is
// 100 minus the stored stability value.
type ExplainRequest struct {
	MovementDescription string  `json:"movement_description"`
	RangeOfMotion       float64 `json:"range_of_motion_percentage"`
	StabilityVariance   float64 `json:"stability_variance"`
	CompletionAccuracy  float64 `json:"completion_accuracy"`
}

// Explanation is the structured text the service returns.
type Explanation struct {
	ClinicalExplanation string `json:"clinical_explanation"`
	Recommendations     string `json:"recommendations"`
}

// Client talks to the explanation service over HTTP.
type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the given endpoint. An empty url produces a
// client whose calls fail with ErrUnavailable.
func New(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// ExplainMovement requests an explanation for one exercise's metrics.
func (c *Client) ExplainMovement(ctx context.Context, m ds.ExerciseMetric) (*Explanation, error) {
	if c.url == "" {
		return nil, ErrUnavailable
	}

	payload := ExplainRequest{
		MovementDescription: m.Name,
		RangeOfMotion:       float64(m.RangeOfMotion),
		StabilityVariance:   float64(100 - m.Stability),
		CompletionAccuracy:  float64(m.Accuracy),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai service returned %d", resp.StatusCode)
	}

	var out Explanation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
