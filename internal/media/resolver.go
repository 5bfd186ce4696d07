// Package media resolves product image identifiers to URLs through the
// external media service.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Resolver resolves an image identifier to a URL. A missing image resolves
// to an empty string, never an error.
type Resolver interface {
	ResolveImage(ctx context.Context, imageID int64) (string, error)
}

type attachmentResponse struct {
	URL string `json:"url"`
}

// HTTPResolver fetches attachment URLs over HTTP, guarded by a circuit
// breaker so a flapping media service cannot slow every cart read.
type HTTPResolver struct {
	client  *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[string]
}

func NewHTTPResolver(baseURL string) *HTTPResolver {
	settings := gobreaker.Settings{
		Name:    "media-resolver",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &HTTPResolver{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (r *HTTPResolver) ResolveImage(ctx context.Context, imageID int64) (string, error) {
	if imageID <= 0 {
		return "", nil
	}

	return r.breaker.Execute(func() (string, error) {
		url := fmt.Sprintf("%s/attachments/%d", r.baseURL, imageID)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("media request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("media service returned %d", resp.StatusCode)
		}

		var attachment attachmentResponse
		if err := json.NewDecoder(resp.Body).Decode(&attachment); err != nil {
			return "", fmt.Errorf("decode attachment failed: %w", err)
		}

		return attachment.URL, nil
	})
}

// NopResolver resolves every image to an empty string.
type NopResolver struct{}

func (NopResolver) ResolveImage(context.Context, int64) (string, error) {
	return "", nil
}
