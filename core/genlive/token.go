package genlive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// EphemeralToken is a short-lived session credential minted by a backend so
// long-lived API keys never reach the client process.
type EphemeralToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (t EphemeralToken) IsExpired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// FetchEphemeralToken asks the minting endpoint for a fresh session
// credential. The bearer credential authenticates the mint request itself.
func FetchEphemeralToken(ctx context.Context, endpoint, credential string) (*EphemeralToken, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("missing token endpoint")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
			return "mint ephemeral token"
		}),
	)}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to mint ephemeral token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint responded with status %d", resp.StatusCode)
	}

	var token EphemeralToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.Token == "" {
		return nil, fmt.Errorf("token endpoint returned an empty token")
	}

	return &token, nil
}
