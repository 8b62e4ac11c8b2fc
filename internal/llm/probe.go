package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Probe verifies at startup that the completion endpoint is reachable and the
// credential is accepted, so a bad configuration fails the process before the
// first client connects rather than on the first question.
func Probe(ctx context.Context, baseURL, apiKey string) error {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(10 * time.Second)

	res, err := client.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		Get("/models")
	if err != nil {
		return fmt.Errorf("completion endpoint unreachable: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("completion endpoint rejected credentials: status %d", res.StatusCode())
	}

	return nil
}
