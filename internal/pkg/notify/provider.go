package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fixia-app/FixiaCore/internal/pkg/env"
)

const defaultPushAPIBaseURL = "https://push.notify.example.com"

// HTTPProvider sends push messages through the provider's batch REST API.
type HTTPProvider struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewProviderFromEnv builds a push provider client from environment settings.
func NewProviderFromEnv() *HTTPProvider {
	return &HTTPProvider{
		APIKey:     strings.TrimSpace(env.GetEnv("PUSH_PROVIDER_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("PUSH_PROVIDER_API_BASE_URL", defaultPushAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts one batch of tokens. The provider answers with one result per
// token, in order; dead-token errors come back as error codes, not HTTP
// failures.
func (p *HTTPProvider) Send(ctx context.Context, tokens []string, msg PushMessage) ([]TokenResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	if msg.DeepLink != "" {
		data["deep_link"] = msg.DeepLink
	}

	payload := map[string]interface{}{
		"registration_ids": tokens,
		"notification": map[string]string{
			"title": msg.Title,
			"body":  msg.Body,
			"icon":  msg.Icon,
		},
		"data": data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIBaseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.APIKey)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("push send failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var raw struct {
		Results []struct {
			MessageID string `json:"message_id"`
			Error     string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, err
	}
	if len(raw.Results) != len(tokens) {
		return nil, errors.New("push provider returned mismatched result count")
	}

	out := make([]TokenResult, len(tokens))
	for i, res := range raw.Results {
		out[i] = TokenResult{
			Token:     tokens[i],
			Success:   res.Error == "",
			ErrorCode: res.Error,
		}
	}
	return out, nil
}
