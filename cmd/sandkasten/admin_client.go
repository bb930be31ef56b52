package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sandkasten/pool/internal/config"
)

// adminClient talks to a running daemon's admin API, following the
// teacher's runPs pattern of loading listen/api_key from config unless
// overridden on the command line.
type adminClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAdminClient(cfgPath, host string) (*adminClient, error) {
	baseURL := host
	apiKey := os.Getenv("SANDKASTEN_API_KEY")

	if baseURL == "" {
		cfg, err := config.Load(resolveConfigPath(cfgPath))
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		baseURL = "http://" + cfg.Listen
		if apiKey == "" {
			apiKey = cfg.APIKey
		}
	}

	return &adminClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, p := range []string{"sandkasten.yaml", "/etc/sandkasten/sandkasten.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envelope mirrors internal/api's Response shape, just enough to unwrap
// Data or surface an error message.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *adminClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("daemon error: %s", env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
