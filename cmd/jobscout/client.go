package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chengzr01/jobscout/internal/config"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable — is jobscout running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, "POST", path, body)
}

func (c *apiClient) signup(ctx context.Context, username, password string) error {
	resp, err := c.post(ctx, "/accounts/signup", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("signup failed: %s", result.Message)
	}
	return nil
}

// login authenticates and stores the bearer token on the client. It returns
// the server's greeting.
func (c *apiClient) login(ctx context.Context, username, password string) (string, error) {
	resp, err := c.post(ctx, "/accounts/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	if !result.Success || result.Token == "" {
		return "", fmt.Errorf("login failed: %s", result.Message)
	}
	c.token = result.Token
	return result.Message, nil
}

func (c *apiClient) logout(ctx context.Context) error {
	resp, err := c.post(ctx, "/accounts/logout", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// turnResult mirrors the server's per-turn envelope: exactly one of the two
// response channels is set.
type turnResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Frontend *string  `json:"frontend response"`
	Backend  []jobRow `json:"backend response"`
}

type jobRow struct {
	Location     string   `json:"location"`
	JobTitle     string   `json:"job_title"`
	Level        string   `json:"level"`
	Corporate    string   `json:"corporate"`
	Requirements []string `json:"requirements"`
}

func (c *apiClient) respond(ctx context.Context, input string) (turnResult, error) {
	resp, err := c.post(ctx, "/respond", map[string]string{"user_input": input})
	if err != nil {
		return turnResult{}, err
	}
	var result turnResult
	if err := decodeJSON(resp, &result); err != nil {
		return turnResult{}, err
	}
	return result, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
