// Package ordersvc is the GraphQL client for the remote order service, the
// authoritative owner of cart and order state.
package ordersvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// authTokenHeader carries the order session token. The server rotates it
	// by returning a fresh value on any response.
	authTokenHeader = "vendure-auth-token"

	// channelTokenHeader selects the sales channel on multi-channel backends.
	channelTokenHeader = "vendure-token"

	maxResponseBytes = 4 << 20
)

type Client struct {
	endpoint     string
	channelToken string
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewClient(endpoint, channelToken string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("order service endpoint is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		endpoint:     endpoint,
		channelToken: channelToken,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// do executes one GraphQL request. The order session token is passed
// explicitly per call; the rotated token from the response header is
// returned alongside the data so the caller can carry it forward.
func (c *Client) do(ctx context.Context, token, query string, variables map[string]any) (map[string]json.RawMessage, string, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, token, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, token, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.channelToken != "" {
		req.Header.Set(channelTokenHeader, c.channelToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, token, &TransportError{err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, token, &TransportError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, token, &TransportError{err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	newToken := token
	if rotated := strings.TrimSpace(resp.Header.Get(authTokenHeader)); rotated != "" {
		newToken = rotated
	}

	var decoded graphqlResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, newToken, &TransportError{err: fmt.Errorf("failed to decode response: %w", err)}
	}

	// Expected failures arrive as tagged error results inside data; anything
	// in the top-level errors list is a protocol-level problem.
	if len(decoded.Errors) > 0 {
		return nil, newToken, &TransportError{err: fmt.Errorf("graphql error: %s", decoded.Errors[0].Message)}
	}

	return decoded.Data, newToken, nil
}
