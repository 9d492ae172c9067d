// Package client provides the Go client for the Facets HTTP API and the
// debounced edit session used by interactive item views.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// Client talks to one Facets server. The zero value is not usable; build
// with New.
type Client struct {
	baseURL    string
	collection string
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithCollection scopes all requests to the given collection instead of the
// server default.
func WithCollection(id string) Option {
	return func(c *Client) { c.collection = id }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetItem fetches an item's resolved projection.
func (c *Client) GetItem(ctx context.Context, itemID string) (*types.ItemProjection, error) {
	var proj types.ItemProjection
	if err := c.do(ctx, http.MethodGet, "/items/"+itemID, nil, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

// UpdateItemFields sends one batched value write and returns the canonical
// values the server committed. A transient network failure is retried once;
// validation failures are never retried, since resending malformed input
// only wastes a round trip.
func (c *Client) UpdateItemFields(ctx context.Context, itemID string, updates []types.ValueUpdate) ([]types.FieldValue, error) {
	var values []types.FieldValue
	err := c.do(ctx, http.MethodPut, "/items/"+itemID+"/fields", updates, &values)
	if err != nil && isTransient(err) {
		err = c.do(ctx, http.MethodPut, "/items/"+itemID+"/fields", updates, &values)
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}

// CheckDuplicateField asks whether a field with the candidate name already
// exists, returning its definition when it does.
func (c *Client) CheckDuplicateField(ctx context.Context, name string) (*types.Field, error) {
	var resp struct {
		Exists bool         `json:"exists"`
		Field  *types.Field `json:"field"`
	}
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/fields/check-duplicate", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Exists {
		return nil, nil
	}
	return resp.Field, nil
}

// do runs one request, decoding error payloads back into the service's
// error taxonomy so callers can branch with types.IsValidation and friends.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.collection != "" {
		req.Header.Set("X-Collection-ID", c.collection)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError rebuilds a typed error from the server's error payload.
func decodeError(resp *http.Response) error {
	var payload struct {
		Error  string            `json:"error"`
		Kind   string            `json:"kind"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	switch payload.Kind {
	case "validation":
		return &types.ValidationError{Message: payload.Error, Fields: payload.Fields}
	case "not_found":
		return &types.NotFoundError{Resource: "resource", ID: payload.Error}
	case "conflict":
		return types.NewConflictError("%s", payload.Error)
	case "concurrency":
		return types.NewConcurrencyError("%s", payload.Error)
	default:
		return fmt.Errorf("server error: %s", payload.Error)
	}
}

// isTransient reports whether an error looks like a transient transport
// failure rather than a server verdict.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
