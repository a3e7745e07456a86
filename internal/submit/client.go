package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"route-tracker/internal/trip"
)

const (
	registerPath = "/submit-information"
	collectPath  = "/data-collection"
)

// HTTPDoer is the part of *http.Client the Client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the trip backend. Every request carries the user's
// bearer token.
type Client struct {
	baseURL string
	http    HTTPDoer
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWith(baseURL, &http.Client{Timeout: timeout})
}

func NewClientWith(baseURL string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

// RegisterTrip stores the vehicle and route details and returns the ids the
// recorded track must be filed under.
func (c *Client) RegisterTrip(ctx context.Context, token string, d trip.Details) (trip.Ref, error) {
	var ref trip.Ref
	if err := c.post(ctx, registerPath, token, d, &ref); err != nil {
		return trip.Ref{}, err
	}
	if ref.PathID == "" || ref.VehicleID == "" {
		return trip.Ref{}, &TransportError{Kind: KindDecode, Err: fmt.Errorf("registration answer without pathId/vehicleId")}
	}
	return ref, nil
}

func (c *Client) Submit(ctx context.Context, token string, p Payload) (Receipt, error) {
	var rc Receipt
	if err := c.post(ctx, collectPath, token, p, &rc); err != nil {
		return Receipt{}, err
	}
	return rc, nil
}

func (c *Client) post(ctx context.Context, path, token string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Kind: KindStatus, StatusCode: resp.StatusCode, Message: backendMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func backendMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(data))
}
