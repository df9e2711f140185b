// Package glowmarkt implements a typed client for the Bright/Glowmarkt
// smart-meter API (auth, virtual entity listing, resource readings).
//
// All responses are decoded into explicit structs and validated at the
// boundary; a missing required field is an error here, never a panic
// further down the pipeline.
package glowmarkt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/glowpull/glowpull/internal/auth"
)

// Default endpoint and application identity for the public Bright API.
const (
	DefaultBaseURL       = "https://api.glowmarkt.com/api/v0-1"
	DefaultApplicationID = "b0f1b774-a586-4f72-9edd-27ead8aa7a8d"
)

// queryTimeLayout is the wall-clock format the readings endpoint expects
// for from/to. No timezone offset: the API interprets these as local time.
const queryTimeLayout = "2006-01-02T15:04:05"

var (
	ErrRequestFailed = errors.New("glowmarkt: request failed")
	ErrBadStatus     = errors.New("glowmarkt: unexpected status")
	ErrBadResponse   = errors.New("glowmarkt: malformed response")
	ErrAuthFailed    = errors.New("glowmarkt: authentication failed")
)

// Client talks to the Glowmarkt API. The zero value is not usable; build
// one with NewClient.
//
// SetToken must be called (with a token from Authenticate or the cache)
// before ListEntities or GetReadings.
type Client struct {
	baseURL string
	appID   string
	http    *http.Client
	token   string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, mainly so tests
// can point at a fake collaborator.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithApplicationID overrides the application identifier header.
func WithApplicationID(id string) Option {
	return func(c *Client) { c.appID = id }
}

// NewClient builds a Client for the given API base URL. An empty baseURL
// selects the public endpoint.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		appID:   DefaultApplicationID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the credential sent on subsequent API calls.
func (c *Client) SetToken(token string) { c.token = token }

// Authenticate exchanges credentials for a token at the auth endpoint.
//
// The response must contain a token string and a numeric exp; anything
// else (transport error, non-2xx status, missing fields) is ErrAuthFailed.
// Extra response fields are carried opaquely on the returned token so the
// cache round-trips them.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*auth.Token, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	req.Header.Set("applicationId", c.appID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: got %d", ErrAuthFailed, resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	tok := &auth.Token{Extra: raw}
	if v, ok := raw["token"]; ok {
		if err := json.Unmarshal(v, &tok.Value); err != nil {
			return nil, fmt.Errorf("%w: malformed token field", ErrAuthFailed)
		}
		delete(raw, "token")
	}
	if tok.Value == "" {
		return nil, fmt.Errorf("%w: response missing token", ErrAuthFailed)
	}
	if v, ok := raw["exp"]; ok {
		if err := json.Unmarshal(v, &tok.Expiry); err != nil {
			return nil, fmt.Errorf("%w: malformed exp field", ErrAuthFailed)
		}
		delete(raw, "exp")
	}
	if tok.Expiry == 0 {
		return nil, fmt.Errorf("%w: response missing expiry", ErrAuthFailed)
	}

	return tok, nil
}

// ListEntities returns the account's virtual entities with their
// resources. Failure here is fatal for a run: without the listing there
// is nothing to fetch.
func (c *Client) ListEntities(ctx context.Context) ([]Entity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/virtualentity", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	c.setAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: got %d", ErrBadStatus, resp.StatusCode)
	}

	var entities []Entity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return entities, nil
}

// GetReadings queries one resource for the [from, to) window.
//
// period is an ISO-8601-like duration (e.g. "PT30M"), function the
// aggregation keyword (e.g. "sum"). Each returned data row is validated
// to be a [timestamp, value] pair.
func (c *Client) GetReadings(ctx context.Context, resourceID string, from, to time.Time, period, function string) (*Reading, error) {
	q := url.Values{}
	q.Set("from", from.Format(queryTimeLayout))
	q.Set("to", to.Format(queryTimeLayout))
	q.Set("period", period)
	q.Set("function", function)

	endpoint := fmt.Sprintf("%s/resource/%s/readings?%s", c.baseURL, url.PathEscape(resourceID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	c.setAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: got %d", ErrBadStatus, resp.StatusCode)
	}

	var reading Reading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	for i, row := range reading.Data {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: data row %d has %d elements, want 2", ErrBadResponse, i, len(row))
		}
	}
	return &reading, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("applicationId", c.appID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", c.token)
}
