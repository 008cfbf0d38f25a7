// Package dynamock provides a Go client for the dynamock control API.
package dynamock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
)

// Mock describes a route to register. Method defaults to GET and Status to
// 200 server-side; Response may be any JSON value, including a string.
type Mock struct {
	Path     string            `json:"path"`
	Method   string            `json:"method,omitempty"`
	Status   int               `json:"status,omitempty"`
	Response interface{}       `json:"response"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// Route is one entry of the server's route listing.
type Route struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Status int    `json:"status"`
}

// RegisterResult is the server's acknowledgement of a registration, carrying
// the canonical method and path the mock was stored under.
type RegisterResult struct {
	Message string `json:"message"`
	Method  string `json:"method"`
	Path    string `json:"path"`
}

type Client struct {
	client http.Client
	url    string
}

func New(url string) *Client {
	return &Client{
		client: http.Client{
			Timeout: 30 * time.Second,
		},
		url: strings.TrimSuffix(url, "/"),
	}
}

// Register stores a mock on the server and persists it durably before
// returning.
func (c *Client) Register(mock Mock) (*RegisterResult, error) {
	body, err := json.Marshal(mock)
	if err != nil {
		return nil, errors.Wrap(err, "marshal mock")
	}

	req, err := http.NewRequest(http.MethodPost, c.url+"/register", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, apiError(res, data)
	}

	var result RegisterResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "parse registration acknowledgement")
	}
	return &result, nil
}

// Routes lists every registered mock.
func (c *Client) Routes() ([]Route, error) {
	res, err := c.client.Get(c.url + "/__routes")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, apiError(res, data)
	}

	var routes []Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, errors.Wrap(err, "parse route listing")
	}
	return routes, nil
}

// Health checks the server's health endpoint once.
func (c *Client) Health() error {
	res, err := c.client.Get(c.url + "/health")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(res.Body)
		return apiError(res, data)
	}
	return nil
}

// WaitReady polls the health endpoint until the server answers or the
// timeout elapses.
func (c *Client) WaitReady(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return retry.Do(
		c.Health,
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func apiError(res *http.Response, data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s (status %d)", body.Error, res.StatusCode)
	}
	return fmt.Errorf("unexpected status %d", res.StatusCode)
}
