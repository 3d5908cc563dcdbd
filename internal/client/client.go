// Package client talks to a running hanjahangul web server.
package client

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
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	se, ok := errors.AsType[*StatusError](err)
	return ok && se.Code == code
}

type Client struct {
	url  string
	http *http.Client
}

func New(url string) *Client {
	return &Client{
		url:  strings.TrimSuffix(url, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient replaces the underlying client, e.g. to trust a dev certificate.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

type ConvertResult struct {
	ID            int64  `json:"id,omitempty"`
	Converted     bool   `json:"converted"`
	ConvertedText string `json:"converted_text"`
	Romanized     string `json:"romanized,omitempty"`
}

type DictionaryStats struct {
	Source   string `json:"source"`
	Chars    int    `json:"chars"`
	Initials int    `json:"initials"`
	Words    int    `json:"words"`
}

type Conversion struct {
	ID            int64   `json:"id"`
	InputText     string  `json:"input_text"`
	ConvertedText *string `json:"converted_text,omitempty"`
	Converted     bool    `json:"converted"`
	Surface       string  `json:"surface"`
	CreatedAt     string  `json:"created_at"`
}

type Feedback struct {
	ID           int64  `json:"id"`
	ConversionID int64  `json:"conversion_id"`
	FeedbackText string `json:"feedback_text"`
	CreatedAt    string `json:"created_at"`
}

type textBody struct {
	Text string `json:"text"`
}

// Convert calls POST /api/v1/convert.
func (c *Client) Convert(ctx context.Context, text string) (ConvertResult, error) {
	var out ConvertResult
	err := c.do(ctx, http.MethodPost, "/api/v1/convert", textBody{Text: text}, &out)
	return out, err
}

// ConvertText calls the legacy POST /convert endpoint and returns its
// converted_text, which is the fallback message for unchanged input.
func (c *Client) ConvertText(ctx context.Context, text string) (string, error) {
	var out struct {
		ConvertedText string `json:"converted_text"`
	}
	err := c.do(ctx, http.MethodPost, "/convert", textBody{Text: text}, &out)
	return out.ConvertedText, err
}

func (c *Client) Dictionary(ctx context.Context) (DictionaryStats, error) {
	var out DictionaryStats
	err := c.do(ctx, http.MethodGet, "/api/v1/dictionary", nil, &out)
	return out, err
}

func (c *Client) Conversion(ctx context.Context, id int64) (Conversion, error) {
	var out Conversion
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/conversions/%d", id), nil, &out)
	return out, err
}

func (c *Client) SubmitFeedback(ctx context.Context, id int64, text string) (Feedback, error) {
	var out Feedback
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/conversions/%d/feedback", id), textBody{Text: text}, &out)
	return out, err
}

// Health returns nil when GET /health answers 200.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
