package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStore talks to the hosted record base over its JSON REST surface.
type HTTPStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPOption mutates an HTTPStore before first use.
type HTTPOption func(*HTTPStore)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) { s.client = c }
}

func NewHTTPStore(baseURL, apiKey string, opts ...HTTPOption) (*HTTPStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("record store base url is required")
	}
	s := &HTTPStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *HTTPStore) Lookup(ctx context.Context, ro string) (*JobRecord, error) {
	var rec JobRecord
	status, err := s.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(ro), nil, &rec)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &rec, nil
}

func (s *HTTPStore) Upsert(ctx context.Context, rec JobRecord) error {
	if strings.TrimSpace(rec.RO) == "" {
		return fmt.Errorf("upsert requires an RO")
	}
	status, err := s.do(ctx, http.MethodPut, "/jobs/"+url.PathEscape(rec.RO), rec, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("upsert %s: status %d", rec.RO, status)
	}
	return nil
}

func (s *HTTPStore) Update(ctx context.Context, ro string, fields map[string]any) error {
	status, err := s.do(ctx, http.MethodPatch, "/jobs/"+url.PathEscape(ro), fields, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("update %s: job not found", ro)
	}
	if status >= 300 {
		return fmt.Errorf("update %s: status %d", ro, status)
	}
	return nil
}

func (s *HTTPStore) AppendFlow(ctx context.Context, ro, entry string) error {
	body := map[string]any{"entry": entry, "at": time.Now().UTC().Format(time.RFC3339)}
	status, err := s.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(ro)+"/flow", body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("append flow %s: status %d", ro, status)
	}
	return nil
}

func (s *HTTPStore) CountForTech(ctx context.Context, tech string, date time.Time) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/techs/%s/jobs?date=%s", url.PathEscape(tech), date.Format("2006-01-02"))
	status, err := s.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound {
		return 0, nil
	}
	return out.Count, nil
}

func (s *HTTPStore) SlotTaken(ctx context.Context, tech string, date time.Time, slot string) (bool, error) {
	var out struct {
		Taken bool `json:"taken"`
	}
	path := fmt.Sprintf("/techs/%s/slots?date=%s&slot=%s",
		url.PathEscape(tech), date.Format("2006-01-02"), url.QueryEscape(slot))
	status, err := s.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	return out.Taken, nil
}

// do runs one JSON round-trip. 404 is returned to the caller as a
// status, not an error, so absence stays a non-exceptional outcome.
func (s *HTTPStore) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("record store %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return resp.StatusCode, fmt.Errorf("record store %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
