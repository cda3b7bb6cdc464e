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
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

const defaultTimeout = 10 * time.Second

type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string, hc *http.Client) apiClient {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
	}
}

func (c apiClient) postJSON(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: %w: %d", path, ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// PeoplesAppClient notifies connectors through the Peoples App API.
type PeoplesAppClient struct {
	api apiClient
}

func NewPeoplesAppClient(baseURL, apiKey string, hc *http.Client) *PeoplesAppClient {
	return &PeoplesAppClient{api: newAPIClient(baseURL, apiKey, hc)}
}

func (c *PeoplesAppClient) NotifyConnector(ctx context.Context, n Notification) error {
	return c.api.postJSON(ctx, "/notifications", struct {
		Type string       `json:"type"`
		Data Notification `json:"data"`
	}{Type: "task_assigned", Data: n})
}

// WhatsAppClient sends text messages through the WhatsApp gateway.
type WhatsAppClient struct {
	api apiClient
}

func NewWhatsAppClient(baseURL, apiKey string, hc *http.Client) *WhatsAppClient {
	return &WhatsAppClient{api: newAPIClient(baseURL, apiKey, hc)}
}

func (c *WhatsAppClient) SendMessage(ctx context.Context, to, message string) error {
	return c.api.postJSON(ctx, "/messages", struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}{To: to, Message: message})
}
