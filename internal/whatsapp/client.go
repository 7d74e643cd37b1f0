// Package whatsapp is the Cloud API signaling client: it delivers the
// call answer and call terminate actions for a session. It never
// touches media.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

// Client posts call actions to the WhatsApp Graph API.
// Calls are single-attempt: transient failures surface to the caller
// as errors, they are never retried here.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	httpClient    *http.Client
}

// NewClient creates a signaling client for one business phone number.
func NewClient(baseURL, phoneNumberID, token string) *Client {
	return &Client{
		baseURL:       baseURL,
		phoneNumberID: phoneNumberID,
		token:         token,
		httpClient:    &http.Client{Timeout: requestTimeout},
	}
}

// callAction is the request body for the /calls endpoint.
type callAction struct {
	MessagingProduct string       `json:"messaging_product"`
	CallID           string       `json:"call_id"`
	Action           string       `json:"action"`
	Session          *callSession `json:"session,omitempty"`
	Reason           string       `json:"reason,omitempty"`
}

type callSession struct {
	SDPType string `json:"sdp_type"`
	SDP     string `json:"sdp"`
}

// apiError is the Graph API error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Answer accepts the call by delivering the SDP answer.
func (c *Client) Answer(ctx context.Context, callID, sdpAnswer string) error {
	action := callAction{
		MessagingProduct: "whatsapp",
		CallID:           callID,
		Action:           "accept",
		Session: &callSession{
			SDPType: "answer",
			SDP:     sdpAnswer,
		},
	}

	if err := c.post(ctx, action); err != nil {
		return fmt.Errorf("answer call %s: %w", callID, err)
	}

	slog.Info("[WhatsApp] Call answered", "call_id", callID)
	return nil
}

// Terminate ends the call on the platform side.
func (c *Client) Terminate(ctx context.Context, callID, reason string) error {
	action := callAction{
		MessagingProduct: "whatsapp",
		CallID:           callID,
		Action:           "terminate",
		Reason:           reason,
	}

	if err := c.post(ctx, action); err != nil {
		return fmt.Errorf("terminate call %s: %w", callID, err)
	}

	slog.Info("[WhatsApp] Call terminated", "call_id", callID, "reason", reason)
	return nil
}

func (c *Client) post(ctx context.Context, action callAction) error {
	body, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/calls", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s action: %w", action.Action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ae apiError
	if err := json.Unmarshal(data, &ae); err == nil && ae.Error.Message != "" {
		return fmt.Errorf("graph api %d: %s", resp.StatusCode, ae.Error.Message)
	}
	return fmt.Errorf("graph api status %d", resp.StatusCode)
}
