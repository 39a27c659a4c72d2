package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	uploadTimeout        = 120 * time.Second
	uploadConnectTimeout = 30 * time.Second
	listModelsTimeout    = 30 * time.Second
)

// temperatureless model family prefixes; requests for these omit the
// temperature parameter entirely.
var noTemperatureFamilies = []string{"o1", "gpt-5"}

// client carries the request-building and transport machinery shared by all
// adapters: payload construction, context-resource injection, error
// classification, and the streaming decode loop.
type client struct {
	backendID    string
	cfg          Config
	systemPrompt string

	// Completion requests have no hard client-side cap beyond transport
	// defaults; upload and listing use fixed per-operation timeouts.
	chatHTTP   *http.Client
	uploadHTTP *http.Client
	listHTTP   *http.Client
}

func newClient(backendID string, cfg Config, systemPrompt string) *client {
	return &client{
		backendID:    backendID,
		cfg:          cfg,
		systemPrompt: systemPrompt,
		chatHTTP:     &http.Client{},
		uploadHTTP: &http.Client{
			Timeout: uploadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: uploadConnectTimeout}).DialContext,
			},
		},
		listHTTP: &http.Client{Timeout: listModelsTimeout},
	}
}

func (c *client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *client) checkConfig() error {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return &ConfigurationError{Message: "backend " + c.backendID + " has no base URL"}
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return &ConfigurationError{Message: "backend " + c.backendID + " has no API token"}
	}
	return nil
}

// buildMessages assembles the final outbound sequence: optional system
// message, one leading user turn carrying the context resources, then the
// formatted history.
func (c *client) buildMessages(msgs []OutboundMessage, resources []ContextResource, textOnly bool) []OutboundMessage {
	out := make([]OutboundMessage, 0, len(msgs)+2)
	if strings.TrimSpace(c.systemPrompt) != "" {
		out = append(out, TextMessage("system", c.systemPrompt))
	}
	if parts := resourceParts(resources, textOnly); len(parts) > 0 {
		out = append(out, PartsMessage("user", parts))
	}
	return append(out, msgs...)
}

// resourceParts converts context resources to ordered content parts. With
// textOnly set (retrieval mode), image and PDF resources are dropped since
// their content is already indexed in the collection.
func resourceParts(resources []ContextResource, textOnly bool) []ContentPart {
	var parts []ContentPart
	for _, r := range resources {
		switch r.Kind {
		case ResourceTextFile, ResourcePageContext:
			parts = append(parts, TextPart(labelledText(r.Title, r.Content)))
		case ResourceImageFile:
			if !textOnly && r.URL != "" {
				parts = append(parts, ImagePart(r.URL))
			}
		case ResourcePDFPage:
			if textOnly {
				continue
			}
			if r.URL != "" {
				parts = append(parts, ImagePart(r.URL))
			} else if r.Content != "" {
				parts = append(parts, TextPart(labelledText(r.Title, r.Content)))
			}
		}
	}
	return parts
}

func labelledText(title, content string) string {
	if title == "" {
		return content
	}
	return title + ":\n" + content
}

func (c *client) chatPayload(msgs []OutboundMessage, stream bool) map[string]any {
	payload := map[string]any{
		"model":    c.cfg.Model,
		"messages": msgs,
		"stream":   stream,
	}
	if c.cfg.Temperature > 0 && !omitsTemperature(c.cfg.Model) {
		payload["temperature"] = c.cfg.Temperature
	}
	return payload
}

func omitsTemperature(model string) bool {
	for _, family := range noTemperatureFamilies {
		if strings.HasPrefix(model, family) {
			return true
		}
	}
	return false
}

// executeRequest posts the payload and normalizes the response. Transport
// failures become ConnectionError; non-200 statuses are classified into
// AuthenticationError or BackendError; a 200 body is parsed either as a
// complete completion or decoded incrementally when streaming.
func (c *client) executeRequest(ctx context.Context, url string, payload map[string]any, sink Sink) (string, error) {
	stream, _ := payload["stream"].(bool)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request payload failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.chatHTTP.Do(req)
	if err != nil {
		return "", &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp)
	}

	if !stream {
		return parseCompletion(resp.Body)
	}
	return c.consumeStream(resp.Body, sink)
}

func classifyStatus(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	message := backendMessage(raw)
	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthenticationError{Message: message}
	}
	return &BackendError{StatusCode: resp.StatusCode, Message: message}
}

// backendMessage extracts {"error":{"message":...}} when present, falling
// back to the raw body.
func backendMessage(raw []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func parseCompletion(body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", &ConnectionError{Err: err}
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ParseError{Message: "malformed completion body: " + err.Error()}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", &ParseError{Message: "completion response missing choices[0].message.content"}
	}
	return *parsed.Choices[0].Message.Content, nil
}

// consumeStream feeds transport chunks into the decoder and forwards each
// decoded delta to the sink.
func (c *client) consumeStream(body io.Reader, sink Sink) (string, error) {
	var decoder StreamDecoder
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			deltas, err := decoder.Feed(buf[:n])
			if err := forward(sink, deltas, err); err != nil {
				return "", err
			}
		}
		if decoder.Done() {
			break
		}
		if readErr == io.EOF {
			deltas, err := decoder.Close()
			if err := forward(sink, deltas, err); err != nil {
				return "", err
			}
			break
		}
		if readErr != nil {
			return "", &ConnectionError{Err: readErr}
		}
	}
	return decoder.Text(), nil
}

// forward delivers the deltas decoded so far even when a later frame in the
// same chunk failed to decode; the decode error is surfaced after them.
func forward(sink Sink, deltas []string, decodeErr error) error {
	if sink != nil {
		for _, delta := range deltas {
			if err := sink(delta); err != nil {
				return err
			}
		}
	}
	return decodeErr
}

type modelEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// fetchModels lists the backend's models, accepting both a bare array and
// the {object:"list", data:[...]} envelope.
func (c *client) fetchModels(ctx context.Context) ([]ModelInfo, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/models"), nil)
	if err != nil {
		return nil, fmt.Errorf("build models request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.listHTTP.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	var entries []modelEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Object string       `json:"object"`
			Data   []modelEntry `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, &ParseError{Message: "malformed model listing: " + err.Error()}
		}
		entries = wrapped.Data
	}

	models := make([]ModelInfo, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = e.Name
		}
		if id == "" {
			continue
		}
		models = append(models, ModelInfo{ID: id, DisplayName: e.DisplayName})
	}
	return models, nil
}
