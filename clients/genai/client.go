// Package genai talks to an OpenAI-compatible image and chat API on behalf of
// the AI panels.
package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoPayload is returned when a response lacks the expected field.
	ErrNoPayload = errors.New("response carried no payload")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("AI API key is not configured")
)

// Config holds the client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	ChatModel  string
	ImageSize  string
	Timeout    time.Duration
}

// Client calls the generation endpoints. It never retries.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client, filling defaults for empty settings.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gpt-image-1"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = "1024x1024"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.APIKey == "" {
		logrus.Warn("OPENAI_API_KEY is not set. AI panels will not work.")
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// GenerateDesign creates an image from prompt and returns it as a PNG data URI.
func (c *Client) GenerateDesign(ctx context.Context, prompt string) (string, error) {
	text, err := render(generateTmpl, struct{ Prompt string }{prompt})
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(ImageGenerationRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         text,
		N:              1,
		Size:           c.cfg.ImageSize,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return "", err
	}

	var resp ImageResponse
	if err := c.do(ctx, "/v1/images/generations", "application/json", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	return imageURI(resp)
}

// SuggestIdeas asks the chat model for design prompts around theme.
func (c *Client) SuggestIdeas(ctx context.Context, theme string) ([]string, error) {
	text, err := render(ideasTmpl, struct{ Theme string }{theme})
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(ChatCompletionRequest{
		Model:          c.cfg.ChatModel,
		Messages:       []ChatMessage{{Role: "user", Content: text}},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var resp ChatCompletionResponse
	if err := c.do(ctx, "/v1/chat/completions", "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoPayload
	}
	ideas := parseIdeas(resp.Choices[0].Message.Content)
	if len(ideas) == 0 {
		return nil, ErrNoPayload
	}
	return ideas, nil
}

// EnhanceImage edits a photo for print and returns the result as a PNG data
// URI. instructions may be empty.
func (c *Client) EnhanceImage(ctx context.Context, photoDataURI, instructions string) (string, error) {
	mediaType, data, err := core.ParseDataURI(photoDataURI)
	if err != nil {
		return "", err
	}
	text, err := render(enhanceTmpl, struct{ Instructions string }{instructions})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"model":           c.cfg.ImageModel,
		"prompt":          text,
		"n":               "1",
		"size":            c.cfg.ImageSize,
		"response_format": "b64_json",
	} {
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="upload"`)
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var resp ImageResponse
	if err := c.do(ctx, "/v1/images/edits", mw.FormDataContentType(), &buf, &resp); err != nil {
		return "", err
	}
	return imageURI(resp)
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	if c.cfg.APIKey == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		msg := resp.Status
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		logrus.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("AI request rejected")
		return fmt.Errorf("request %s: %s", path, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func imageURI(resp ImageResponse) (string, error) {
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", ErrNoPayload
	}
	return "data:image/png;base64," + resp.Data[0].B64JSON, nil
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parseIdeas accepts {"ideas": [...]}, a bare JSON array, or a bulleted or
// numbered list.
func parseIdeas(content string) []string {
	content = strings.TrimSpace(content)

	var obj struct {
		Ideas []string `json:"ideas"`
	}
	if json.Unmarshal([]byte(content), &obj) == nil {
		return clean(obj.Ideas)
	}
	var arr []string
	if json.Unmarshal([]byte(content), &arr) == nil {
		return clean(arr)
	}

	var ideas []string
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(listMarker.ReplaceAllString(sc.Text(), ""))
		if line != "" {
			ideas = append(ideas, line)
		}
	}
	return ideas
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
