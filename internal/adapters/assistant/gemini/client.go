package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"medisync/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("gemini client not configured")
	ErrUnauthorized  = errors.New("gemini unauthorized")
	ErrUpstream      = errors.New("gemini upstream error")
	ErrBadResponse   = errors.New("gemini malformed response")
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"
)

// Config del cliente del modelo generativo.
// BaseURL y APIKey normalmente vienen de env vars en quien lo instancia.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	Timeout time.Duration

	// Transport opcional (p.ej. para tests).
	Transport http.RoundTripper
}

// ConfigFromEnv arma la Config desde:
// - ASSISTANT_BASE_URL (default API pública)
// - ASSISTANT_API_KEY
// - ASSISTANT_MODEL (default gemini-1.5-flash)
func ConfigFromEnv() Config {
	return Config{
		BaseURL: os.Getenv("ASSISTANT_BASE_URL"),
		APIKey:  os.Getenv("ASSISTANT_API_KEY"),
		Model:   os.Getenv("ASSISTANT_MODEL"),
	}
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *httpclient.Client
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var hc *httpclient.Client
	if cfg.Transport != nil {
		hc = httpclient.NewWithTransport(timeout, cfg.Transport)
	} else {
		hc = httpclient.New(timeout)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		http:    hc,
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

// ---- wire types (subset del contrato generateContent) ----

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate manda un prompt (y opcionalmente una imagen inline) y devuelve
// el texto del primer candidato.
func (c *Client) generate(ctx context.Context, prompt string, img *inlineData, wantJSON bool) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	parts := []part{{Text: prompt}}
	if img != nil {
		parts = append(parts, part{InlineData: img})
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			Temperature: 0.2,
		},
	}
	if wantJSON {
		req.GenerationConfig.ResponseMIMEType = "application/json"
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	var resp generateResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, url, headers, req, &resp); err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			switch httpErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return "", ErrUnauthorized
			default:
				return "", fmt.Errorf("%w: status=%d", ErrUpstream, httpErr.StatusCode)
			}
		}
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrBadResponse
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrBadResponse
	}
	return text, nil
}
