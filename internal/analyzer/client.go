// Package analyzer sends chart screenshots to a vision-capable model and
// turns the reply into structured multi-timeframe analysis.
package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/sc_agent/internal/config"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
)

// Client talks to the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client from agent configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:     cfg.AnthropicAPIKey,
		model:      cfg.AnalysisModel,
		maxTokens:  cfg.AnalysisMaxTok,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// mediaType maps a screenshot file extension to its MIME type.
func mediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

func imageBlock(path string) (contentBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contentBlock{}, fmt.Errorf("read screenshot %s: %w", path, err)
	}
	return contentBlock{
		Type: "image",
		Source: &imageSource{
			Type:      "base64",
			MediaType: mediaType(path),
			Data:      base64.StdEncoding.EncodeToString(data),
		},
	}, nil
}

// complete sends one user message and returns the text of the reply.
func (c *Client) complete(ctx context.Context, content []contentBlock) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call messages api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var decoded messagesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return "", fmt.Errorf("messages api %s: %s: %s", resp.Status, decoded.Error.Type, decoded.Error.Message)
		}
		return "", fmt.Errorf("messages api %s", resp.Status)
	}
	for _, block := range decoded.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("messages api returned no text content")
}

// AnalyzeMultiTimeframe submits every timeframe screenshot in one request,
// each image labeled with its timeframe, and parses the combined analysis.
// screenshots maps timeframe name ("Daily", "60min") to image path.
func (c *Client) AnalyzeMultiTimeframe(ctx context.Context, ticker string, screenshots map[string]string) (*MultiTimeframeAnalysis, error) {
	if len(screenshots) == 0 {
		return nil, fmt.Errorf("no screenshots to analyze")
	}

	timeframes := orderedTimeframes(screenshots)
	content := make([]contentBlock, 0, len(screenshots)*2+1)
	for _, tf := range timeframes {
		img, err := imageBlock(screenshots[tf])
		if err != nil {
			return nil, err
		}
		content = append(content, img, contentBlock{Type: "text", Text: fmt.Sprintf("[%s Chart]", tf)})
	}
	content = append(content, contentBlock{Type: "text", Text: multiTimeframePrompt(ticker, timeframes)})

	slog.Info("requesting multi-timeframe analysis", "ticker", ticker, "timeframes", timeframes, "model", c.model)
	text, err := c.complete(ctx, content)
	if err != nil {
		return nil, err
	}

	analysis := parseMultiTimeframe(text)
	analysis.Ticker = ticker
	analysis.Timeframes = timeframes
	return analysis, nil
}
