package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"profreach-engine/internal/config"
)

// Client talks to a local Ollama instance. Every caller treats it as
// best-effort: when Ollama is unreachable the engine falls back to heuristic
// extraction instead of failing the operation.
type Client struct {
	baseURL     string
	model       string
	visionModel string
	enabled     bool
	httpClient  *http.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.LLM.OllamaURL, "/"),
		model:       cfg.LLM.Model,
		visionModel: cfg.LLM.VisionModel,
		enabled:     cfg.LLM.Enabled,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Probe checks whether Ollama is running and the configured model is pulled,
// falling back to any available model. Disables the client when nothing is
// usable so callers skip straight to heuristics.
func (c *Client) Probe(ctx context.Context) {
	if !c.enabled {
		log.Printf("[llm] disabled by config")
		return
	}

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(pctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[llm] ollama not reachable at %s, using heuristic fallbacks", c.baseURL)
		c.enabled = false
		return
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil || len(tags.Models) == 0 {
		log.Printf("[llm] ollama running but no models pulled; disabling")
		c.enabled = false
		return
	}

	base := strings.SplitN(c.model, ":", 2)[0]
	for _, m := range tags.Models {
		if m.Name == c.model || strings.HasPrefix(m.Name, base) {
			log.Printf("[llm] ready model=%s", c.model)
			return
		}
	}
	c.model = tags.Models[0].Name
	log.Printf("[llm] configured model missing, using %s", c.model)
}

func (c *Client) Enabled() bool { return c != nil && c.enabled }

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Chat sends a single prompt and returns the raw completion text.
// jsonMode constrains the output to a JSON object.
func (c *Client) Chat(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	return c.chat(ctx, c.model, system, prompt, nil, jsonMode, map[string]any{
		"temperature": 0.1,
		"num_predict": 1024,
	})
}

// ChatCreative is Chat with sampling suited to drafting prose.
func (c *Client) ChatCreative(ctx context.Context, system, prompt string) (string, error) {
	return c.chat(ctx, c.model, system, prompt, nil, false, map[string]any{
		"temperature": 0.7,
		"num_predict": 1024,
	})
}

func (c *Client) chat(ctx context.Context, model, system, prompt string, images []string, jsonMode bool, opts map[string]any) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("llm disabled")
	}

	msgs := []chatMessage{}
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt, Images: images})

	reqBody := chatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Options:  opts,
	}
	if jsonMode {
		reqBody.Format = "json"
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ollama error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var data struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return data.Message.Content, nil
}
