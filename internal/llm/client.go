// Package llm asks an OpenAI-compatible chat completion endpoint for a short
// remark on a match.
package llm

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cstats-bot/internal/config"
	"cstats-bot/internal/constants"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"gopkg.in/yaml.v3"
)

//go:embed persona.yaml
var defaultPersona []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrEmptyCompletion = errors.New("llm returned no completion")

// Persona is the system prompt plus few-shot examples sent before every query.
type Persona struct {
	SystemPrompt string    `yaml:"system_prompt"`
	Examples     []Example `yaml:"examples"`
}

type Example struct {
	Stats   string `yaml:"stats"`
	Comment string `yaml:"comment"`
}

// LoadPersona reads a persona file, or the built-in one when path is empty.
func LoadPersona(path string) (*Persona, error) {
	data := defaultPersona
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read persona file: %w", err)
		}
	}

	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona: %w", err)
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return nil, fmt.Errorf("persona has no system_prompt")
	}
	return &p, nil
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type Client struct {
	url     string
	apiKey  string
	model   string
	persona *Persona
	client  *fasthttp.Client
	logger  zerolog.Logger
}

// New returns nil when no LLM endpoint is configured.
func New(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	if cfg.LLMURL == "" {
		logger.Info().Msg("LLM_URL not set, commentary disabled")
		return nil, nil
	}

	persona, err := LoadPersona(cfg.LLMPersonaFile)
	if err != nil {
		return nil, err
	}

	return &Client{
		url:     cfg.LLMURL,
		apiKey:  cfg.LLMAPIKey,
		model:   cfg.LLMModel,
		persona: persona,
		client: &fasthttp.Client{
			ReadTimeout:         constants.LLMTimeout,
			WriteTimeout:        constants.LLMTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}, nil
}

func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// Messages builds the conversation: system prompt, the few-shot pairs, then
// the stats to judge.
func (c *Client) Messages(statsText string) []Message {
	msgs := make([]Message, 0, 2+2*len(c.persona.Examples))
	msgs = append(msgs, Message{Role: "system", Content: c.persona.SystemPrompt})
	for _, ex := range c.persona.Examples {
		msgs = append(msgs,
			Message{Role: "user", Content: ex.Stats},
			Message{Role: "assistant", Content: ex.Comment},
		)
	}
	return append(msgs, Message{Role: "user", Content: statsText})
}

func (c *Client) Comment(ctx context.Context, statsText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.LLMTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: c.Messages(statsText)})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.SetBody(body)

	deadline, _ := ctx.Deadline()
	start := time.Now()
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("llm error: HTTP %d", resp.StatusCode())
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	comment := strings.TrimSpace(out.Choices[0].Message.Content)
	c.logger.Debug().Dur("took", time.Since(start)).Str("comment", comment).Msg("llm comment generated")
	return comment, nil
}
