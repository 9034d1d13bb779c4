// Package gemini provides a Reasoner backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"ai-voice-agent-service/internal/service/llm"
	"ai-voice-agent-service/internal/service/memory"
	"ai-voice-agent-service/internal/service/tools"
)

// Config holds model settings.
type Config struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	SystemPrompt    string
}

// DefaultConfig returns settings tuned for short spoken replies.
func DefaultConfig() Config {
	return Config{
		Model:           "gemini-2.0-flash",
		Temperature:     0.7,
		MaxOutputTokens: 150,
	}
}

// generator is the subset of genai.Models the adapter uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Adapter implements llm.Reasoner.
type Adapter struct {
	models generator
	cfg    Config
	genCfg *genai.GenerateContentConfig
}

// New creates a Gemini reasoner offering decls as callable functions.
func New(ctx context.Context, cfg Config, decls []tools.Declaration) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	log.Info().
		Str("model", cfg.Model).
		Int("tools", len(decls)).
		Msg("Gemini reasoner initialized")
	return newAdapter(client.Models, cfg, decls), nil
}

func newAdapter(models generator, cfg Config, decls []tools.Declaration) *Adapter {
	return &Adapter{
		models: models,
		cfg:    cfg,
		genCfg: buildConfig(cfg, decls),
	}
}

// Reason implements llm.Reasoner.
func (a *Adapter) Reason(ctx context.Context, message string, history []memory.Turn, isToolResult bool) (*llm.Reply, error) {
	resp, err := a.models.GenerateContent(ctx, a.cfg.Model, buildContents(message, history, isToolResult), a.genCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrReasoning, err)
	}
	return parseResponse(resp), nil
}

func buildConfig(cfg Config, decls []tools.Declaration) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(cfg.MaxOutputTokens),
	}
	if cfg.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(cfg.SystemPrompt, genai.RoleUser)
	}
	if len(decls) > 0 {
		fns := make([]*genai.FunctionDeclaration, 0, len(decls))
		for _, d := range decls {
			fn := &genai.FunctionDeclaration{
				Name:        d.Name,
				Description: d.Description,
			}
			if d.Parameters != nil {
				fn.ParametersJsonSchema = d.Parameters
			}
			fns = append(fns, fn)
		}
		gc.Tools = []*genai.Tool{{FunctionDeclarations: fns}}
	}
	return gc
}

// buildContents maps history to Gemini roles and appends message unless it is
// already the trailing user entry of history.
func buildContents(message string, history []memory.Turn, isToolResult bool) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, genai.NewContentFromText(t.Content, roleFor(t.Role)))
	}

	if !isToolResult && len(history) > 0 {
		last := history[len(history)-1]
		if last.Role == memory.RoleUser && last.Content == message {
			return contents
		}
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}

func roleFor(r memory.Role) genai.Role {
	if r == memory.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func parseResponse(resp *genai.GenerateContentResponse) *llm.Reply {
	reply := &llm.Reply{}
	if resp == nil {
		return reply
	}
	reply.Text = strings.TrimSpace(resp.Text())
	for _, fc := range resp.FunctionCalls() {
		if fc == nil || fc.Name == "" {
			continue
		}
		reply.ToolCalls = append(reply.ToolCalls, llm.ToolCall{Name: fc.Name, Args: fc.Args})
	}
	return reply
}
