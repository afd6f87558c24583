// ABOUTME: Data generator for the admins resource.
// ABOUTME: Uses OpenAI when OPENAI_API_KEY is set and falls back to static data otherwise.

package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/2389/basiclist/internal/config"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Generator creates admin accounts using OpenAI or static data.
type Generator struct {
	client *openai.Client
	useAI  bool
	model  string
	log    *zap.Logger
}

// NewGenerator reads the OpenAI key and model from the environment, loading
// .env files first.
func NewGenerator(log *zap.Logger) *Generator {
	config.LoadEnvFiles()

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = config.DefaultModel
	}
	var client *openai.Client
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client = openai.NewClient(key)
	}
	return NewGeneratorWithClient(client, model, log)
}

// NewGeneratorWithClient uses client for generation. A nil client means static data only.
func NewGeneratorWithClient(client *openai.Client, model string, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Generator{client: client, useAI: client != nil, model: model, log: log.Named("seed")}
	if g.useAI {
		g.log.Info("using AI-generated seed data", zap.String("model", model))
	} else {
		g.log.Info("no OPENAI_API_KEY found, using static seed data")
	}
	return g
}

// UsesAI reports whether Generate will call OpenAI.
func (g *Generator) UsesAI() bool {
	return g.useAI
}

// AdminData is one generated admin account.
type AdminData struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Status      bool     `json:"status"`
	Groups      []string `json:"groups"`
}

// GroupData is one node of the group tree. ParentID 0 marks a root.
type GroupData struct {
	ID       int
	Name     string
	ParentID int
}

// Generate returns count admins. AI failures fall back to static data.
func (g *Generator) Generate(ctx context.Context, count int) []AdminData {
	if !g.useAI {
		return generateStaticAdmins(count)
	}

	admins, err := g.generateAdmins(ctx, count)
	if err != nil || len(admins) == 0 {
		g.log.Warn("AI generation failed, falling back to static data", zap.Error(err))
		return generateStaticAdmins(count)
	}
	return sanitize(admins)
}

func (g *Generator) generateAdmins(ctx context.Context, count int) ([]AdminData, error) {
	var names []string
	for _, grp := range Groups() {
		names = append(names, grp.Name)
	}
	prompt := fmt.Sprintf(`Generate %d realistic back-office administrator accounts for a mid-sized company.

Return as JSON array with objects containing: username (lowercase, letters, digits, dots), display_name (full name), status (boolean, about 80%% true), groups (array of 1-2 names chosen from: %s).
Use diverse but realistic names. Usernames must be unique.`, count, strings.Join(names, ", "))

	return callOpenAI[[]AdminData](ctx, g.client, g.model, prompt)
}

// sanitize drops unusable rows and keeps only known group names.
func sanitize(in []AdminData) []AdminData {
	known := map[string]bool{}
	for _, grp := range Groups() {
		known[grp.Name] = true
	}
	seen := map[string]bool{}
	out := make([]AdminData, 0, len(in))
	for _, a := range in {
		a.Username = strings.TrimSpace(strings.ToLower(a.Username))
		if a.Username == "" || a.DisplayName == "" || seen[a.Username] {
			continue
		}
		seen[a.Username] = true
		var groups []string
		for _, name := range a.Groups {
			if known[name] {
				groups = append(groups, name)
			}
		}
		a.Groups = groups
		out = append(out, a)
	}
	return out
}

func callOpenAI[T any](ctx context.Context, client *openai.Client, model, prompt string) (T, error) {
	var result T

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a data generator. Always respond with valid JSON only, no markdown or explanation.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return result, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return result, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return result, nil
}
