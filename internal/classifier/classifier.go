// Package classifier suggests a filing destination for each inbox item by
// asking an LLM to choose among the available notebooks and pages. The
// resulting classification is stored on the item; the decision of whether to
// act on it stays with the user.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/erewhon/nous-sub005/internal/contextutil"
	"github.com/erewhon/nous-sub005/internal/inbox"
	"github.com/erewhon/nous-sub005/internal/storage"
)

// Config selects and configures the LLM provider.
type Config struct {
	// Provider is "anthropic", "openai", or "openrouter".
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the OpenAI-compatible endpoint. Used for openrouter
	// and self-hosted gateways; ignored by the anthropic provider.
	BaseURL string
}

// completer is one LLM provider behind a common call shape.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// Service classifies inbox items against the current notebook and page
// catalog and persists each suggestion as it is produced.
type Service struct {
	provider  completer
	notebooks storage.NotebookStore
	pages     storage.PageStore
	items     storage.InboxStore
	logger    *slog.Logger
}

// New creates a classifier Service for the configured provider.
func New(cfg Config, notebooks storage.NotebookStore, pages storage.PageStore, items storage.InboxStore) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key not set for provider %s", cfg.Provider)
	}

	var provider completer
	switch cfg.Provider {
	case "anthropic":
		provider = &anthropicCompleter{client: anthropic.NewClient(cfg.APIKey), model: cfg.Model}
	case "openai", "openrouter":
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		} else if cfg.Provider == "openrouter" {
			clientCfg.BaseURL = "https://openrouter.ai/api/v1"
		}
		provider = &openaiCompleter{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &Service{
		provider:  provider,
		notebooks: notebooks,
		pages:     pages,
		items:     items,
		logger:    slog.Default(),
	}, nil
}

// Classify suggests a destination for each given item, stores the suggestion,
// and returns the updated items. A provider or storage failure aborts the
// batch; an answer the model garbles only degrades that one item to a
// keep-in-inbox suggestion.
func (s *Service) Classify(ctx context.Context, items []inbox.Item) ([]inbox.Item, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(items) == 0 {
		return nil, nil
	}

	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load destination catalog: %w", err)
	}

	classified := make([]inbox.Item, 0, len(items))
	for _, item := range items {
		raw, err := s.provider.complete(ctx, systemPrompt, buildUserMessage(item.Title, item.Content, item.Tags, cat))
		if err != nil {
			return nil, fmt.Errorf("classification request for item %s failed: %w", item.ID, err)
		}

		c := parseClassification(raw, time.Now().UTC())
		updated, err := s.items.SetClassification(ctx, item.ID, c)
		if err != nil {
			return nil, fmt.Errorf("failed to store classification for item %s: %w", item.ID, err)
		}

		logger.InfoContext(ctx, "classified item",
			"item_id", item.ID,
			"action", c.Action.Type,
			"confidence", c.Confidence,
		)
		classified = append(classified, *updated)
	}

	return classified, nil
}

func (s *Service) loadCatalog(ctx context.Context) (catalog, error) {
	notebooks, err := s.notebooks.List(ctx)
	if err != nil {
		return catalog{}, err
	}
	pages, err := s.pages.ListRecent(ctx, maxCatalogPages)
	if err != nil {
		return catalog{}, err
	}
	return catalog{notebooks: notebooks, pages: pages}, nil
}

const maxResponseTokens = 1024

type anthropicCompleter struct {
	client *anthropic.Client
	model  string
}

func (c *anthropicCompleter) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		MaxTokens: maxResponseTokens,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &user}},
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}
	return resp.Content[0].GetText(), nil
}

type openaiCompleter struct {
	client *openai.Client
	model  string
}

func (c *openaiCompleter) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxResponseTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
