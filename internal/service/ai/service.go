package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"dompeassist/internal/config"
	"dompeassist/internal/logger"
	"dompeassist/internal/models"
)

const (
	DefaultCallTimeout = 30 * time.Second
	defaultMaxTokens   = 1000
)

var (
	ErrEmptyCompletion     = errors.New("completion returned no content")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// CallOptions are the sampling settings of a single completion call.
type CallOptions struct {
	Temperature float32
	MaxTokens   int
}

// Completer sends a conversation upstream and returns the first choice.
type Completer interface {
	Complete(ctx context.Context, conv models.Conversation, opts CallOptions) (string, error)
}

// Service wraps an eino chat model. Every call runs under its own timeout.
type Service struct {
	chatModel model.BaseChatModel
	provider  string
	timeout   time.Duration
}

func NewService(chatModel model.BaseChatModel, provider string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Service{chatModel: chatModel, provider: provider, timeout: timeout}
}

// NewServiceFromConfig builds the chat model selected by cfg.Assistant.Provider.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config) (*Service, error) {
	name, provCfg, err := cfg.Provider()
	if err != nil {
		return nil, err
	}
	chatModel, err := NewChatModel(ctx, name, provCfg, cfg.Assistant.CallTimeout())
	if err != nil {
		return nil, err
	}
	return NewService(chatModel, name, cfg.Assistant.CallTimeout()), nil
}

// NewChatModel creates the eino model for provider. "azure" is accepted as an
// alias of openai with ByAzure set.
func NewChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig, timeout time.Duration) (model.BaseChatModel, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch strings.ToLower(provider) {
	case "openai", "azure":
		byAzure := provCfg.ByAzure || strings.EqualFold(provider, "azure")
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      provCfg.Model,
			ByAzure:    byAzure,
			APIVersion: provCfg.APIVersion,
			Timeout:    timeout,
		})
	case "gemini":
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: defaultMaxTokens,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return chatModel, nil
}

func (s *Service) Complete(ctx context.Context, conv models.Conversation, opts CallOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.chatModel.Generate(ctx, convertMessages(conv), callOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", s.provider, err)
	}
	logger.WithCtx(ctx).Debug("completion finished",
		zap.String("provider", s.provider),
		zap.Int("max_tokens", opts.MaxTokens),
		zap.Duration("elapsed", time.Since(start)))

	if resp == nil || resp.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Content, nil
}

// Stream runs a streaming completion, passing each delta to callback, and
// returns the accumulated content.
func (s *Service) Stream(ctx context.Context, conv models.Conversation, opts CallOptions, callback func(string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	streamReader, err := s.chatModel.Stream(ctx, convertMessages(conv), callOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("%s stream: %w", s.provider, err)
	}
	defer streamReader.Close()

	var fullContent strings.Builder
	for {
		chunk, err := streamReader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%s stream: %w", s.provider, err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		fullContent.WriteString(chunk.Content)
		if callback != nil {
			if err := callback(chunk.Content); err != nil {
				return "", err
			}
		}
	}
	if fullContent.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return fullContent.String(), nil
}

func callOptions(opts CallOptions) []model.Option {
	out := []model.Option{model.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		out = append(out, model.WithMaxTokens(opts.MaxTokens))
	}
	return out
}

func convertMessages(conv models.Conversation) []*schema.Message {
	messages := make([]*schema.Message, 0, len(conv))
	for _, msg := range conv {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleUser:
			role = schema.User
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}

		messages = append(messages, &schema.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
	return messages
}
