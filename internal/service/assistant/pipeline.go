package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dompeassist/internal/logger"
	"dompeassist/internal/models"
	"dompeassist/internal/search"
	"dompeassist/internal/service/ai"
)

var ErrEmptyMessage = errors.New("message is required")

type Stage string

const (
	StageBuilt            Stage = "built"
	StageCheckedKnowledge Stage = "checked_knowledge"
	StageCheckedClarity   Stage = "checked_clarity"
	StageClarified        Stage = "clarified"
	StageSearched         Stage = "searched"
	StageSkipped          Stage = "skipped"
	StageAnswered         Stage = "answered"
)

var (
	knowledgeCheckOptions = ai.CallOptions{Temperature: 0, MaxTokens: 10}
	clarityCheckOptions   = ai.CallOptions{Temperature: 0, MaxTokens: 20}
	clarificationOptions  = ai.CallOptions{Temperature: 0.7, MaxTokens: 300}
)

const defaultFinalMaxTokens = 1000

// PromptBuilder supplies the system turn that opens every conversation.
type PromptBuilder interface {
	BuildSystemPrompt() string
}

// Answer is the outcome of one chat request. SearchResult is nil unless a
// search ran.
type Answer struct {
	Response     string
	SearchResult *models.SearchResult
	Stages       []Stage
}

// Decisions recorded while gating a request.
type Decisions struct {
	KnowledgeSufficient bool
	NeedsClarification  bool
}

type Options struct {
	ClarificationEnabled bool
	FinalMaxTokens       int
}

type Pipeline struct {
	completer     ai.Completer
	searcher      search.Searcher
	prompt        PromptBuilder
	clarification bool
	finalOptions  ai.CallOptions
}

func NewPipeline(completer ai.Completer, searcher search.Searcher, prompt PromptBuilder, opts Options) *Pipeline {
	if opts.FinalMaxTokens <= 0 {
		opts.FinalMaxTokens = defaultFinalMaxTokens
	}
	return &Pipeline{
		completer:     completer,
		searcher:      searcher,
		prompt:        prompt,
		clarification: opts.ClarificationEnabled,
		finalOptions:  ai.CallOptions{Temperature: 0.7, MaxTokens: opts.FinalMaxTokens},
	}
}

// BuildConversation returns the system turn, the usable history and the new
// user message, in that order. History entries other than non-empty user and
// assistant turns are dropped.
func (p *Pipeline) BuildConversation(message string, history []models.ChatTurn) models.Conversation {
	conv := make(models.Conversation, 0, len(history)+2)
	conv = append(conv, models.ChatTurn{Role: models.RoleSystem, Content: p.prompt.BuildSystemPrompt()})
	for _, turn := range history {
		if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
			continue
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		conv = append(conv, turn)
	}
	return append(conv, models.ChatTurn{Role: models.RoleUser, Content: message})
}

func (p *Pipeline) Answer(ctx context.Context, message string, history []models.ChatTurn) (*Answer, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	log := logger.WithCtx(ctx)
	answer := &Answer{}

	conv := p.BuildConversation(message, history)
	answer.Stages = append(answer.Stages, StageBuilt)

	var decisions Decisions
	reply, err := p.classify(ctx, conv, knowledgeCheckInstruction, knowledgeCheckOptions)
	if err != nil {
		return nil, fmt.Errorf("knowledge check: %w", err)
	}
	needsSearch := NeedsSearch(reply)
	decisions.KnowledgeSufficient = !needsSearch
	answer.Stages = append(answer.Stages, StageCheckedKnowledge)

	if p.clarification {
		reply, err := p.classify(ctx, conv, clarityCheckInstruction, clarityCheckOptions)
		if err != nil {
			return nil, fmt.Errorf("clarity check: %w", err)
		}
		decisions.NeedsClarification = NeedsClarification(reply)
		answer.Stages = append(answer.Stages, StageCheckedClarity)
	}
	log.Debug("gating decisions",
		zap.Bool("knowledge_sufficient", decisions.KnowledgeSufficient),
		zap.Bool("needs_clarification", decisions.NeedsClarification))

	if decisions.NeedsClarification {
		response, err := p.completer.Complete(ctx, withSystem(conv, clarificationInstruction), clarificationOptions)
		if err != nil {
			return nil, fmt.Errorf("clarification: %w", err)
		}
		answer.Response = response
		answer.Stages = append(answer.Stages, StageClarified)
		return answer, nil
	}

	final := conv
	if needsSearch {
		res := p.searcher.Search(ctx, message)
		answer.SearchResult = &res
		final = withSystem(conv, renderSearchContext(res))
		answer.Stages = append(answer.Stages, StageSearched)
		log.Info("web search used", zap.String("source", res.Source), zap.Int("topics", len(res.RelatedTopics)))
	} else {
		answer.Stages = append(answer.Stages, StageSkipped)
	}

	response, err := p.completer.Complete(ctx, final, p.finalOptions)
	if err != nil {
		return nil, fmt.Errorf("final answer: %w", err)
	}
	answer.Response = response
	answer.Stages = append(answer.Stages, StageAnswered)
	return answer, nil
}

// classify runs a gating call. An empty reply is not an error here; the
// policy functions decide what it means.
func (p *Pipeline) classify(ctx context.Context, conv models.Conversation, instruction string, opts ai.CallOptions) (string, error) {
	reply, err := p.completer.Complete(ctx, withSystem(conv, instruction), opts)
	if errors.Is(err, ai.ErrEmptyCompletion) {
		return "", nil
	}
	return reply, err
}

func withSystem(conv models.Conversation, content string) models.Conversation {
	out := conv.Clone()
	return append(out, models.ChatTurn{Role: models.RoleSystem, Content: content})
}
