package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/askmto/askmto/internal/index"
	"github.com/askmto/askmto/internal/llm"
	"github.com/askmto/askmto/internal/session"
)

// ErrEmptyQuestion is returned before any provider call when the question
// is blank.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrUnavailable is returned when the embedding or completion provider
// cannot be reached after retrying. The service itself stays healthy.
var ErrUnavailable = errors.New("answering temporarily unavailable")

// OutOfScopeAnswer is returned when the handbook does not cover the
// question. It replaces the original fallback of answering from general
// knowledge.
const OutOfScopeAnswer = "I couldn't find anything about that in the driver's handbook. Try rephrasing your question, or ask about licensing, road rules, signs, or safe driving practices."

// Retriever returns the handbook chunks most similar to a question.
// *index.Index satisfies it.
type Retriever interface {
	Search(ctx context.Context, question string, topK int, floor float64) ([]index.Result, error)
}

// Answer is the result of one question. Sources are the retrieved handbook
// excerpts as plain strings, each prefixed with its page reference.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	SessionID  string   `json:"session_id"`
	Followups  []string `json:"followup_questions,omitempty"`
	OutOfScope bool     `json:"-"`
}

// Options bounds the retrieval and completion behavior of a Service.
type Options struct {
	Model           string
	TopK            int
	SimilarityFloor float64
	MaxTokens       int
	Temperature     float64
}

// Service composes answers: retrieve handbook chunks, assemble a prompt
// with recent conversation turns, and complete with the configured model.
type Service struct {
	retriever Retriever
	provider  llm.Provider
	sessions  session.Store
	prompt    Prompt
	opts      Options
	logger    *zap.Logger
}

// NewService assembles a Service. A nil logger disables logging.
func NewService(retriever Retriever, provider llm.Provider, sessions session.Store, prompt Prompt, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever: retriever,
		provider:  provider,
		sessions:  sessions,
		prompt:    prompt,
		opts:      opts,
		logger:    logger,
	}
}

// Ask answers a question for the given session.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	results, err := s.retriever.Search(ctx, question, s.opts.TopK, s.opts.SimilarityFloor)
	if err != nil {
		s.logger.Warn("retrieval failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(results) == 0 {
		return s.outOfScope(sessionID, question), nil
	}

	resp, err := s.complete(ctx, s.messages(sessionID, question, results))
	if err != nil {
		s.logger.Warn("completion failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	answer := strings.TrimSpace(resp.Content)
	if isUnknown(answer) {
		return s.outOfScope(sessionID, question), nil
	}

	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = fmt.Sprintf("[%s] %s", r.Chunk.PageRef(), r.Chunk.Text)
	}
	s.sessions.AppendTurn(sessionID, session.Turn{Question: question, Answer: answer})

	return &Answer{Answer: answer, Sources: sources, SessionID: sessionID}, nil
}

// AskEnhanced answers like Ask and additionally suggests up to three
// follow-up questions. Follow-up generation failure never fails the
// request.
func (s *Service) AskEnhanced(ctx context.Context, sessionID, question string) (*Answer, error) {
	answer, err := s.Ask(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}
	if answer.OutOfScope {
		return answer, nil
	}

	followups, err := s.suggestFollowups(ctx, question, answer.Answer)
	if err != nil {
		s.logger.Warn("follow-up generation failed", zap.Error(err))
		return answer, nil
	}
	answer.Followups = followups
	return answer, nil
}

// ClearContext discards the session's conversation history.
func (s *Service) ClearContext(sessionID string) {
	s.sessions.Clear(sessionID)
}

func (s *Service) outOfScope(sessionID, question string) *Answer {
	s.sessions.AppendTurn(sessionID, session.Turn{Question: question, Answer: OutOfScopeAnswer})
	return &Answer{Answer: OutOfScopeAnswer, Sources: []string{}, SessionID: sessionID, OutOfScope: true}
}

// messages assembles the completion request: system instruction, recent
// turns from the session, and the rendered user prompt.
func (s *Service) messages(sessionID, question string, results []index.Result) []llm.Message {
	history := s.sessions.History(sessionID)

	msgs := make([]llm.Message, 0, 2+2*len(history))
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.prompt.System})
	for _, turn := range history {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer})
	}

	var contextText strings.Builder
	for i, r := range results {
		if i > 0 {
			contextText.WriteString("\n\n")
		}
		fmt.Fprintf(&contextText, "[%s] %s", r.Chunk.PageRef(), r.Chunk.Text)
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: s.prompt.Render(contextText.String(), question)})
	return msgs
}

// complete calls the provider with at most one retry.
func (s *Service) complete(ctx context.Context, msgs []llm.Message) (*llm.CompletionResponse, error) {
	req := llm.CompletionRequest{
		Model:       s.opts.Model,
		Messages:    msgs,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}
	resp, err := s.provider.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	s.logger.Warn("completion attempt failed, retrying once", zap.Error(err))
	return s.provider.Complete(ctx, req)
}

func (s *Service) suggestFollowups(ctx context.Context, question, answer string) ([]string, error) {
	req := llm.CompletionRequest{
		Model: s.opts.Model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(followupPrompt, question, answer)},
		},
		MaxTokens:   256,
		Temperature: s.opts.Temperature,
		JSONMode:    true,
	}
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		FollowupQuestions []string `json:"followup_questions"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing follow-up response: %w", err)
	}
	if len(parsed.FollowupQuestions) > 3 {
		parsed.FollowupQuestions = parsed.FollowupQuestions[:3]
	}
	return parsed.FollowupQuestions, nil
}

// isUnknown reports whether the model declined to answer. The answer is
// lowered and stripped of non-alphanumerics before checking, so "I don't
// know." and "I do not know" both match.
func isUnknown(answer string) bool {
	var b strings.Builder
	for _, r := range strings.ToLower(answer) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	return normalized == "" || strings.Contains(normalized, "idontknow") || strings.Contains(normalized, "idonotknow")
}
