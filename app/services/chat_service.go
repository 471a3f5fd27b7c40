package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"todo-chat/app/intent"
	"todo-chat/app/models"
	"todo-chat/app/store"
)

// Classifier reads an utterance in the context of the prior conversation.
type Classifier interface {
	Classify(utterance string, history []models.Message) intent.Intent
}

// ChatRequest is one inbound chat message. A nil ConversationID starts a new
// conversation.
type ChatRequest struct {
	OwnerID        string
	ConversationID *int64
	Message        string
}

// ExchangeError reports a tool failure inside an otherwise successful exchange.
type ExchangeError struct {
	Code    models.Code `json:"code"`
	Message string      `json:"message"`
}

// Exchange is the result of one chat round trip.
type Exchange struct {
	ConversationID int64             `json:"conversation_id"`
	Response       string            `json:"response"`
	ToolCalls      []models.ToolCall `json:"tool_calls"`
	Error          *ExchangeError    `json:"error,omitempty"`
}

// ChatService runs the classify, dispatch, compose pipeline and persists both
// sides of every exchange. It holds no conversation state between calls.
type ChatService struct {
	conversations store.ConversationStore
	tasks         *TaskService
	classifier    Classifier
	composer      Composer
	locks         stripedLocks
	logger        *zap.Logger
}

// ChatOption configures a ChatService.
type ChatOption func(*ChatService)

// WithClassifier replaces the keyword classifier.
func WithClassifier(c Classifier) ChatOption {
	return func(s *ChatService) { s.classifier = c }
}

// WithListLimit sets how many titles a list reply shows.
func WithListLimit(n int) ChatOption {
	return func(s *ChatService) { s.composer.ListLimit = n }
}

// NewChatService creates a new instance of ChatService.
func NewChatService(conversations store.ConversationStore, tasks *TaskService, logger *zap.Logger, opts ...ChatOption) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ChatService{
		conversations: conversations,
		tasks:         tasks,
		classifier:    intent.RuleClassifier{},
		composer:      Composer{ListLimit: DefaultListLimit},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send processes one message. Tool failures are reported in Exchange.Error,
// with internal causes redacted; a returned error means the conversation could
// not be resolved or persisted. A blank message is rejected before anything is
// stored, so it leaves no trace in the history.
// If persistence fails after the user message was stored, the history holds
// that message without a reply.
func (s *ChatService) Send(ctx context.Context, req ChatRequest) (*Exchange, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", models.ErrValidation)
	}

	conv, err := s.resolveConversation(ctx, req.OwnerID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(conv.ID)
	defer unlock()

	if _, err := s.conversations.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		OwnerID:        req.OwnerID,
		Role:           models.RoleUser,
		Content:        req.Message,
	}); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	history, err := s.conversations.ListMessages(ctx, req.OwnerID, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if n := len(history); n > 0 {
		history = history[:n-1]
	}

	in := s.classifier.Classify(req.Message, history)
	res := s.tasks.Dispatch(ctx, req.OwnerID, in)
	text, calls := s.composer.Compose(in, res)

	if _, err := s.conversations.AppendMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		OwnerID:        req.OwnerID,
		Role:           models.RoleAssistant,
		Content:        text,
	}); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	if err := s.conversations.TouchConversation(ctx, req.OwnerID, conv.ID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	ex := &Exchange{ConversationID: conv.ID, Response: text, ToolCalls: calls}
	fields := []zap.Field{
		zap.Int64("conversation_id", conv.ID),
		zap.String("intent", string(in.Kind)),
	}
	if res != nil {
		fields = append(fields, zap.String("tool", res.Call.Name))
		if res.Err != nil {
			ex.Error = &ExchangeError{Code: models.CodeOf(res.Err), Message: res.Err.Error()}
			if ex.Error.Code == models.CodeInternal {
				// TaskService.Call has already logged the cause.
				ex.Error.Message = "internal error"
			}
			fields = append(fields, zap.String("code", string(ex.Error.Code)))
		}
	}
	s.logger.Debug("chat exchange", fields...)
	return ex, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, ownerID string, id *int64) (*models.Conversation, error) {
	if id == nil {
		return s.conversations.CreateConversation(ctx, ownerID)
	}
	return s.conversations.GetConversation(ctx, ownerID, *id)
}

// Conversations lists the owner's conversations, most recent first.
func (s *ChatService) Conversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	return s.conversations.ListConversations(ctx, ownerID)
}

// History returns the ordered messages of one of the owner's conversations.
func (s *ChatService) History(ctx context.Context, ownerID string, conversationID int64) ([]models.Message, error) {
	if _, err := s.conversations.GetConversation(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.ListMessages(ctx, ownerID, conversationID)
}

// stripedLocks serializes exchanges per conversation within one process.
// Distinct conversations may share a stripe.
type stripedLocks struct {
	mu [64]sync.Mutex
}

func (l *stripedLocks) lock(id int64) func() {
	m := &l.mu[uint64(id)%uint64(len(l.mu))]
	m.Lock()
	return m.Unlock
}
