package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"studymate/internal/ai"
	"studymate/internal/capability"
	"studymate/internal/metrics"
	"studymate/internal/model"
	"studymate/internal/render"
	"studymate/internal/store"
)

const (
	// FailureText replaces the answer when the remote call fails.
	FailureText = "נכשלה התקשורת עם ה-AI."
	// EmptyAnswerText replaces an answer that finished with no text.
	EmptyAnswerText = "לא התקבלה תשובה מהמודל. נסה לנסח את השאלה מחדש."
)

type ChatConfig struct {
	Temperature         float32
	RefineEnabled       bool
	RefineTemperature   float32
	TitleTimeout        time.Duration
	MemoryConversations int
	MemoryTailRunes     int
}

// Archiver receives messages once their text is final.
type Archiver interface {
	Publish(ctx context.Context, msg model.ArchivedMessage) error
}

type ChatService struct {
	store     *store.Store
	completer ai.Completer
	renderer  *RenderService
	archiver  Archiver
	caps      *capability.Set
	cfg       ChatConfig
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	titles   sync.WaitGroup
}

type SendInput struct {
	OwnerID        string
	CategoryID     string
	ConversationID string
	Text           string
	// APIKey is honored only when the key picker capability is available.
	APIKey string
}

// Snapshot is one streaming update of the in-flight model message.
type Snapshot struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Text           string `json:"text"`
	HTML           string `json:"html"`
}

type SendResult struct {
	Conversation model.Conversation `json:"conversation"`
	Message      model.Message      `json:"message"`
	HTML         string             `json:"html"`
	Created      bool               `json:"created"`
	Refined      bool               `json:"refined"`
}

func NewChatService(
	st *store.Store,
	completer ai.Completer,
	renderer *RenderService,
	archiver Archiver,
	caps *capability.Set,
	cfg ChatConfig,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caps == nil {
		caps = capability.NewSet()
	}
	if cfg.TitleTimeout <= 0 {
		cfg.TitleTimeout = 20 * time.Second
	}
	if cfg.MemoryConversations <= 0 {
		cfg.MemoryConversations = 3
	}
	if cfg.MemoryTailRunes <= 0 {
		cfg.MemoryTailRunes = 150
	}
	return &ChatService{
		store:     st,
		completer: completer,
		renderer:  renderer,
		archiver:  archiver,
		caps:      caps,
		cfg:       cfg,
		logger:    logger,
		inflight:  make(map[string]context.CancelFunc),
	}
}

// Send runs one question/answer exchange for the owner. onSnapshot is
// called for every cumulative text update until the stream ends; a
// returned error cancels the exchange. On ErrCancelled, ErrCredential and
// ErrCompletion the result still describes the conversation.
func (s *ChatService) Send(ctx context.Context, input SendInput, onSnapshot func(Snapshot) error) (*SendResult, error) {
	owner := input.OwnerID
	text := strings.TrimSpace(input.Text)
	if owner == "" {
		return nil, ErrInvalidInput
	}
	if text == "" {
		return nil, ErrMessageEmpty
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		return nil, ErrNoCategory
	}

	if err := s.store.BeginSend(owner); err != nil {
		metrics.SendOutcomes.WithLabelValues("busy").Inc()
		return nil, err
	}
	defer s.store.EndSend(owner)

	category, err := s.store.Category(input.CategoryID)
	if err != nil {
		return nil, err
	}

	apiKey := ""
	if s.caps.Has(capability.KeyPicker) && strings.TrimSpace(input.APIKey) != "" {
		apiKey = strings.TrimSpace(input.APIKey)
		s.logger.Debug("llm_key_override", zap.String("owner", owner), zap.String("api_key", maskSecret(apiKey)))
	}

	var conv model.Conversation
	created := false
	if input.ConversationID != "" {
		conv, err = s.store.Conversation(owner, input.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv.CategoryID != category.ID {
			return nil, fmt.Errorf("%w: conversation belongs to another category", ErrInvalidInput)
		}
	} else {
		if len(category.Attachments) == 0 && !s.store.HasConversationIn(owner, category.ID) {
			metrics.SendOutcomes.WithLabelValues("no_documents").Inc()
			return nil, ErrNoDocuments
		}
		conv, err = s.store.CreateConversation(owner, category.ID, model.PlaceholderTitle)
		if err != nil {
			return nil, err
		}
		created = true
		s.generateTitleAsync(owner, conv.ID, text, apiKey)
	}

	history := make([]ai.Turn, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		history = append(history, ai.Turn{Role: m.Role, Text: m.Text})
	}
	memory := s.memoryDigest(owner, category.ID, conv.ID)

	now := s.store.Now()
	userMsg := model.Message{ID: s.store.NewID(), Role: model.RoleUser, Text: text, Timestamp: now}
	modelMsg := model.Message{ID: s.store.NewID(), Role: model.RoleModel, Timestamp: now, IsStreaming: true}
	if err := s.store.AppendMessages(owner, conv.ID, userMsg, modelMsg); err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.register(owner, cancel)
	defer s.unregister(owner)

	s.store.SetStatus(owner, model.StatusStreaming)
	req := ai.Request{
		System:      ai.WithMemory(ai.SystemInstruction, memory),
		History:     history,
		Prompt:      text,
		Documents:   category.Attachments,
		Temperature: s.cfg.Temperature,
		APIKey:      apiKey,
	}

	partial, streamErr := s.consume(sendCtx, cancel, req, owner, conv.ID, modelMsg.ID, onSnapshot)

	var final string
	var refined bool
	if streamErr == nil {
		final, refined = s.refine(sendCtx, partial, apiKey)
		if sendCtx.Err() != nil {
			// cancelled while refining; keep the streamed text
			streamErr = ai.ErrCancelled
		}
	}

	result := &SendResult{Created: created}
	switch {
	case streamErr == nil:
		if strings.TrimSpace(final) == "" {
			final = EmptyAnswerText
		}
		msg, err := s.store.FinalizeMessage(owner, conv.ID, modelMsg.ID, final)
		if err != nil {
			return nil, err
		}
		result.Message = msg
		result.Refined = refined
		s.archive(context.WithoutCancel(ctx), conv, userMsg, msg)
		metrics.SendOutcomes.WithLabelValues("ok").Inc()

	case errors.Is(streamErr, ai.ErrCancelled):
		if strings.TrimSpace(partial) == "" {
			_ = s.store.RemoveMessage(owner, conv.ID, modelMsg.ID)
		} else if msg, err := s.store.FinalizeMessage(owner, conv.ID, modelMsg.ID, partial); err == nil {
			result.Message = msg
			s.archive(context.WithoutCancel(ctx), conv, userMsg, msg)
		}
		metrics.SendOutcomes.WithLabelValues("cancelled").Inc()
		streamErr = ErrCancelled

	case errors.Is(streamErr, store.ErrConversationNotFound),
		errors.Is(streamErr, store.ErrMessageNotFound),
		errors.Is(streamErr, store.ErrNotStreaming):
		s.logger.Info("conversation_gone_mid_stream", zap.String("owner", owner), zap.String("conversation", conv.ID), zap.Error(streamErr))
		metrics.SendOutcomes.WithLabelValues("gone").Inc()

	case ai.IsCredentialError(streamErr):
		_ = s.store.RemoveMessage(owner, conv.ID, modelMsg.ID)
		s.logger.Warn("llm_credential_rejected", zap.String("owner", owner), zap.Error(streamErr))
		metrics.SendOutcomes.WithLabelValues("credential").Inc()
		streamErr = fmt.Errorf("%w: %v", ErrCredential, streamErr)

	default:
		if msg, err := s.store.FinalizeMessage(owner, conv.ID, modelMsg.ID, FailureText); err == nil {
			result.Message = msg
		}
		s.logger.Error("llm_stream_failed", zap.String("owner", owner), zap.String("conversation", conv.ID), zap.Error(streamErr))
		metrics.SendOutcomes.WithLabelValues("error").Inc()
		streamErr = fmt.Errorf("%w: %v", ErrCompletion, streamErr)
	}

	if latest, err := s.store.Conversation(owner, conv.ID); err == nil {
		result.Conversation = latest
	}
	if result.Message.ID != "" {
		result.HTML = s.renderer.Render(ctx, result.Message.Text, false)
	}
	return result, streamErr
}

// consume applies every snapshot of the stream to the model message and
// returns the last applied text.
func (s *ChatService) consume(
	ctx context.Context,
	cancel context.CancelFunc,
	req ai.Request,
	owner, convID, msgID string,
	onSnapshot func(Snapshot) error,
) (string, error) {
	stream, err := s.completer.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	applied := ""
	for stream.Next() {
		text := stream.Text()
		if err := s.store.ReplaceText(owner, convID, msgID, text); err != nil {
			// conversation deleted underneath the stream
			cancel()
			return applied, err
		}
		applied = text
		metrics.SnapshotsApplied.Inc()
		if onSnapshot == nil {
			continue
		}
		snap := Snapshot{
			ConversationID: convID,
			MessageID:      msgID,
			Text:           text,
			HTML:           s.renderer.Render(ctx, text, true),
		}
		if err := onSnapshot(snap); err != nil {
			s.logger.Info("snapshot_consumer_gone", zap.String("owner", owner), zap.Error(err))
			cancel()
		}
	}
	return applied, stream.Err()
}

// refine asks the model to polish text. The rewrite is kept only if it
// still carries every citation and formula of the original.
func (s *ChatService) refine(ctx context.Context, text, apiKey string) (string, bool) {
	if !s.cfg.RefineEnabled || strings.TrimSpace(text) == "" {
		return text, false
	}
	refined, err := s.completer.Complete(ctx, ai.Request{
		Prompt:      ai.RefinerPrompt + text,
		Temperature: s.cfg.RefineTemperature,
		APIKey:      apiKey,
	})
	if err != nil {
		s.logger.Warn("refine_failed", zap.Error(err))
		return text, false
	}
	refined = strings.TrimSpace(refined)
	if refined == "" || !render.PreservesMarkers(text, refined) {
		s.logger.Info("refine_discarded", zap.Int("original_len", len(text)), zap.Int("refined_len", len(refined)))
		return text, false
	}
	return refined, true
}

func (s *ChatService) memoryDigest(owner, categoryID, currentID string) []ai.MemoryEntry {
	var entries []ai.MemoryEntry
	for _, c := range s.store.Conversations(owner, categoryID) {
		if c.ID == currentID {
			continue
		}
		if len(entries) == s.cfg.MemoryConversations {
			break
		}
		last, _ := c.LastModelText()
		entries = append(entries, ai.MemoryEntry{
			Title: c.Title,
			Tail:  ai.Tail(last, s.cfg.MemoryTailRunes),
		})
	}
	return entries
}

// Cancel stops the owner's in-flight send, if any.
func (s *ChatService) Cancel(owner string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[owner]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *ChatService) Status(owner string) model.Status {
	return s.store.Status(owner)
}

// GenerateTitle returns a short title for a first question. It never
// returns an empty string or one containing '*' or '"'.
func (s *ChatService) GenerateTitle(ctx context.Context, text string) string {
	return s.generateTitle(ctx, text, "")
}

func (s *ChatService) generateTitle(ctx context.Context, text, apiKey string) string {
	out, err := s.completer.Complete(ctx, ai.Request{
		Prompt:      ai.TitlePrompt(text),
		Temperature: 0.1,
		APIKey:      apiKey,
	})
	if err != nil {
		s.logger.Warn("title_generation_failed", zap.Error(err))
		return model.FallbackTitle
	}
	return SanitizeTitle(out)
}

func SanitizeTitle(raw string) string {
	cleaned := strings.NewReplacer("*", "", `"`, "").Replace(raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return model.FallbackTitle
	}
	return cleaned
}

func (s *ChatService) generateTitleAsync(owner, convID, text, apiKey string) {
	s.titles.Add(1)
	go func() {
		defer s.titles.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TitleTimeout)
		defer cancel()

		title := s.generateTitle(ctx, text, apiKey)
		if err := s.store.SetTitle(owner, convID, title); err != nil && !errors.Is(err, store.ErrConversationNotFound) {
			s.logger.Warn("title_update_failed", zap.String("conversation", convID), zap.Error(err))
		}
	}()
}

// Wait blocks until background title generation has finished.
func (s *ChatService) Wait() {
	s.titles.Wait()
}

func (s *ChatService) register(owner string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[owner] = cancel
}

func (s *ChatService) unregister(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, owner)
}

func (s *ChatService) archive(ctx context.Context, conv model.Conversation, msgs ...model.Message) {
	if s.archiver == nil {
		return
	}
	for _, m := range msgs {
		err := s.archiver.Publish(ctx, model.ArchivedMessage{
			MessageID:      m.ID,
			ConversationID: conv.ID,
			CategoryID:     conv.CategoryID,
			OwnerID:        conv.OwnerID,
			Role:           string(m.Role),
			Text:           m.Text,
			Timestamp:      m.Timestamp,
		})
		if err != nil {
			metrics.ArchivedMessages.WithLabelValues("publish", "error").Inc()
			s.logger.Warn("archive_publish_failed", zap.String("message", m.ID), zap.Error(err))
			continue
		}
		metrics.ArchivedMessages.WithLabelValues("publish", "ok").Inc()
	}
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
