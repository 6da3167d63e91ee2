package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"leukemia-care-portal/internal/platform/apperrors"
	"leukemia-care-portal/internal/predict"
)

// Asker answers one free-text question.
type Asker interface {
	Ask(ctx context.Context, query string) (*predict.AskResponse, error)
}

type Reply struct {
	Message      Message      `json:"message"`
	Conversation Conversation `json:"conversation"`
}

type Service interface {
	Send(ctx context.Context, viewer, text string) (*Reply, error)
	History(ctx context.Context, viewer string) (*Conversation, error)
	Reset(ctx context.Context, viewer string) error
}

type service struct {
	repo   Repository
	asker  Asker
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, asker Asker, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		asker:  asker,
		logger: logger.With().Str("component", "chat").Logger(),
		now:    time.Now,
	}
}

func (s *service) load(ctx context.Context, viewer string) (*Conversation, error) {
	c, err := s.repo.Get(ctx, viewer)
	if err != nil {
		return nil, apperrors.NewInternal("failed to load conversation", err)
	}
	if c == nil {
		c = &Conversation{ID: uuid.New(), Viewer: viewer, History: []Message{}}
	}
	return c, nil
}

// Send appends the question and the bot's answer. An unreachable chat
// service yields an apology from the bot, not an error.
func (s *service) Send(ctx context.Context, viewer, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidation("message must not be empty", "text")
	}

	c, err := s.load(ctx, viewer)
	if err != nil {
		return nil, err
	}
	c.History = append(c.History, Message{Sender: SenderUser, Text: text, Timestamp: s.now()})

	answer := MsgConnectionTrouble
	resp, err := s.asker.Ask(ctx, text)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("conversation_id", c.ID.String()).Msg("chat service unavailable")
	case resp.Response == "":
		s.logger.Warn().Str("conversation_id", c.ID.String()).Msg("chat service returned an empty answer")
	default:
		answer = resp.Response
	}

	bot := Message{Sender: SenderBot, Text: answer, Timestamp: s.now()}
	c.History = append(c.History, bot)

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, apperrors.NewInternal("failed to save conversation", err)
	}
	return &Reply{Message: bot, Conversation: *c}, nil
}

func (s *service) History(ctx context.Context, viewer string) (*Conversation, error) {
	return s.load(ctx, viewer)
}

func (s *service) Reset(ctx context.Context, viewer string) error {
	if err := s.repo.Delete(ctx, viewer); err != nil {
		return apperrors.NewInternal("failed to reset conversation", err)
	}
	return nil
}
