package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"godsaeng/internal/aiclient"
	"godsaeng/internal/util"
	"godsaeng/pkg/domain"
)

const (
	apologyFallback    = "죄송합니다. 답변을 생성하지 못했어요. 잠시 후 다시 시도해 주세요."
	noAnswerYet        = "응답이 없습니다"
	sessionTitleSuffix = " 채팅"
	historyWindow      = 10
)

// Exchange pairs a question with its answer for history views.
type Exchange struct {
	QuestionID string    `json:"questionId,omitempty"`
	AnswerID   string    `json:"answerId,omitempty"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AskedAt    time.Time `json:"askedAt"`
}

// Ask runs a one-shot question against a lecture. The AI service routes
// chat by the external task id, so the gate is the task id being assigned,
// not the lifecycle status. The question and answer are stored as a paired
// exchange. When the AI service fails, the user still gets (and the
// history keeps) an apology instead of a dangling question.
func (a *App) Ask(ctx context.Context, user domain.User, lectureID, question string) (Exchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Exchange{}, fmt.Errorf("question required")
	}
	lecture, err := a.GetLecture(user, lectureID)
	if err != nil {
		return Exchange{}, err
	}
	if lecture.TaskID == "" {
		return Exchange{}, ErrLectureNotReady
	}

	now := time.Now().UTC()
	userMsg := domain.ChatMessage{
		ID:        util.NewID(),
		LectureID: lecture.ID,
		UserID:    user.ID,
		Role:      domain.RoleUserMessage,
		Content:   question,
		CreatedAt: now,
	}
	if err := a.store.AppendChatMessage(userMsg); err != nil {
		return Exchange{}, err
	}

	answer, chatErr := a.ai.Chat(ctx, aiclient.ChatRequest{
		LectureID: lecture.ID,
		Message:   question,
		Tone:      string(domain.ToneNormal),
	})
	if chatErr != nil {
		answer = apologyFallback
	}
	assistantMsg := domain.ChatMessage{
		ID:        util.NewID(),
		LectureID: lecture.ID,
		Role:      domain.RoleAssistantMessage,
		Content:   answer,
		ParentID:  userMsg.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendChatMessage(assistantMsg); err != nil {
		return Exchange{}, err
	}
	return Exchange{
		QuestionID: userMsg.ID,
		AnswerID:   assistantMsg.ID,
		Question:   question,
		Answer:     answer,
		AskedAt:    now,
	}, nil
}

// History returns the lecture's direct Q&A as question/answer pairs.
// Assistant messages are matched to their question via ParentID; seeded
// messages with no parent (the welcome greeting) come through as answers
// with an empty question.
func (a *App) History(user domain.User, lectureID string) ([]Exchange, error) {
	if _, err := a.GetLecture(user, lectureID); err != nil {
		return nil, err
	}
	messages, err := a.store.ListLectureMessages(lectureID)
	if err != nil {
		return nil, err
	}

	answers := make(map[string]domain.ChatMessage)
	for _, m := range messages {
		if m.Role == domain.RoleAssistantMessage && m.ParentID != "" {
			answers[m.ParentID] = m
		}
	}

	out := make([]Exchange, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.Role == domain.RoleUserMessage:
			ex := Exchange{
				QuestionID: m.ID,
				Question:   m.Content,
				Answer:     noAnswerYet,
				AskedAt:    m.CreatedAt,
			}
			if reply, ok := answers[m.ID]; ok {
				ex.AnswerID = reply.ID
				ex.Answer = reply.Content
			}
			out = append(out, ex)
		case m.Role == domain.RoleAssistantMessage && m.ParentID == "":
			out = append(out, Exchange{AnswerID: m.ID, Answer: m.Content, AskedAt: m.CreatedAt})
		}
	}
	return out, nil
}

// CreateSession opens a tone-scoped chat session on a lecture. Tones other
// than the default are reserved for god-mode accounts and are silently
// normalized for everyone else.
func (a *App) CreateSession(user domain.User, lectureID, title, tone string) (domain.ChatSession, error) {
	lecture, err := a.GetLecture(user, lectureID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	selected := domain.ToneNormal
	if tone != "" {
		parsed, ok := domain.ParseTone(tone)
		if !ok {
			return domain.ChatSession{}, ErrInvalidTone
		}
		selected = parsed
	}
	if !user.GodMode {
		selected = domain.ToneNormal
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = lecture.Title + sessionTitleSuffix
	}
	now := time.Now().UTC()
	session := domain.ChatSession{
		ID:        util.NewID(),
		UserID:    user.ID,
		LectureID: lecture.ID,
		Title:     title,
		Tone:      selected,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateChatSession(session); err != nil {
		return domain.ChatSession{}, err
	}
	return session, nil
}

// GetSession returns a session the user owns.
func (a *App) GetSession(user domain.User, sessionID string) (domain.ChatSession, error) {
	session, ok, err := a.store.GetChatSession(sessionID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if !ok {
		return domain.ChatSession{}, ErrSessionNotFound
	}
	if session.UserID != user.ID {
		return domain.ChatSession{}, ErrForbidden
	}
	return session, nil
}

// ListSessions returns the user's sessions, optionally scoped to a lecture.
func (a *App) ListSessions(user domain.User, lectureID string, limit, offset int) ([]domain.ChatSession, error) {
	if lectureID != "" {
		if _, err := a.GetLecture(user, lectureID); err != nil {
			return nil, err
		}
		return a.store.ListChatSessionsByLecture(user.ID, lectureID, limit, offset)
	}
	return a.store.ListChatSessionsByUser(user.ID, limit, offset)
}

// SessionMessages returns the raw message log of a session.
func (a *App) SessionMessages(user domain.User, sessionID string) ([]domain.ChatMessage, error) {
	if _, err := a.GetSession(user, sessionID); err != nil {
		return nil, err
	}
	return a.store.ListSessionMessages(sessionID)
}

// SendSessionMessage asks a question inside a session, carrying the recent
// conversation and the session tone to the AI service.
func (a *App) SendSessionMessage(ctx context.Context, user domain.User, sessionID, message string) (domain.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.ChatMessage{}, fmt.Errorf("message required")
	}
	session, err := a.GetSession(user, sessionID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	lecture, ok, err := a.store.GetLecture(session.LectureID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if !ok {
		return domain.ChatMessage{}, ErrLectureNotFound
	}
	if lecture.Status != domain.LectureCompleted {
		return domain.ChatMessage{}, ErrLectureNotReady
	}

	prior, err := a.store.ListSessionMessages(sessionID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	now := time.Now().UTC()
	userMsg := domain.ChatMessage{
		ID:        util.NewID(),
		LectureID: lecture.ID,
		SessionID: session.ID,
		UserID:    user.ID,
		Role:      domain.RoleUserMessage,
		Content:   message,
		CreatedAt: now,
	}
	if err := a.store.AppendChatMessage(userMsg); err != nil {
		return domain.ChatMessage{}, err
	}

	answer, chatErr := a.ai.Chat(ctx, aiclient.ChatRequest{
		LectureID: lecture.ID,
		SessionID: session.ID,
		Message:   message,
		Tone:      string(session.Tone),
		History:   historyTurns(prior),
	})
	if chatErr != nil {
		answer = apologyFallback
	}
	assistantMsg := domain.ChatMessage{
		ID:        util.NewID(),
		LectureID: lecture.ID,
		SessionID: session.ID,
		Role:      domain.RoleAssistantMessage,
		Content:   answer,
		ParentID:  userMsg.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendChatMessage(assistantMsg); err != nil {
		return domain.ChatMessage{}, err
	}
	if err := a.store.TouchChatSession(session.ID, assistantMsg.CreatedAt); err != nil {
		return domain.ChatMessage{}, err
	}
	return assistantMsg, nil
}

// DeleteSession removes a session and its messages.
func (a *App) DeleteSession(user domain.User, sessionID string) error {
	if _, err := a.GetSession(user, sessionID); err != nil {
		return err
	}
	return a.store.DeleteChatSession(sessionID)
}

// AvailableTones lists the tones the user may pick.
func (a *App) AvailableTones(user domain.User) []domain.ToneOption {
	all := domain.AllTones()
	if user.GodMode {
		return all
	}
	for _, opt := range all {
		if opt.Name == string(domain.ToneNormal) {
			return []domain.ToneOption{opt}
		}
	}
	return nil
}

func historyTurns(messages []domain.ChatMessage) []aiclient.ChatTurn {
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}
	turns := make([]aiclient.ChatTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, aiclient.ChatTurn{Role: string(m.Role), Content: m.Content})
	}
	return turns
}
