package server

import (
	"net/http"
	"strings"

	"godsaeng/pkg/domain"
)

func (s *Server) handleTones(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	tones := s.app.AvailableTones(user)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": tones,
		"count": len(tones),
	})
}

type createSessionRequest struct {
	LectureID string `json:"lectureId"`
	Title     string `json:"title"`
	Tone      string `json:"tone"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		var req createSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		session, err := s.app.CreateSession(user, req.LectureID, req.Title, req.Tone)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	case http.MethodGet:
		limit, offset := pageParams(r)
		sessions, err := s.app.ListSessions(user, r.URL.Query().Get("lectureId"), limit, offset)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": sessions,
			"count": len(sessions),
		})
	default:
		methodNotAllowed(w)
	}
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// /api/chat/sessions/{id}[/messages]
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/chat/sessions/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] != "messages" {
			notFound(w, "not found")
			return
		}
		s.handleSessionMessages(w, r, user, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		session, err := s.app.GetSession(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		messages, err := s.app.SessionMessages(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session":  session,
			"messages": messages,
		})
	case http.MethodDelete:
		if err := s.app.DeleteSession(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	switch r.Method {
	case http.MethodPost:
		var req sendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		reply, err := s.app.SendSessionMessage(r.Context(), user, id, req.Message)
		if err != nil {
			if isAppSentinel(err) {
				writeAppError(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, reply)
	case http.MethodGet:
		messages, err := s.app.SessionMessages(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": messages,
			"count": len(messages),
		})
	default:
		methodNotAllowed(w)
	}
}
