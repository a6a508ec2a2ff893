package server

import (
	"io"
	"net/http"
	"strings"

	"godsaeng/internal/app"
	"godsaeng/pkg/domain"
)

type createLectureRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	VideoURL      string `json:"videoUrl"`
	RemainingDays int    `json:"remainingDays"`
}

func (s *Server) handleLectures(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateLecture(w, r, user)
	case http.MethodGet:
		s.handleListLectures(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateLecture(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req createLectureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	lecture, err := s.app.CreateLecture(r.Context(), user, app.CreateLectureInput{
		Title:         req.Title,
		Description:   req.Description,
		VideoURL:      req.VideoURL,
		RemainingDays: req.RemainingDays,
	})
	if err != nil {
		if err == app.ErrInvalidVideoURL {
			writeAppError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, lecture)
}

func (s *Server) handleListLectures(w http.ResponseWriter, r *http.Request, user domain.User) {
	limit, offset := pageParams(r)
	lectures, err := s.app.ListLectures(user, limit, offset)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": lectures,
		"count": len(lectures),
	})
}

func (s *Server) handleUploadLecture(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	media, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	in := app.CreateLectureInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if v := r.FormValue("remainingDays"); v != "" {
		if n, convErr := atoiPositive(v); convErr == nil {
			in.RemainingDays = n
		}
	}
	lecture, err := s.app.UploadLecture(r.Context(), user, in, header.Filename, media)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hand off media")
		return
	}
	writeJSON(w, http.StatusCreated, lecture)
}

// /api/lectures/{id}[/media|/questions|/study-plan|/study-plan/async|/sessions]
func (s *Server) handleLectureByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/api/lectures/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "media":
			s.handleLectureMedia(w, r, user, id)
		case "questions":
			s.handleLectureQuestions(w, r, user, id)
		case "study-plan":
			s.handleLectureStudyPlan(w, r, user, id)
		case "study-plan/async":
			s.handleLectureStudyPlanAsync(w, r, user, id)
		case "sessions":
			s.handleLectureSessions(w, r, user, id)
		default:
			notFound(w, "not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		lecture, err := s.app.GetLecture(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lecture)
	case http.MethodDelete:
		if err := s.app.DeleteLecture(r.Context(), user, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleLectureMedia(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	url, err := s.app.GetMediaDownloadURL(r.Context(), user, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleLectureQuestions(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	switch r.Method {
	case http.MethodPost:
		var req askRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		exchange, err := s.app.Ask(r.Context(), user, id, req.Question)
		if err != nil {
			if isAppSentinel(err) {
				writeAppError(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, exchange)
	case http.MethodGet:
		history, err := s.app.History(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": history,
			"count": len(history),
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleLectureSessions(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit, offset := pageParams(r)
	sessions, err := s.app.ListSessions(user, id, limit, offset)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": sessions,
		"count": len(sessions),
	})
}
