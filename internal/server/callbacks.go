package server

import (
	"io"
	"net/http"
	"strings"

	"godsaeng/internal/callback"
	"godsaeng/internal/util"
)

const maxCallbackBytes = 4 << 20

func readCallbackBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

// Callbacks are fire-and-forget from the AI service's side: a malformed
// payload is logged with its full body so the drop is diagnosable.
func (s *Server) rejectCallback(w http.ResponseWriter, r *http.Request, body []byte, err error) {
	util.LoggerFromContext(r.Context()).Error("callback rejected",
		"path", r.URL.Path,
		"error", err,
		"payload", string(body),
	)
	writeAppError(w, err)
}

func (s *Server) handleResultCallback(w http.ResponseWriter, r *http.Request) {
	body, ok := readCallbackBody(w, r)
	if !ok {
		return
	}
	cb, err := callback.ParseResult(body)
	if err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	if err := s.app.ApplyResultCallback(cb); err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleStatusCallback(w http.ResponseWriter, r *http.Request) {
	body, ok := readCallbackBody(w, r)
	if !ok {
		return
	}
	cb, err := callback.ParseStatus(body)
	if err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	if err := s.app.ApplyStatusCallback(cb); err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleEmbeddingCallback(w http.ResponseWriter, r *http.Request) {
	body, ok := readCallbackBody(w, r)
	if !ok {
		return
	}
	cb, err := callback.ParseEmbedding(body)
	if err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	if err := s.app.ApplyEmbeddingCallback(cb); err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleStudyPlanCallback(w http.ResponseWriter, r *http.Request) {
	body, ok := readCallbackBody(w, r)
	if !ok {
		return
	}
	cb, err := callback.ParseStudyPlan(body)
	if err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	if err := s.app.ApplyStudyPlanCallback(cb); err != nil {
		s.rejectCallback(w, r, body, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// GET /api/ai/callback/result/{taskId} proxies a synchronous result fetch
// from the AI service, for operators checking on a stuck lecture.
func (s *Server) handlePullResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	taskID := strings.TrimPrefix(r.URL.Path, "/api/ai/callback/result/")
	if taskID == "" || strings.Contains(taskID, "/") {
		notFound(w, "not found")
		return
	}
	result, err := s.app.PullResult(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
