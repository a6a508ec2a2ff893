// Package server exposes the HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"godsaeng/internal/app"
	"godsaeng/internal/callback"
	"godsaeng/internal/ratelimit"
	"godsaeng/internal/util"
	"godsaeng/pkg/domain"
	"godsaeng/pkg/token"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	AuthLimiter    *ratelimit.AuthLimiter
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
}

// Server exposes HTTP endpoints for the study-assistant API.
type Server struct {
	app            *app.App
	authLimiter    *ratelimit.AuthLimiter
	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 200 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		authLimiter:    cfg.AuthLimiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("godsaeng", util.WithSecurityHeaders(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.Handle("/api/auth/signup", s.withAuthLimit(s.handleSignUp))
	s.mux.Handle("/api/auth/login", s.withAuthLimit(s.handleLogin))
	s.mux.Handle("/api/auth/refresh", s.withAuthLimit(s.handleRefresh))
	s.mux.Handle("/api/users/me", s.withUser(s.handleMe))
	s.mux.Handle("/api/users/me/god-mode", s.withUser(s.handleGodMode))

	// lectures
	s.mux.Handle("/api/lectures", s.withUser(s.handleLectures))
	s.mux.Handle("/api/lectures/youtube", s.withUser(s.handleLectures))
	s.mux.Handle("/api/lectures/upload", s.withUser(s.handleUploadLecture))
	s.mux.Handle("/api/lectures/", s.withUser(s.handleLectureByID))

	// chat sessions
	s.mux.Handle("/api/chat/tones", s.withUser(s.handleTones))
	s.mux.Handle("/api/chat/available-tones", s.withUser(s.handleTones))
	s.mux.Handle("/api/chat/sessions", s.withUser(s.handleSessions))
	s.mux.Handle("/api/chat/sessions/", s.withUser(s.handleSessionByID))

	// study
	s.mux.Handle("/api/study-plans", s.withUser(s.handleStudyPlans))
	s.mux.Handle("/api/study-plans/", s.withUser(s.handleStudyPlanByID))
	s.mux.Handle("/api/study-records", s.withUser(s.handleStudyRecords))
	s.mux.Handle("/api/study-records/", s.withUser(s.handleStudyRecordByID))

	// AI service callbacks (unauthenticated: reachable only inside the
	// service network)
	s.mux.HandleFunc("/api/ai/callback", s.handleResultCallback)
	s.mux.HandleFunc("/api/ai/callback/complete", s.handleResultCallback)
	s.mux.HandleFunc("/api/ai/callback/status", s.handleStatusCallback)
	s.mux.HandleFunc("/api/ai/callback/embedding", s.handleEmbeddingCallback)
	s.mux.HandleFunc("/api/ai/callback/study-plan", s.handleStudyPlanCallback)
	s.mux.HandleFunc("/api/ai/callback/result/", s.handlePullResult)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, err := s.app.Authenticate(bearer)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) withAuthLimit(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authLimiter != nil {
			ip := util.ClientIP(r, s.trustedProxies)
			if ok, retryAfter := s.authLimiter.Allow(r.Context(), ip); !ok {
				if secs := int(retryAfter.Round(time.Second).Seconds()); secs > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(secs))
				}
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tok == "" {
		return "", false
	}
	return tok, true
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(out)
}

func pageParams(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

func atoiPositive(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// isAppSentinel reports whether the error carries its own HTTP mapping.
func isAppSentinel(err error) bool {
	for _, sentinel := range []error{
		app.ErrForbidden, app.ErrLectureNotFound, app.ErrSessionNotFound,
		app.ErrPlanNotFound, app.ErrRecordNotFound, app.ErrUserNotFound,
		app.ErrLectureNotReady, app.ErrEmailExists, app.ErrInvalidCredentials,
		app.ErrInvalidRefreshToken, app.ErrInvalidVideoURL, app.ErrInvalidTone,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

// writeAppError translates app-layer sentinel errors into HTTP responses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrLectureNotFound):
		notFound(w, "lecture not found")
	case errors.Is(err, app.ErrSessionNotFound):
		notFound(w, "session not found")
	case errors.Is(err, app.ErrPlanNotFound):
		notFound(w, "study plan not found")
	case errors.Is(err, app.ErrRecordNotFound):
		notFound(w, "study record not found")
	case errors.Is(err, app.ErrUserNotFound):
		notFound(w, "user not found")
	case errors.Is(err, app.ErrLectureNotReady):
		writeError(w, http.StatusConflict, "lecture is still processing")
	case errors.Is(err, app.ErrEmailExists):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, app.ErrInvalidRefreshToken), errors.Is(err, token.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, app.ErrInvalidVideoURL):
		writeError(w, http.StatusBadRequest, "video url must point to youtube")
	case errors.Is(err, app.ErrInvalidTone):
		writeError(w, http.StatusBadRequest, "unknown tone")
	case errors.Is(err, callback.ErrInvalidCallback):
		writeError(w, http.StatusInternalServerError, "invalid callback payload")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "invalid credentials":
		return "AUTH_INVALID_CREDENTIALS"
	case message == "email already registered":
		return "AUTH_EMAIL_EXISTS"
	case message == "too many requests":
		return "AUTH_RATE_LIMITED"
	case message == "forbidden":
		return "LECTURE_FORBIDDEN"
	case message == "lecture not found":
		return "LECTURE_NOT_FOUND"
	case message == "lecture is still processing":
		return "LECTURE_NOT_READY"
	case strings.Contains(message, "video url"):
		return "LECTURE_INVALID_VIDEO_URL"
	case strings.Contains(message, "file is required"), message == "invalid form data":
		return "LECTURE_INVALID_UPLOAD_FORM"
	case message == "session not found":
		return "CHAT_SESSION_NOT_FOUND"
	case message == "unknown tone":
		return "CHAT_INVALID_TONE"
	case message == "study plan not found":
		return "STUDY_PLAN_NOT_FOUND"
	case message == "study record not found":
		return "STUDY_RECORD_NOT_FOUND"
	case message == "invalid callback payload":
		return "CALLBACK_INVALID_PAYLOAD"
	case message == "invalid json body":
		return "REQUEST_INVALID_BODY"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "REQUEST_INVALID"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "LECTURE_FORBIDDEN"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusConflict:
		return "REQUEST_CONFLICT"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "AUTH_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
