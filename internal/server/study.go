package server

import (
	"net/http"
	"strings"
	"time"

	"godsaeng/internal/app"
	"godsaeng/pkg/domain"
)

// GET returns the stored plan, POST generates one synchronously.
func (s *Server) handleLectureStudyPlan(w http.ResponseWriter, r *http.Request, user domain.User, lectureID string) {
	switch r.Method {
	case http.MethodGet:
		plan, err := s.app.GetStudyPlanForLecture(user, lectureID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	case http.MethodPost:
		plan, err := s.app.GenerateStudyPlan(r.Context(), user, lectureID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, plan)
	default:
		methodNotAllowed(w)
	}
}

// POST asks the AI service for a plan; it arrives later via callback.
func (s *Server) handleLectureStudyPlanAsync(w http.ResponseWriter, r *http.Request, user domain.User, lectureID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.RequestStudyPlan(r.Context(), user, lectureID); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

type createPlanRequest struct {
	LectureID   string `json:"lectureId"`
	PlanDetails string `json:"planDetails"`
	Status      string `json:"status"`
}

func (s *Server) handleStudyPlans(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		var req createPlanRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		plan, err := s.app.CreateStudyPlan(user, app.StudyPlanInput{
			LectureID:   req.LectureID,
			PlanDetails: req.PlanDetails,
			Status:      req.Status,
		})
		if err != nil {
			if isAppSentinel(err) {
				writeAppError(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, plan)
	case http.MethodGet:
		limit, offset := pageParams(r)
		plans, err := s.app.ListStudyPlans(user, r.URL.Query().Get("lectureId"), limit, offset)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": plans,
			"count": len(plans),
		})
	default:
		methodNotAllowed(w)
	}
}

type updatePlanRequest struct {
	Status string `json:"status"`
}

// /api/study-plans/{id}
func (s *Server) handleStudyPlanByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/study-plans/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		plan, err := s.app.GetStudyPlan(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	case http.MethodPatch:
		var req updatePlanRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		plan, err := s.app.UpdateStudyPlanStatus(user, id, req.Status)
		if err != nil {
			if isAppSentinel(err) {
				writeAppError(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, plan)
	case http.MethodDelete:
		if err := s.app.DeleteStudyPlan(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

type studyRecordRequest struct {
	LectureID    string `json:"lectureId"`
	StudyDate    string `json:"studyDate"`
	StudyMinutes int    `json:"studyDuration"`
	Notes        string `json:"notes"`
}

func (r studyRecordRequest) toInput() (app.StudyRecordInput, error) {
	in := app.StudyRecordInput{
		LectureID:    r.LectureID,
		DurationMins: r.StudyMinutes,
		Notes:        r.Notes,
	}
	if r.StudyDate != "" {
		date, err := time.Parse("2006-01-02", r.StudyDate)
		if err != nil {
			return app.StudyRecordInput{}, err
		}
		in.StudyDate = date
	}
	return in, nil
}

func (s *Server) handleStudyRecords(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodPost:
		var req studyRecordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(w, http.StatusBadRequest, "studyDate must be YYYY-MM-DD")
			return
		}
		record, err := s.app.CreateStudyRecord(user, in)
		if err != nil {
			if isAppSentinel(err) {
				writeAppError(w, err)
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, record)
	case http.MethodGet:
		limit, offset := pageParams(r)
		records, err := s.app.ListStudyRecords(user, r.URL.Query().Get("lectureId"), limit, offset)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": records,
			"count": len(records),
		})
	default:
		methodNotAllowed(w)
	}
}

// /api/study-records/{id}
func (s *Server) handleStudyRecordByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/study-records/")
	if id == "" || strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		record, err := s.app.GetStudyRecord(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	case http.MethodPatch:
		var req studyRecordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeError(w, http.StatusBadRequest, "studyDate must be YYYY-MM-DD")
			return
		}
		record, err := s.app.UpdateStudyRecord(user, id, in)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	case http.MethodDelete:
		if err := s.app.DeleteStudyRecord(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}
