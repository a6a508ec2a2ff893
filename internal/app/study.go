package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"godsaeng/internal/util"
	"godsaeng/pkg/domain"
)

// RequestStudyPlan asks the AI service to generate a study plan for a
// completed lecture. The plan arrives later through the study-plan
// callback.
func (a *App) RequestStudyPlan(ctx context.Context, user domain.User, lectureID string) error {
	lecture, err := a.GetLecture(user, lectureID)
	if err != nil {
		return err
	}
	if lecture.Status != domain.LectureCompleted {
		return ErrLectureNotReady
	}
	return a.ai.RequestStudyPlan(ctx, user.Email, lecture.ID, lecture.RemainingDays)
}

// GenerateStudyPlan generates a plan synchronously and stores it.
func (a *App) GenerateStudyPlan(ctx context.Context, user domain.User, lectureID string) (domain.StudyPlan, error) {
	lecture, err := a.GetLecture(user, lectureID)
	if err != nil {
		return domain.StudyPlan{}, err
	}
	if lecture.Status != domain.LectureCompleted {
		return domain.StudyPlan{}, ErrLectureNotReady
	}
	details, err := a.ai.GetStudyRecommendation(ctx, user.Email, lecture.ID, lecture.RemainingDays)
	if err != nil {
		return domain.StudyPlan{}, fmt.Errorf("generate study plan: %w", err)
	}
	return a.store.UpsertStudyPlan(user.ID, lecture.ID, details)
}

// StudyPlanInput describes a user-authored study plan.
type StudyPlanInput struct {
	LectureID   string
	PlanDetails string
	Status      string
}

// CreateStudyPlan stores a plan the user wrote themselves, as opposed to
// the AI-generated paths.
func (a *App) CreateStudyPlan(user domain.User, in StudyPlanInput) (domain.StudyPlan, error) {
	if _, err := a.GetLecture(user, in.LectureID); err != nil {
		return domain.StudyPlan{}, err
	}
	details := strings.TrimSpace(in.PlanDetails)
	if details == "" {
		return domain.StudyPlan{}, fmt.Errorf("plan details required")
	}
	status := domain.PlanPending
	if in.Status != "" {
		parsed, ok := domain.ParsePlanStatus(in.Status)
		if !ok {
			return domain.StudyPlan{}, fmt.Errorf("unknown plan status %q", in.Status)
		}
		status = parsed
	}
	now := time.Now().UTC()
	plan := domain.StudyPlan{
		ID:          util.NewID(),
		UserID:      user.ID,
		LectureID:   in.LectureID,
		PlanDetails: details,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.CreateStudyPlan(plan); err != nil {
		return domain.StudyPlan{}, err
	}
	return plan, nil
}

// GetStudyPlanForLecture returns the user's plan for a lecture.
func (a *App) GetStudyPlanForLecture(user domain.User, lectureID string) (domain.StudyPlan, error) {
	if _, err := a.GetLecture(user, lectureID); err != nil {
		return domain.StudyPlan{}, err
	}
	plan, ok, err := a.store.GetStudyPlanByUserAndLecture(user.ID, lectureID)
	if err != nil {
		return domain.StudyPlan{}, err
	}
	if !ok {
		return domain.StudyPlan{}, ErrPlanNotFound
	}
	return plan, nil
}

// GetStudyPlan returns a plan the user owns.
func (a *App) GetStudyPlan(user domain.User, planID string) (domain.StudyPlan, error) {
	return a.getOwnedPlan(user, planID)
}

// ListStudyPlans returns the user's plans, optionally scoped to a lecture.
func (a *App) ListStudyPlans(user domain.User, lectureID string, limit, offset int) ([]domain.StudyPlan, error) {
	if lectureID != "" {
		return a.store.ListStudyPlansByLecture(user.ID, lectureID, limit, offset)
	}
	return a.store.ListStudyPlansByUser(user.ID, limit, offset)
}

// UpdateStudyPlanStatus moves a plan through PENDING, IN_PROGRESS and
// COMPLETED.
func (a *App) UpdateStudyPlanStatus(user domain.User, planID, status string) (domain.StudyPlan, error) {
	parsed, ok := domain.ParsePlanStatus(status)
	if !ok {
		return domain.StudyPlan{}, fmt.Errorf("unknown plan status %q", status)
	}
	plan, err := a.getOwnedPlan(user, planID)
	if err != nil {
		return domain.StudyPlan{}, err
	}
	plan.Status = parsed
	if err := a.store.UpdateStudyPlan(plan); err != nil {
		return domain.StudyPlan{}, err
	}
	plan.UpdatedAt = time.Now().UTC()
	return plan, nil
}

// DeleteStudyPlan removes a plan the user owns.
func (a *App) DeleteStudyPlan(user domain.User, planID string) error {
	if _, err := a.getOwnedPlan(user, planID); err != nil {
		return err
	}
	return a.store.DeleteStudyPlan(planID)
}

func (a *App) getOwnedPlan(user domain.User, planID string) (domain.StudyPlan, error) {
	plan, ok, err := a.store.GetStudyPlan(planID)
	if err != nil {
		return domain.StudyPlan{}, err
	}
	if !ok {
		return domain.StudyPlan{}, ErrPlanNotFound
	}
	if plan.UserID != user.ID {
		return domain.StudyPlan{}, ErrForbidden
	}
	return plan, nil
}

// StudyRecordInput describes a study session log entry.
type StudyRecordInput struct {
	LectureID    string
	StudyDate    time.Time
	DurationMins int
	Notes        string
}

// CreateStudyRecord logs a study session against a lecture.
func (a *App) CreateStudyRecord(user domain.User, in StudyRecordInput) (domain.StudyRecord, error) {
	if _, err := a.GetLecture(user, in.LectureID); err != nil {
		return domain.StudyRecord{}, err
	}
	if in.DurationMins <= 0 {
		return domain.StudyRecord{}, fmt.Errorf("study duration must be positive")
	}
	if in.StudyDate.IsZero() {
		in.StudyDate = time.Now().UTC()
	}
	now := time.Now().UTC()
	record := domain.StudyRecord{
		ID:           util.NewID(),
		UserID:       user.ID,
		LectureID:    in.LectureID,
		StudyDate:    in.StudyDate,
		DurationMins: in.DurationMins,
		Notes:        strings.TrimSpace(in.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateStudyRecord(record); err != nil {
		return domain.StudyRecord{}, err
	}
	return record, nil
}

// GetStudyRecord returns a record the user owns.
func (a *App) GetStudyRecord(user domain.User, recordID string) (domain.StudyRecord, error) {
	return a.getOwnedRecord(user, recordID)
}

// ListStudyRecords returns the user's records, optionally scoped to a
// lecture.
func (a *App) ListStudyRecords(user domain.User, lectureID string, limit, offset int) ([]domain.StudyRecord, error) {
	if lectureID != "" {
		return a.store.ListStudyRecordsByLecture(user.ID, lectureID, limit, offset)
	}
	return a.store.ListStudyRecordsByUser(user.ID, limit, offset)
}

// UpdateStudyRecord edits a record the user owns.
func (a *App) UpdateStudyRecord(user domain.User, recordID string, in StudyRecordInput) (domain.StudyRecord, error) {
	record, err := a.getOwnedRecord(user, recordID)
	if err != nil {
		return domain.StudyRecord{}, err
	}
	if in.DurationMins > 0 {
		record.DurationMins = in.DurationMins
	}
	if !in.StudyDate.IsZero() {
		record.StudyDate = in.StudyDate
	}
	if in.Notes != "" {
		record.Notes = strings.TrimSpace(in.Notes)
	}
	if err := a.store.UpdateStudyRecord(record); err != nil {
		return domain.StudyRecord{}, err
	}
	record.UpdatedAt = time.Now().UTC()
	return record, nil
}

// DeleteStudyRecord removes a record the user owns.
func (a *App) DeleteStudyRecord(user domain.User, recordID string) error {
	if _, err := a.getOwnedRecord(user, recordID); err != nil {
		return err
	}
	return a.store.DeleteStudyRecord(recordID)
}

func (a *App) getOwnedRecord(user domain.User, recordID string) (domain.StudyRecord, error) {
	record, ok, err := a.store.GetStudyRecord(recordID)
	if err != nil {
		return domain.StudyRecord{}, err
	}
	if !ok {
		return domain.StudyRecord{}, ErrRecordNotFound
	}
	if record.UserID != user.ID {
		return domain.StudyRecord{}, ErrForbidden
	}
	return record, nil
}
