package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"godsaeng/internal/aiclient"
	"godsaeng/internal/callback"
	"godsaeng/internal/dispatch"
	"godsaeng/internal/util"
	"godsaeng/pkg/domain"
	"godsaeng/pkg/storage"
	"godsaeng/pkg/store"
)

const welcomeMessageFormat = "안녕하세요! %s에 대해 질문해 주세요. 강의 내용을 바탕으로 답변해 드릴게요."

// CreateLectureInput describes a YouTube lecture submission.
type CreateLectureInput struct {
	Title         string
	Description   string
	VideoURL      string
	RemainingDays int
}

// CreateLecture registers a YouTube lecture and hands it off for
// processing. The handoff is fire-and-forget: the lecture comes back in
// PROCESSING and moves on through callbacks.
func (a *App) CreateLecture(ctx context.Context, user domain.User, in CreateLectureInput) (domain.Lecture, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Lecture{}, fmt.Errorf("title required")
	}
	videoURL := strings.TrimSpace(in.VideoURL)
	if !isYoutubeURL(videoURL) {
		return domain.Lecture{}, ErrInvalidVideoURL
	}
	now := time.Now().UTC()
	lecture := domain.Lecture{
		ID:            util.NewID(),
		UserID:        user.ID,
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		SourceType:    domain.SourceYoutube,
		VideoURL:      videoURL,
		Status:        domain.LectureProcessing,
		RemainingDays: in.RemainingDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := a.store.CreateLecture(lecture); err != nil {
		return domain.Lecture{}, err
	}
	a.enqueueDispatch(ctx, &lecture)
	return lecture, nil
}

// UploadLecture registers a lecture from an uploaded media file. The file
// is archived, then streamed to the AI service, and the returned task id is
// patched onto the lecture.
func (a *App) UploadLecture(ctx context.Context, user domain.User, in CreateLectureInput, filename string, media []byte) (domain.Lecture, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = titleFromFilename(filename)
	}
	if title == "" {
		return domain.Lecture{}, fmt.Errorf("title required")
	}
	if len(media) == 0 {
		return domain.Lecture{}, fmt.Errorf("media file required")
	}
	now := time.Now().UTC()
	lecture := domain.Lecture{
		ID:            util.NewID(),
		UserID:        user.ID,
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		SourceType:    domain.SourceUpload,
		VideoURL:      domain.UploadPendingLocator,
		Status:        domain.LectureProcessing,
		RemainingDays: in.RemainingDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	lecture.StorageKey = storage.LectureMediaKey(lecture.ID, filename)
	if err := a.store.CreateLecture(lecture); err != nil {
		return domain.Lecture{}, err
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.archive.Put(ctx, lecture.StorageKey, bytes.NewReader(media), int64(len(media)), contentType); err != nil {
		slog.Warn("archive lecture media failed", "lecture_id", lecture.ID, "error", err)
	}

	// FAILED is only reachable through a status callback, so a failed
	// upload leaves the lecture PROCESSING with the placeholder locator.
	taskID, err := a.ai.Upload(ctx, lecture.ID, filepath.Base(filename), bytes.NewReader(media))
	if err != nil {
		return domain.Lecture{}, fmt.Errorf("hand off media: %w", err)
	}
	if err := a.store.SetLectureTaskID(lecture.ID, taskID); err != nil {
		return domain.Lecture{}, err
	}
	lecture.TaskID = taskID
	lecture.VideoURL = taskID
	return lecture, nil
}

// GetLecture returns a lecture owned by the user.
func (a *App) GetLecture(user domain.User, id string) (domain.Lecture, error) {
	lecture, ok, err := a.store.GetLecture(id)
	if err != nil {
		return domain.Lecture{}, err
	}
	if !ok {
		return domain.Lecture{}, ErrLectureNotFound
	}
	if lecture.UserID != user.ID {
		return domain.Lecture{}, ErrForbidden
	}
	return lecture, nil
}

// ListLectures returns the user's lectures, newest first.
func (a *App) ListLectures(user domain.User, limit, offset int) ([]domain.Lecture, error) {
	return a.store.ListLecturesByUser(user.ID, limit, offset)
}

// GetMediaDownloadURL returns a pre-signed URL for archived upload media.
func (a *App) GetMediaDownloadURL(ctx context.Context, user domain.User, id string) (string, error) {
	lecture, err := a.GetLecture(user, id)
	if err != nil {
		return "", err
	}
	if lecture.SourceType != domain.SourceUpload || lecture.StorageKey == "" {
		return "", ErrLectureNotFound
	}
	return a.archive.PresignGet(ctx, lecture.StorageKey, a.presignExpiry)
}

// DeleteLecture removes a lecture, its chat history, study data and any
// archived media.
func (a *App) DeleteLecture(ctx context.Context, user domain.User, id string) error {
	lecture, err := a.GetLecture(user, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteLecture(id); err != nil {
		return err
	}
	if err := a.archive.DeletePrefix(ctx, storage.LecturePrefix(lecture.ID)); err != nil {
		slog.Warn("delete archived media failed", "lecture_id", id, "error", err)
	}
	return nil
}

// DeliverLecture is the dispatch worker handler: it sends a queued lecture
// to the AI service. A failed handoff fails the job, not the lecture;
// FAILED is reserved for explicit status callbacks.
func (a *App) DeliverLecture(ctx context.Context, job dispatch.Job) error {
	lecture, ok, err := a.store.GetLecture(job.LectureID)
	if err != nil {
		return err
	}
	if !ok || lecture.Status != domain.LectureProcessing {
		return nil
	}
	err = a.ai.Dispatch(ctx, aiclient.DispatchRequest{
		LectureID:     lecture.ID,
		Title:         lecture.Title,
		VideoURL:      lecture.VideoURL,
		SourceType:    string(lecture.SourceType),
		RemainingDays: lecture.RemainingDays,
	})
	if err != nil {
		slog.Error("lecture handoff failed", "lecture_id", lecture.ID, "error", err)
		return err
	}
	return nil
}

func (a *App) enqueueDispatch(ctx context.Context, lecture *domain.Lecture) {
	if a.dispatch != nil {
		if err := a.dispatch.Enqueue(ctx, lecture.ID); err != nil {
			slog.Error("enqueue lecture dispatch failed", "lecture_id", lecture.ID, "error", err)
		}
		return
	}
	// No queue configured: deliver in the background directly.
	go func() {
		deliverCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := a.DeliverLecture(deliverCtx, dispatch.Job{LectureID: lecture.ID}); err != nil {
			slog.Error("direct lecture dispatch failed", "lecture_id", lecture.ID, "error", err)
		}
	}()
}

// ApplyStatusCallback applies a processing state change reported by the AI
// service.
func (a *App) ApplyStatusCallback(cb callback.StatusCallback) error {
	status, ok := domain.ParseLectureStatus(cb.Status)
	if !ok {
		return fmt.Errorf("%w: unknown status %q", callback.ErrInvalidCallback, cb.Status)
	}
	if err := a.store.SetLectureStatus(cb.LectureID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLectureNotFound
		}
		return err
	}
	if status == domain.LectureFailed && cb.Message != "" {
		slog.Warn("lecture processing failed", "lecture_id", cb.LectureID, "reason", cb.Message)
	}
	return nil
}

// ApplyResultCallback stores the finished artifacts, flips the lecture to
// COMPLETED and seeds the welcome chat message.
func (a *App) ApplyResultCallback(cb callback.ResultCallback) error {
	lecture, ok, err := a.store.GetLecture(cb.LectureID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLectureNotFound
	}
	err = a.store.CompleteLecture(lecture.ID, domain.LectureResult{
		Transcript:        cb.Transcript,
		Summary:           cb.Summary,
		ExpectedQuestions: cb.ExpectedQuestions,
		StudyPlan:         cb.StudyPlan,
		TaskID:            cb.TaskID,
	})
	if err != nil {
		return err
	}
	a.seedWelcomeMessage(lecture)
	return nil
}

// seedWelcomeMessage drops a greeting into the lecture's chat so the first
// visit isn't an empty screen. Best effort: completion already succeeded.
func (a *App) seedWelcomeMessage(lecture domain.Lecture) {
	has, err := a.store.HasLectureMessages(lecture.ID)
	if err != nil || has {
		return
	}
	msg := domain.ChatMessage{
		ID:        util.NewID(),
		LectureID: lecture.ID,
		Role:      domain.RoleAssistantMessage,
		Content:   fmt.Sprintf(welcomeMessageFormat, lecture.Title),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendChatMessage(msg); err != nil {
		slog.Warn("seed welcome message failed", "lecture_id", lecture.ID, "error", err)
	}
}

// ApplyEmbeddingCallback records that the lecture is searchable in the
// vector DB.
func (a *App) ApplyEmbeddingCallback(cb callback.EmbeddingCallback) error {
	if err := a.store.SetLectureEmbedding(cb.LectureID, cb.VectorDBID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrLectureNotFound
		}
		return err
	}
	return nil
}

// ApplyStudyPlanCallback stores an asynchronously generated study plan. A
// callback for a lecture that no longer exists is dropped silently; the AI
// service cannot do anything useful with an error.
func (a *App) ApplyStudyPlanCallback(cb callback.StudyPlanCallback) error {
	lecture, ok, err := a.store.GetLecture(cb.LectureID)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("study plan callback for unknown lecture", "lecture_id", cb.LectureID)
		return nil
	}
	owner, ok, err := a.store.GetUserByID(lecture.UserID)
	if err != nil {
		return err
	}
	if !ok || !owner.GodMode {
		slog.Warn("study plan callback for non-entitled user",
			"lecture_id", cb.LectureID, "user_id", lecture.UserID)
		return nil
	}
	if cb.Email != "" && !strings.EqualFold(cb.Email, owner.Email) {
		slog.Warn("study plan callback email does not match lecture owner",
			"lecture_id", cb.LectureID, "email", cb.Email)
		return nil
	}
	_, err = a.store.UpsertStudyPlan(owner.ID, lecture.ID, cb.PlanDetails)
	return err
}

// PullResult fetches a task's state directly from the AI service. Pull
// fallback for when a callback went missing.
func (a *App) PullResult(ctx context.Context, taskID string) (aiclient.Result, error) {
	return a.ai.GetResult(ctx, taskID)
}

func isYoutubeURL(raw string) bool {
	if raw == "" {
		return false
	}
	return strings.Contains(raw, "youtube.com") || strings.Contains(raw, "youtu.be")
}

func titleFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}
