package store

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"godsaeng/internal/util"
	"godsaeng/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&LectureModel{},
		&ChatSessionModel{},
		&ChatMessageModel{},
		&StudyPlanModel{},
		&StudyRecordModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// users

func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Create(&model).Error
}

func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) SetGodMode(userID string, enabled bool) (domain.User, error) {
	res := s.db.Model(&UserModel{}).Where("id = ?", userID).Updates(map[string]any{
		"god_mode":   enabled,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return domain.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.User{}, ErrNotFound
	}
	user, _, err := s.GetUserByID(userID)
	return user, err
}

// lectures

func (s *GormStore) CreateLecture(l domain.Lecture) error {
	model := lectureToModel(l)
	return s.db.Create(&model).Error
}

func (s *GormStore) GetLecture(id string) (domain.Lecture, bool, error) {
	var model LectureModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Lecture{}, false, nil
		}
		return domain.Lecture{}, false, err
	}
	return lectureFromModel(model), true, nil
}

func (s *GormStore) ListLecturesByUser(userID string, limit, offset int) ([]domain.Lecture, error) {
	var models []LectureModel
	q := s.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Lecture, 0, len(models))
	for _, m := range models {
		out = append(out, lectureFromModel(m))
	}
	return out, nil
}

func (s *GormStore) SetLectureStatus(id string, status domain.LectureStatus) error {
	return s.updateLecture(id, map[string]any{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	})
}

// SetLectureTaskID records the external task id once the AI service has
// assigned one. The source locator is replaced by the task id as well,
// matching how the upload path tracks its media after handoff.
func (s *GormStore) SetLectureTaskID(id, taskID string) error {
	return s.updateLecture(id, map[string]any{
		"task_id":    taskID,
		"video_url":  taskID,
		"updated_at": time.Now().UTC(),
	})
}

// CompleteLecture writes the result field group and forces COMPLETED in a
// single statement so readers never observe a partial result.
func (s *GormStore) CompleteLecture(id string, result domain.LectureResult) error {
	updates := map[string]any{
		"status":             string(domain.LectureCompleted),
		"transcript":         result.Transcript,
		"summary":            result.Summary,
		"expected_questions": result.ExpectedQuestions,
		"updated_at":         time.Now().UTC(),
	}
	if result.StudyPlan != "" {
		updates["study_plan"] = result.StudyPlan
	}
	if result.TaskID != "" {
		updates["task_id"] = result.TaskID
	}
	return s.updateLecture(id, updates)
}

func (s *GormStore) SetLectureEmbedding(id, vectorDBID string) error {
	return s.updateLecture(id, map[string]any{
		"embedding_synced": true,
		"vector_db_id":     vectorDBID,
		"updated_at":       time.Now().UTC(),
	})
}

func (s *GormStore) updateLecture(id string, updates map[string]any) error {
	res := s.db.Model(&LectureModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLecture removes a lecture and everything hanging off it in one
// transaction.
func (s *GormStore) DeleteLecture(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lecture_id = ?", id).Delete(&ChatMessageModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lecture_id = ?", id).Delete(&ChatSessionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lecture_id = ?", id).Delete(&StudyPlanModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lecture_id = ?", id).Delete(&StudyRecordModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&LectureModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// chat

func (s *GormStore) AppendChatMessage(m domain.ChatMessage) error {
	model := chatMessageToModel(m)
	return s.db.Create(&model).Error
}

func (s *GormStore) ListLectureMessages(lectureID string) ([]domain.ChatMessage, error) {
	var models []ChatMessageModel
	err := s.db.Where("lecture_id = ? AND session_id = ''", lectureID).
		Order("created_at ASC, id ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	return chatMessagesFromModels(models), nil
}

func (s *GormStore) HasLectureMessages(lectureID string) (bool, error) {
	var count int64
	err := s.db.Model(&ChatMessageModel{}).
		Where("lecture_id = ? AND session_id = ''", lectureID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) CreateChatSession(cs domain.ChatSession) error {
	model := chatSessionToModel(cs)
	return s.db.Create(&model).Error
}

func (s *GormStore) GetChatSession(id string) (domain.ChatSession, bool, error) {
	var model ChatSessionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatSession{}, false, nil
		}
		return domain.ChatSession{}, false, err
	}
	return chatSessionFromModel(model), true, nil
}

func (s *GormStore) ListChatSessionsByUser(userID string, limit, offset int) ([]domain.ChatSession, error) {
	return s.listSessions(s.db.Where("user_id = ?", userID), limit, offset)
}

func (s *GormStore) ListChatSessionsByLecture(userID, lectureID string, limit, offset int) ([]domain.ChatSession, error) {
	return s.listSessions(s.db.Where("user_id = ? AND lecture_id = ?", userID, lectureID), limit, offset)
}

func (s *GormStore) listSessions(q *gorm.DB, limit, offset int) ([]domain.ChatSession, error) {
	var models []ChatSessionModel
	q = q.Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ChatSession, 0, len(models))
	for _, m := range models {
		out = append(out, chatSessionFromModel(m))
	}
	return out, nil
}

func (s *GormStore) ListSessionMessages(sessionID string) ([]domain.ChatMessage, error) {
	var models []ChatMessageModel
	err := s.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	return chatMessagesFromModels(models), nil
}

func (s *GormStore) TouchChatSession(id string, at time.Time) error {
	res := s.db.Model(&ChatSessionModel{}).Where("id = ?", id).Update("updated_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteChatSession(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&ChatMessageModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&ChatSessionModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// study plans

func (s *GormStore) CreateStudyPlan(p domain.StudyPlan) error {
	model := studyPlanToModel(p)
	return s.db.Create(&model).Error
}

func (s *GormStore) GetStudyPlan(id string) (domain.StudyPlan, bool, error) {
	var model StudyPlanModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StudyPlan{}, false, nil
		}
		return domain.StudyPlan{}, false, err
	}
	return studyPlanFromModel(model), true, nil
}

func (s *GormStore) GetStudyPlanByUserAndLecture(userID, lectureID string) (domain.StudyPlan, bool, error) {
	var model StudyPlanModel
	err := s.db.Where("user_id = ? AND lecture_id = ?", userID, lectureID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StudyPlan{}, false, nil
		}
		return domain.StudyPlan{}, false, err
	}
	return studyPlanFromModel(model), true, nil
}

// UpsertStudyPlan creates or overwrites the plan for (user, lecture).
// The overwrite path resets status to PENDING since the plan content was
// replaced by a fresh recommendation.
func (s *GormStore) UpsertStudyPlan(userID, lectureID, planDetails string) (domain.StudyPlan, error) {
	now := time.Now().UTC()
	model := StudyPlanModel{
		ID:          util.NewID(),
		UserID:      userID,
		LectureID:   lectureID,
		PlanDetails: planDetails,
		Status:      string(domain.PlanPending),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lecture_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_details", "status", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return domain.StudyPlan{}, err
	}
	plan, _, err := s.GetStudyPlanByUserAndLecture(userID, lectureID)
	return plan, err
}

func (s *GormStore) ListStudyPlansByUser(userID string, limit, offset int) ([]domain.StudyPlan, error) {
	return s.listPlans(s.db.Where("user_id = ?", userID), limit, offset)
}

func (s *GormStore) ListStudyPlansByLecture(userID, lectureID string, limit, offset int) ([]domain.StudyPlan, error) {
	return s.listPlans(s.db.Where("user_id = ? AND lecture_id = ?", userID, lectureID), limit, offset)
}

func (s *GormStore) listPlans(q *gorm.DB, limit, offset int) ([]domain.StudyPlan, error) {
	var models []StudyPlanModel
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.StudyPlan, 0, len(models))
	for _, m := range models {
		out = append(out, studyPlanFromModel(m))
	}
	return out, nil
}

func (s *GormStore) UpdateStudyPlan(p domain.StudyPlan) error {
	res := s.db.Model(&StudyPlanModel{}).Where("id = ?", p.ID).Updates(map[string]any{
		"plan_details": p.PlanDetails,
		"status":       string(p.Status),
		"updated_at":   time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteStudyPlan(id string) error {
	res := s.db.Delete(&StudyPlanModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// study records

func (s *GormStore) CreateStudyRecord(r domain.StudyRecord) error {
	model := studyRecordToModel(r)
	return s.db.Create(&model).Error
}

func (s *GormStore) GetStudyRecord(id string) (domain.StudyRecord, bool, error) {
	var model StudyRecordModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StudyRecord{}, false, nil
		}
		return domain.StudyRecord{}, false, err
	}
	return studyRecordFromModel(model), true, nil
}

func (s *GormStore) ListStudyRecordsByUser(userID string, limit, offset int) ([]domain.StudyRecord, error) {
	return s.listRecords(s.db.Where("user_id = ?", userID), limit, offset)
}

func (s *GormStore) ListStudyRecordsByLecture(userID, lectureID string, limit, offset int) ([]domain.StudyRecord, error) {
	return s.listRecords(s.db.Where("user_id = ? AND lecture_id = ?", userID, lectureID), limit, offset)
}

func (s *GormStore) listRecords(q *gorm.DB, limit, offset int) ([]domain.StudyRecord, error) {
	var models []StudyRecordModel
	q = q.Order("study_date DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.StudyRecord, 0, len(models))
	for _, m := range models {
		out = append(out, studyRecordFromModel(m))
	}
	return out, nil
}

func (s *GormStore) UpdateStudyRecord(r domain.StudyRecord) error {
	res := s.db.Model(&StudyRecordModel{}).Where("id = ?", r.ID).Updates(map[string]any{
		"study_date":    datatypes.Date(r.StudyDate),
		"duration_mins": r.DurationMins,
		"notes":         r.Notes,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteStudyRecord(id string) error {
	res := s.db.Delete(&StudyRecordModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// model conversions

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Username:     u.Username,
		Role:         u.Role,
		GodMode:      u.GodMode,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Username:     m.Username,
		Role:         m.Role,
		GodMode:      m.GodMode,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func lectureToModel(l domain.Lecture) LectureModel {
	return LectureModel{
		ID:                l.ID,
		UserID:            l.UserID,
		Title:             l.Title,
		Description:       l.Description,
		SourceType:        string(l.SourceType),
		VideoURL:          l.VideoURL,
		StorageKey:        l.StorageKey,
		TaskID:            l.TaskID,
		Status:            string(l.Status),
		Transcript:        l.Transcript,
		Summary:           l.Summary,
		ExpectedQuestions: l.ExpectedQuestions,
		StudyPlan:         l.StudyPlan,
		EmbeddingSynced:   l.EmbeddingSynced,
		VectorDBID:        l.VectorDBID,
		RemainingDays:     l.RemainingDays,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func lectureFromModel(m LectureModel) domain.Lecture {
	return domain.Lecture{
		ID:                m.ID,
		UserID:            m.UserID,
		Title:             m.Title,
		Description:       m.Description,
		SourceType:        domain.SourceType(m.SourceType),
		VideoURL:          m.VideoURL,
		StorageKey:        m.StorageKey,
		TaskID:            m.TaskID,
		Status:            domain.LectureStatus(m.Status),
		Transcript:        m.Transcript,
		Summary:           m.Summary,
		ExpectedQuestions: m.ExpectedQuestions,
		StudyPlan:         m.StudyPlan,
		EmbeddingSynced:   m.EmbeddingSynced,
		VectorDBID:        m.VectorDBID,
		RemainingDays:     m.RemainingDays,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func chatMessageToModel(m domain.ChatMessage) ChatMessageModel {
	return ChatMessageModel{
		ID:        m.ID,
		LectureID: m.LectureID,
		SessionID: m.SessionID,
		UserID:    m.UserID,
		Role:      string(m.Role),
		Content:   m.Content,
		ParentID:  m.ParentID,
		CreatedAt: m.CreatedAt,
	}
}

func chatMessagesFromModels(models []ChatMessageModel) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		out = append(out, domain.ChatMessage{
			ID:        m.ID,
			LectureID: m.LectureID,
			SessionID: m.SessionID,
			UserID:    m.UserID,
			Role:      domain.MessageRole(m.Role),
			Content:   m.Content,
			ParentID:  m.ParentID,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

func chatSessionToModel(cs domain.ChatSession) ChatSessionModel {
	return ChatSessionModel{
		ID:        cs.ID,
		UserID:    cs.UserID,
		LectureID: cs.LectureID,
		Title:     cs.Title,
		Tone:      string(cs.Tone),
		CreatedAt: cs.CreatedAt,
		UpdatedAt: cs.UpdatedAt,
	}
}

func chatSessionFromModel(m ChatSessionModel) domain.ChatSession {
	return domain.ChatSession{
		ID:        m.ID,
		UserID:    m.UserID,
		LectureID: m.LectureID,
		Title:     m.Title,
		Tone:      domain.Tone(m.Tone),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func studyPlanToModel(p domain.StudyPlan) StudyPlanModel {
	return StudyPlanModel{
		ID:          p.ID,
		UserID:      p.UserID,
		LectureID:   p.LectureID,
		PlanDetails: p.PlanDetails,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func studyPlanFromModel(m StudyPlanModel) domain.StudyPlan {
	return domain.StudyPlan{
		ID:          m.ID,
		UserID:      m.UserID,
		LectureID:   m.LectureID,
		PlanDetails: m.PlanDetails,
		Status:      domain.PlanStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func studyRecordToModel(r domain.StudyRecord) StudyRecordModel {
	return StudyRecordModel{
		ID:           r.ID,
		UserID:       r.UserID,
		LectureID:    r.LectureID,
		StudyDate:    datatypes.Date(r.StudyDate),
		DurationMins: r.DurationMins,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func studyRecordFromModel(m StudyRecordModel) domain.StudyRecord {
	return domain.StudyRecord{
		ID:           m.ID,
		UserID:       m.UserID,
		LectureID:    m.LectureID,
		StudyDate:    time.Time(m.StudyDate),
		DurationMins: m.DurationMins,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
