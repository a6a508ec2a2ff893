package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Username     string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	GodMode      bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type LectureModel struct {
	ID                string `gorm:"primaryKey"`
	UserID            string `gorm:"not null;index"`
	Title             string `gorm:"not null"`
	Description       string `gorm:"type:text"`
	SourceType        string `gorm:"not null"`
	VideoURL          string
	StorageKey        string
	TaskID            string `gorm:"index"`
	Status            string `gorm:"not null"`
	Transcript        string `gorm:"type:text"`
	Summary           string `gorm:"type:text"`
	ExpectedQuestions string `gorm:"type:text"`
	StudyPlan         string `gorm:"type:text"`
	EmbeddingSynced   bool   `gorm:"not null;default:false"`
	VectorDBID        string
	RemainingDays     int
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

type ChatSessionModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	LectureID string `gorm:"not null;index"`
	Title     string
	Tone      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID        string `gorm:"primaryKey"`
	LectureID string `gorm:"not null;index"`
	SessionID string `gorm:"index"`
	UserID    string
	Role      string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	ParentID  string
	CreatedAt time.Time `gorm:"not null;index"`
}

type StudyPlanModel struct {
	ID          string    `gorm:"primaryKey"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_study_plans_user_lecture"`
	LectureID   string    `gorm:"not null;uniqueIndex:idx_study_plans_user_lecture"`
	PlanDetails string    `gorm:"type:text;not null"`
	Status      string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type StudyRecordModel struct {
	ID           string `gorm:"not null;primaryKey"`
	UserID       string `gorm:"not null;index"`
	LectureID    string `gorm:"not null;index"`
	StudyDate    datatypes.Date
	DurationMins int
	Notes        string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
