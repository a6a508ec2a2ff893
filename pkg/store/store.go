package store

import (
	"errors"
	"time"

	"godsaeng/pkg/domain"
)

// ErrNotFound is returned by mutations that target a missing row.
var ErrNotFound = errors.New("record not found")

// Store defines persistence operations for users, lectures, chat, and
// study data. Every mutation runs in its own transaction; concurrent
// callbacks for the same lecture are serialized only by row-level
// isolation (last write wins per field group).
type Store interface {
	// users
	CreateUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	SetGodMode(userID string, enabled bool) (domain.User, error)

	// lectures
	CreateLecture(domain.Lecture) error
	GetLecture(id string) (domain.Lecture, bool, error)
	ListLecturesByUser(userID string, limit, offset int) ([]domain.Lecture, error)
	SetLectureStatus(id string, status domain.LectureStatus) error
	SetLectureTaskID(id, taskID string) error
	CompleteLecture(id string, result domain.LectureResult) error
	SetLectureEmbedding(id, vectorDBID string) error
	DeleteLecture(id string) error

	// lecture-scoped chat
	AppendChatMessage(domain.ChatMessage) error
	ListLectureMessages(lectureID string) ([]domain.ChatMessage, error)
	HasLectureMessages(lectureID string) (bool, error)

	// session-scoped chat
	CreateChatSession(domain.ChatSession) error
	GetChatSession(id string) (domain.ChatSession, bool, error)
	ListChatSessionsByUser(userID string, limit, offset int) ([]domain.ChatSession, error)
	ListChatSessionsByLecture(userID, lectureID string, limit, offset int) ([]domain.ChatSession, error)
	ListSessionMessages(sessionID string) ([]domain.ChatMessage, error)
	TouchChatSession(id string, at time.Time) error
	DeleteChatSession(id string) error

	// study plans
	CreateStudyPlan(domain.StudyPlan) error
	GetStudyPlan(id string) (domain.StudyPlan, bool, error)
	GetStudyPlanByUserAndLecture(userID, lectureID string) (domain.StudyPlan, bool, error)
	UpsertStudyPlan(userID, lectureID, planDetails string) (domain.StudyPlan, error)
	ListStudyPlansByUser(userID string, limit, offset int) ([]domain.StudyPlan, error)
	ListStudyPlansByLecture(userID, lectureID string, limit, offset int) ([]domain.StudyPlan, error)
	UpdateStudyPlan(domain.StudyPlan) error
	DeleteStudyPlan(id string) error

	// study records
	CreateStudyRecord(domain.StudyRecord) error
	GetStudyRecord(id string) (domain.StudyRecord, bool, error)
	ListStudyRecordsByUser(userID string, limit, offset int) ([]domain.StudyRecord, error)
	ListStudyRecordsByLecture(userID, lectureID string, limit, offset int) ([]domain.StudyRecord, error)
	UpdateStudyRecord(domain.StudyRecord) error
	DeleteStudyRecord(id string) error
}
