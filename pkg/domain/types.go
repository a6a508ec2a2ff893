package domain

import "time"

type LectureStatus string

const (
	LectureProcessing LectureStatus = "PROCESSING"
	LectureCompleted  LectureStatus = "COMPLETED"
	LectureFailed     LectureStatus = "FAILED"
)

// ParseLectureStatus validates a raw status value against the enum domain.
func ParseLectureStatus(raw string) (LectureStatus, bool) {
	switch LectureStatus(raw) {
	case LectureProcessing, LectureCompleted, LectureFailed:
		return LectureStatus(raw), true
	default:
		return "", false
	}
}

type SourceType string

const (
	SourceYoutube SourceType = "YOUTUBE"
	SourceUpload  SourceType = "UPLOAD"
)

func ParseSourceType(raw string) (SourceType, bool) {
	switch SourceType(raw) {
	case SourceYoutube, SourceUpload:
		return SourceType(raw), true
	default:
		return "", false
	}
}

// UploadPendingLocator is the placeholder written to VideoURL between
// lecture creation and task-id assignment on the upload path.
const UploadPendingLocator = "upload://pending"

type MessageRole string

const (
	RoleUserMessage      MessageRole = "USER"
	RoleAssistantMessage MessageRole = "ASSISTANT"
)

type Tone string

const (
	ToneNormal        Tone = "NORMAL"
	ToneStrictTeacher Tone = "STRICT_TEACHER"
	ToneFriendly      Tone = "FRIENDLY"
	ToneDrillSergeant Tone = "DRILL_SERGEANT"
)

// ToneOption describes a selectable chat persona.
type ToneOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AllTones lists every tone the AI service supports, in display order.
func AllTones() []ToneOption {
	return []ToneOption{
		{Name: string(ToneNormal), Description: "일반"},
		{Name: string(ToneStrictTeacher), Description: "엄격한 선생님"},
		{Name: string(ToneFriendly), Description: "친구"},
		{Name: string(ToneDrillSergeant), Description: "군대 조교"},
	}
}

func ParseTone(raw string) (Tone, bool) {
	switch Tone(raw) {
	case ToneNormal, ToneStrictTeacher, ToneFriendly, ToneDrillSergeant:
		return Tone(raw), true
	default:
		return "", false
	}
}

type PlanStatus string

const (
	PlanPending    PlanStatus = "PENDING"
	PlanInProgress PlanStatus = "IN_PROGRESS"
	PlanCompleted  PlanStatus = "COMPLETED"
)

func ParsePlanStatus(raw string) (PlanStatus, bool) {
	switch PlanStatus(raw) {
	case PlanPending, PlanInProgress, PlanCompleted:
		return PlanStatus(raw), true
	default:
		return "", false
	}
}

const RoleUser = "ROLE_USER"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	GodMode      bool      `json:"isGodMode"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Lecture struct {
	ID                string        `json:"id"`
	UserID            string        `json:"userId"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	SourceType        SourceType    `json:"sourceType"`
	VideoURL          string        `json:"videoUrl,omitempty"`
	StorageKey        string        `json:"-"`
	TaskID            string        `json:"taskId,omitempty"`
	Status            LectureStatus `json:"status"`
	Transcript        string        `json:"transcript,omitempty"`
	Summary           string        `json:"summary,omitempty"`
	ExpectedQuestions string        `json:"expectedQuestions,omitempty"`
	StudyPlan         string        `json:"studyPlan,omitempty"`
	EmbeddingSynced   bool          `json:"embeddingSynced"`
	VectorDBID        string        `json:"vectorDbId,omitempty"`
	RemainingDays     int           `json:"remainingDays,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// LectureResult is the field group written atomically when a lecture
// completes. StudyPlan and TaskID are optional and left untouched when empty.
type LectureResult struct {
	Transcript        string
	Summary           string
	ExpectedQuestions string
	StudyPlan         string
	TaskID            string
}

type ChatMessage struct {
	ID        string      `json:"id"`
	LectureID string      `json:"lectureId"`
	SessionID string      `json:"sessionId,omitempty"`
	UserID    string      `json:"userId,omitempty"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	ParentID  string      `json:"parentId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	LectureID string    `json:"lectureId"`
	Title     string    `json:"title"`
	Tone      Tone      `json:"tone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type StudyPlan struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	LectureID   string     `json:"lectureId"`
	PlanDetails string     `json:"planDetails"`
	Status      PlanStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type StudyRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	LectureID    string    `json:"lectureId"`
	StudyDate    time.Time `json:"studyDate"`
	DurationMins int       `json:"studyDuration"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
