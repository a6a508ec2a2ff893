// Package callback decodes notifications posted by the AI service. The
// service has shipped several generations of payloads with different field
// names, so every field is resolved through an alias list instead of a
// fixed struct tag.
package callback

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCallback means a required field was absent under every known
// alias, or the payload was not a JSON object.
var ErrInvalidCallback = errors.New("invalid callback payload")

var (
	lectureIDAliases  = []string{"lecture_id", "lectureId"}
	statusAliases     = []string{"status"}
	transcriptAliases = []string{"transcript", "transcribed_text"}
	summaryAliases    = []string{"summary", "summary_text"}
	questionsAliases  = []string{"expected_questions", "quiz_text"}
	studyPlanAliases  = []string{"study_plan", "plan_details"}
	taskIDAliases     = []string{"task_id", "taskId", "file_url"}
	vectorDBIDAliases = []string{"vector_db_id", "vectorDbId"}
	emailAliases      = []string{"email", "user_email"}
	messageAliases    = []string{"message", "error", "detail"}
)

// StatusCallback reports a processing state change, typically a failure.
type StatusCallback struct {
	LectureID string
	Status    string
	Message   string
}

// ResultCallback delivers the finished transcription artifacts.
type ResultCallback struct {
	LectureID         string
	TaskID            string
	Transcript        string
	Summary           string
	ExpectedQuestions string
	StudyPlan         string
}

// EmbeddingCallback reports that the lecture was indexed in the vector DB.
type EmbeddingCallback struct {
	LectureID  string
	VectorDBID string
}

// StudyPlanCallback delivers an asynchronously generated study plan. Email
// identifies the user the plan was generated for and is checked against the
// lecture owner before the plan is stored.
type StudyPlanCallback struct {
	Email       string
	LectureID   string
	PlanDetails string
}

// ParseStatus decodes a status callback. Lecture id and status are required.
func ParseStatus(body []byte) (StatusCallback, error) {
	fields, err := decode(body)
	if err != nil {
		return StatusCallback{}, err
	}
	lectureID, ok := fields.str(lectureIDAliases)
	if !ok {
		return StatusCallback{}, fmt.Errorf("%w: missing lecture id", ErrInvalidCallback)
	}
	status, ok := fields.str(statusAliases)
	if !ok || status == "" {
		return StatusCallback{}, fmt.Errorf("%w: missing status", ErrInvalidCallback)
	}
	message, _ := fields.str(messageAliases)
	return StatusCallback{
		LectureID: lectureID,
		Status:    strings.ToUpper(status),
		Message:   message,
	}, nil
}

// ParseResult decodes a completion callback. The lecture id and at least one
// artifact field must be present; individual artifacts may be empty.
func ParseResult(body []byte) (ResultCallback, error) {
	fields, err := decode(body)
	if err != nil {
		return ResultCallback{}, err
	}
	lectureID, ok := fields.str(lectureIDAliases)
	if !ok {
		return ResultCallback{}, fmt.Errorf("%w: missing lecture id", ErrInvalidCallback)
	}
	transcript, hasTranscript := fields.str(transcriptAliases)
	summary, hasSummary := fields.str(summaryAliases)
	questions, hasQuestions := fields.str(questionsAliases)
	plan, _ := fields.str(studyPlanAliases)
	taskID, _ := fields.str(taskIDAliases)
	if !hasTranscript && !hasSummary && !hasQuestions {
		return ResultCallback{}, fmt.Errorf("%w: no result fields", ErrInvalidCallback)
	}
	return ResultCallback{
		LectureID:         lectureID,
		TaskID:            taskID,
		Transcript:        transcript,
		Summary:           summary,
		ExpectedQuestions: questions,
		StudyPlan:         plan,
	}, nil
}

// ParseEmbedding decodes a vector-DB sync callback.
func ParseEmbedding(body []byte) (EmbeddingCallback, error) {
	fields, err := decode(body)
	if err != nil {
		return EmbeddingCallback{}, err
	}
	lectureID, ok := fields.str(lectureIDAliases)
	if !ok {
		return EmbeddingCallback{}, fmt.Errorf("%w: missing lecture id", ErrInvalidCallback)
	}
	vectorDBID, ok := fields.str(vectorDBIDAliases)
	if !ok || vectorDBID == "" {
		return EmbeddingCallback{}, fmt.Errorf("%w: missing vector db id", ErrInvalidCallback)
	}
	return EmbeddingCallback{LectureID: lectureID, VectorDBID: vectorDBID}, nil
}

// ParseStudyPlan decodes an async study-plan callback.
func ParseStudyPlan(body []byte) (StudyPlanCallback, error) {
	fields, err := decode(body)
	if err != nil {
		return StudyPlanCallback{}, err
	}
	lectureID, ok := fields.str(lectureIDAliases)
	if !ok {
		return StudyPlanCallback{}, fmt.Errorf("%w: missing lecture id", ErrInvalidCallback)
	}
	plan, ok := fields.str(studyPlanAliases)
	if !ok || plan == "" {
		return StudyPlanCallback{}, fmt.Errorf("%w: missing study plan", ErrInvalidCallback)
	}
	email, _ := fields.str(emailAliases)
	return StudyPlanCallback{Email: email, LectureID: lectureID, PlanDetails: plan}, nil
}

type fieldSet map[string]json.RawMessage

func decode(body []byte) (fieldSet, error) {
	var fields fieldSet
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidCallback)
	}
	return fields, nil
}

// str resolves the first alias that carries a usable value. JSON strings are
// taken verbatim; numbers are formatted back to decimal, which covers the
// payload generation that sent lecture ids as integers.
func (f fieldSet) str(aliases []string) (string, bool) {
	for _, name := range aliases {
		raw, ok := f[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String(), true
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return strconv.FormatBool(b), true
		}
	}
	return "", false
}
