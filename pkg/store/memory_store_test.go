package store

import (
	"testing"
	"time"

	"godsaeng/pkg/domain"
)

var _ Store = (*MemoryStore)(nil)
var _ Store = (*GormStore)(nil)

func newLecture(id, userID string) domain.Lecture {
	now := time.Now().UTC()
	return domain.Lecture{
		ID:         id,
		UserID:     userID,
		Title:      "운영체제 3강",
		SourceType: domain.SourceYoutube,
		VideoURL:   "https://youtube.com/watch?v=abc",
		Status:     domain.LectureProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestMemoryStoreCompleteLecture(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateLecture(newLecture("lec1", "u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.CompleteLecture("lec1", domain.LectureResult{
		Transcript:        "full text",
		Summary:           "short text",
		ExpectedQuestions: "q1\nq2",
		StudyPlan:         "day 1: review",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	l, ok, err := s.GetLecture("lec1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if l.Status != domain.LectureCompleted {
		t.Fatalf("status = %q, want COMPLETED", l.Status)
	}
	if l.Transcript != "full text" || l.Summary != "short text" {
		t.Fatalf("result fields not written: %+v", l)
	}
	if l.StudyPlan != "day 1: review" {
		t.Fatalf("study plan = %q", l.StudyPlan)
	}

	if err := s.CompleteLecture("missing", domain.LectureResult{}); err != ErrNotFound {
		t.Fatalf("complete missing = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCompleteLectureKeepsExistingPlan(t *testing.T) {
	s := NewMemoryStore()
	lec := newLecture("lec1", "u1")
	lec.StudyPlan = "existing plan"
	if err := s.CreateLecture(lec); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.CompleteLecture("lec1", domain.LectureResult{Transcript: "t"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	l, _, _ := s.GetLecture("lec1")
	if l.StudyPlan != "existing plan" {
		t.Fatalf("empty result plan overwrote existing: %q", l.StudyPlan)
	}
}

func TestMemoryStoreSetLectureTaskID(t *testing.T) {
	s := NewMemoryStore()
	lec := newLecture("lec1", "u1")
	lec.SourceType = domain.SourceUpload
	lec.VideoURL = domain.UploadPendingLocator
	if err := s.CreateLecture(lec); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.SetLectureTaskID("lec1", "task-42"); err != nil {
		t.Fatalf("set task id: %v", err)
	}
	l, _, _ := s.GetLecture("lec1")
	if l.TaskID != "task-42" || l.VideoURL != "task-42" {
		t.Fatalf("task id not applied: taskID=%q videoURL=%q", l.TaskID, l.VideoURL)
	}
}

func TestMemoryStoreDeleteLectureCascades(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateLecture(newLecture("lec1", "u1")); err != nil {
		t.Fatalf("create lecture: %v", err)
	}
	now := time.Now().UTC()
	if err := s.CreateChatSession(domain.ChatSession{ID: "sess1", UserID: "u1", LectureID: "lec1", Tone: domain.ToneNormal, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := s.AppendChatMessage(domain.ChatMessage{ID: "m1", LectureID: "lec1", SessionID: "sess1", Role: domain.RoleUserMessage, Content: "hi", CreatedAt: now}); err != nil {
		t.Fatalf("append message: %v", err)
	}
	if err := s.CreateStudyPlan(domain.StudyPlan{ID: "p1", UserID: "u1", LectureID: "lec1", PlanDetails: "x", Status: domain.PlanPending}); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if err := s.CreateStudyRecord(domain.StudyRecord{ID: "r1", UserID: "u1", LectureID: "lec1", StudyDate: now, DurationMins: 30}); err != nil {
		t.Fatalf("create record: %v", err)
	}

	if err := s.DeleteLecture("lec1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, ok, _ := s.GetLecture("lec1"); ok {
		t.Fatal("lecture still present")
	}
	if _, ok, _ := s.GetChatSession("sess1"); ok {
		t.Fatal("session survived cascade")
	}
	msgs, _ := s.ListSessionMessages("sess1")
	if len(msgs) != 0 {
		t.Fatalf("messages survived cascade: %d", len(msgs))
	}
	if _, ok, _ := s.GetStudyPlan("p1"); ok {
		t.Fatal("plan survived cascade")
	}
	if _, ok, _ := s.GetStudyRecord("r1"); ok {
		t.Fatal("record survived cascade")
	}
}

func TestMemoryStoreUpsertStudyPlan(t *testing.T) {
	s := NewMemoryStore()

	first, err := s.UpsertStudyPlan("u1", "lec1", "plan v1")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.Status != domain.PlanPending {
		t.Fatalf("status = %q, want PENDING", first.Status)
	}

	if err := s.UpdateStudyPlan(domain.StudyPlan{ID: first.ID, PlanDetails: "plan v1", Status: domain.PlanCompleted}); err != nil {
		t.Fatalf("update: %v", err)
	}

	second, err := s.UpsertStudyPlan("u1", "lec1", "plan v2")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %q vs %q", second.ID, first.ID)
	}
	if second.PlanDetails != "plan v2" {
		t.Fatalf("details = %q", second.PlanDetails)
	}
	if second.Status != domain.PlanPending {
		t.Fatalf("status after overwrite = %q, want PENDING", second.Status)
	}
}

func TestMemoryStoreListLecturesPaging(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		lec := newLecture(string(rune('a'+i)), "u1")
		lec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateLecture(lec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.ListLecturesByUser("u1", 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest first, so offset 1 skips the most recent.
	if got[0].ID != "d" || got[1].ID != "c" {
		t.Fatalf("order = %q %q", got[0].ID, got[1].ID)
	}

	if out, _ := s.ListLecturesByUser("u1", 10, 99); len(out) != 0 {
		t.Fatalf("offset past end returned %d rows", len(out))
	}
}

func TestMemoryStoreLectureMessagesScopedBySession(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	if err := s.AppendChatMessage(domain.ChatMessage{ID: "m1", LectureID: "lec1", Role: domain.RoleUserMessage, Content: "직접 질문", CreatedAt: now}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendChatMessage(domain.ChatMessage{ID: "m2", LectureID: "lec1", SessionID: "sess1", Role: domain.RoleUserMessage, Content: "세션 질문", CreatedAt: now}); err != nil {
		t.Fatalf("append: %v", err)
	}

	direct, err := s.ListLectureMessages("lec1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(direct) != 1 || direct[0].ID != "m1" {
		t.Fatalf("lecture-scoped listing leaked session messages: %+v", direct)
	}

	ok, err := s.HasLectureMessages("lec1")
	if err != nil || !ok {
		t.Fatalf("has messages: ok=%v err=%v", ok, err)
	}
	ok, err = s.HasLectureMessages("lec2")
	if err != nil || ok {
		t.Fatalf("has messages for empty lecture: ok=%v err=%v", ok, err)
	}
}
