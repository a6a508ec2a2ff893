package store

import (
	"sort"
	"sync"
	"time"

	"godsaeng/internal/util"
	"godsaeng/pkg/domain"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[string]domain.User
	byEmail  map[string]string
	lectures map[string]domain.Lecture
	sessions map[string]domain.ChatSession
	messages []domain.ChatMessage
	plans    map[string]domain.StudyPlan
	records  map[string]domain.StudyRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		byEmail:  make(map[string]string),
		lectures: make(map[string]domain.Lecture),
		sessions: make(map[string]domain.ChatSession),
		plans:    make(map[string]domain.StudyPlan),
		records:  make(map[string]domain.StudyRecord),
	}
}

// users

func (s *MemoryStore) CreateUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, false, nil
	}
	return s.users[id], true, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) SetGodMode(userID string, enabled bool) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	u.GodMode = enabled
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return u, nil
}

// lectures

func (s *MemoryStore) CreateLecture(l domain.Lecture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lectures[l.ID] = l
	return nil
}

func (s *MemoryStore) GetLecture(id string) (domain.Lecture, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lectures[id]
	return l, ok, nil
}

func (s *MemoryStore) ListLecturesByUser(userID string, limit, offset int) ([]domain.Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Lecture
	for _, l := range s.lectures {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (s *MemoryStore) SetLectureStatus(id string, status domain.LectureStatus) error {
	return s.mutateLecture(id, func(l *domain.Lecture) {
		l.Status = status
	})
}

func (s *MemoryStore) SetLectureTaskID(id, taskID string) error {
	return s.mutateLecture(id, func(l *domain.Lecture) {
		l.TaskID = taskID
		l.VideoURL = taskID
	})
}

func (s *MemoryStore) CompleteLecture(id string, result domain.LectureResult) error {
	return s.mutateLecture(id, func(l *domain.Lecture) {
		l.Status = domain.LectureCompleted
		l.Transcript = result.Transcript
		l.Summary = result.Summary
		l.ExpectedQuestions = result.ExpectedQuestions
		if result.StudyPlan != "" {
			l.StudyPlan = result.StudyPlan
		}
		if result.TaskID != "" {
			l.TaskID = result.TaskID
		}
	})
}

func (s *MemoryStore) SetLectureEmbedding(id, vectorDBID string) error {
	return s.mutateLecture(id, func(l *domain.Lecture) {
		l.EmbeddingSynced = true
		l.VectorDBID = vectorDBID
	})
}

func (s *MemoryStore) mutateLecture(id string, fn func(*domain.Lecture)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lectures[id]
	if !ok {
		return ErrNotFound
	}
	fn(&l)
	l.UpdatedAt = time.Now().UTC()
	s.lectures[id] = l
	return nil
}

func (s *MemoryStore) DeleteLecture(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lectures[id]; !ok {
		return ErrNotFound
	}
	delete(s.lectures, id)
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.LectureID != id {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	for sid, cs := range s.sessions {
		if cs.LectureID == id {
			delete(s.sessions, sid)
		}
	}
	for pid, p := range s.plans {
		if p.LectureID == id {
			delete(s.plans, pid)
		}
	}
	for rid, r := range s.records {
		if r.LectureID == id {
			delete(s.records, rid)
		}
	}
	return nil
}

// chat

func (s *MemoryStore) AppendChatMessage(m domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = util.NewID()
	}
	s.messages = append(s.messages, m)
	return nil
}

func (s *MemoryStore) ListLectureMessages(lectureID string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ChatMessage
	for _, m := range s.messages {
		if m.LectureID == lectureID && m.SessionID == "" {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) HasLectureMessages(lectureID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.LectureID == lectureID && m.SessionID == "" {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateChatSession(cs domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cs.ID] = cs
	return nil
}

func (s *MemoryStore) GetChatSession(id string) (domain.ChatSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.sessions[id]
	return cs, ok, nil
}

func (s *MemoryStore) ListChatSessionsByUser(userID string, limit, offset int) ([]domain.ChatSession, error) {
	return s.listSessions(func(cs domain.ChatSession) bool {
		return cs.UserID == userID
	}, limit, offset)
}

func (s *MemoryStore) ListChatSessionsByLecture(userID, lectureID string, limit, offset int) ([]domain.ChatSession, error) {
	return s.listSessions(func(cs domain.ChatSession) bool {
		return cs.UserID == userID && cs.LectureID == lectureID
	}, limit, offset)
}

func (s *MemoryStore) listSessions(match func(domain.ChatSession) bool, limit, offset int) ([]domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ChatSession
	for _, cs := range s.sessions {
		if match(cs) {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return page(out, limit, offset), nil
}

func (s *MemoryStore) ListSessionMessages(sessionID string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ChatMessage
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) TouchChatSession(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	cs.UpdatedAt = at.UTC()
	s.sessions[id] = cs
	return nil
}

func (s *MemoryStore) DeleteChatSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

// study plans

func (s *MemoryStore) CreateStudyPlan(p domain.StudyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
	return nil
}

func (s *MemoryStore) GetStudyPlan(id string) (domain.StudyPlan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	return p, ok, nil
}

func (s *MemoryStore) GetStudyPlanByUserAndLecture(userID, lectureID string) (domain.StudyPlan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.UserID == userID && p.LectureID == lectureID {
			return p, true, nil
		}
	}
	return domain.StudyPlan{}, false, nil
}

func (s *MemoryStore) UpsertStudyPlan(userID, lectureID, planDetails string) (domain.StudyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, p := range s.plans {
		if p.UserID == userID && p.LectureID == lectureID {
			p.PlanDetails = planDetails
			p.Status = domain.PlanPending
			p.UpdatedAt = now
			s.plans[id] = p
			return p, nil
		}
	}
	p := domain.StudyPlan{
		ID:          util.NewID(),
		UserID:      userID,
		LectureID:   lectureID,
		PlanDetails: planDetails,
		Status:      domain.PlanPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.plans[p.ID] = p
	return p, nil
}

func (s *MemoryStore) ListStudyPlansByUser(userID string, limit, offset int) ([]domain.StudyPlan, error) {
	return s.listPlans(func(p domain.StudyPlan) bool {
		return p.UserID == userID
	}, limit, offset)
}

func (s *MemoryStore) ListStudyPlansByLecture(userID, lectureID string, limit, offset int) ([]domain.StudyPlan, error) {
	return s.listPlans(func(p domain.StudyPlan) bool {
		return p.UserID == userID && p.LectureID == lectureID
	}, limit, offset)
}

func (s *MemoryStore) listPlans(match func(domain.StudyPlan) bool, limit, offset int) ([]domain.StudyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StudyPlan
	for _, p := range s.plans {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (s *MemoryStore) UpdateStudyPlan(p domain.StudyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.plans[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.PlanDetails = p.PlanDetails
	cur.Status = p.Status
	cur.UpdatedAt = time.Now().UTC()
	s.plans[p.ID] = cur
	return nil
}

func (s *MemoryStore) DeleteStudyPlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

// study records

func (s *MemoryStore) CreateStudyRecord(r domain.StudyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
	return nil
}

func (s *MemoryStore) GetStudyRecord(id string) (domain.StudyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok, nil
}

func (s *MemoryStore) ListStudyRecordsByUser(userID string, limit, offset int) ([]domain.StudyRecord, error) {
	return s.listRecords(func(r domain.StudyRecord) bool {
		return r.UserID == userID
	}, limit, offset)
}

func (s *MemoryStore) ListStudyRecordsByLecture(userID, lectureID string, limit, offset int) ([]domain.StudyRecord, error) {
	return s.listRecords(func(r domain.StudyRecord) bool {
		return r.UserID == userID && r.LectureID == lectureID
	}, limit, offset)
}

func (s *MemoryStore) listRecords(match func(domain.StudyRecord) bool, limit, offset int) ([]domain.StudyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StudyRecord
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StudyDate.Equal(out[j].StudyDate) {
			return out[i].StudyDate.After(out[j].StudyDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (s *MemoryStore) UpdateStudyRecord(r domain.StudyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[r.ID]
	if !ok {
		return ErrNotFound
	}
	cur.StudyDate = r.StudyDate
	cur.DurationMins = r.DurationMins
	cur.Notes = r.Notes
	cur.UpdatedAt = time.Now().UTC()
	s.records[r.ID] = cur
	return nil
}

func (s *MemoryStore) DeleteStudyRecord(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
