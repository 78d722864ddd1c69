package service

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stemsi/exstem-adaptive/internal/repository"
)

type masteryKey struct {
	testTaker int
	skill     uuid.UUID
}

type memState struct {
	assessments map[uuid.UUID]model.Assessment
	questions   map[uuid.UUID]model.Question
	pools       map[uuid.UUID][]uuid.UUID
	sessions    map[uuid.UUID]model.AssessmentSession
	responses   []model.Response
	mastery     map[masteryKey]model.SkillMastery
}

func (s memState) clone() memState {
	return memState{
		assessments: maps.Clone(s.assessments),
		questions:   maps.Clone(s.questions),
		pools:       maps.Clone(s.pools),
		sessions:    maps.Clone(s.sessions),
		responses:   slices.Clone(s.responses),
		mastery:     maps.Clone(s.mastery),
	}
}

// memDB is an in-memory UnitOfWork. Do serializes transactions, which
// stands in for the session row lock, and restores a snapshot on error.
type memDB struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state memState

	failResponseCreate error
	failLock           error
}

func newMemDB() *memDB {
	return &memDB{state: memState{
		assessments: map[uuid.UUID]model.Assessment{},
		questions:   map[uuid.UUID]model.Question{},
		pools:       map[uuid.UUID][]uuid.UUID{},
		sessions:    map[uuid.UUID]model.AssessmentSession{},
		mastery:     map[masteryKey]model.SkillMastery{},
	}}
}

func (db *memDB) Stores() Stores {
	return Stores{
		Assessments: memAssessments{db},
		Questions:   memQuestions{db},
		Sessions:    memSessions{db},
		Responses:   memResponses{db},
		Mastery:     memMastery{db},
	}
}

func (db *memDB) Do(ctx context.Context, fn func(tx Stores) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.state.clone()
	db.mu.Unlock()

	if err := fn(db.Stores()); err != nil {
		db.mu.Lock()
		db.state = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

// ListByAssessment lets memDB back a QuestionBankService.
func (db *memDB) ListByAssessment(_ context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.Question
	for _, id := range db.state.pools[assessmentID] {
		out = append(out, db.state.questions[id])
	}
	return out, nil
}

func (db *memDB) ListAdaptiveIDs(context.Context) ([]uuid.UUID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var ids []uuid.UUID
	for id, a := range db.state.assessments {
		if a.IsAdaptive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (db *memDB) addAssessment(questions ...model.Question) uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := uuid.New()
	db.state.assessments[id] = model.Assessment{ID: id, Name: "algebra", IsAdaptive: true}
	for _, q := range questions {
		db.state.questions[q.ID] = q
		db.state.pools[id] = append(db.state.pools[id], q.ID)
	}
	return id
}

func (db *memDB) responseCount(sessionID uuid.UUID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, r := range db.state.responses {
		if r.SessionID == sessionID {
			n++
		}
	}
	return n
}

func (db *memDB) session(id uuid.UUID) model.AssessmentSession {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.sessions[id]
}

func (db *memDB) masteryOf(testTaker int, skill uuid.UUID) (model.SkillMastery, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.state.mastery[masteryKey{testTaker, skill}]
	return m, ok
}

type memAssessments struct{ db *memDB }

func (s memAssessments) GetByID(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.state.assessments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

type memQuestions struct{ db *memDB }

func (s memQuestions) FindByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q, ok := s.db.state.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (s memQuestions) InAssessment(_ context.Context, assessmentID, questionID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return slices.Contains(s.db.state.pools[assessmentID], questionID), nil
}

type memSessions struct{ db *memDB }

func (s memSessions) GetByID(_ context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sess, ok := s.db.state.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

func (s memSessions) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.AssessmentSession, error) {
	if s.db.failLock != nil {
		return nil, s.db.failLock
	}
	return s.GetByID(ctx, id)
}

func (s memSessions) FindActive(_ context.Context, testTakerID int, assessmentID uuid.UUID) (*model.AssessmentSession, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, sess := range s.db.state.sessions {
		if sess.TestTakerID == testTakerID && sess.AssessmentID == assessmentID && !sess.IsCompleted {
			return &sess, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memSessions) Create(_ context.Context, sess *model.AssessmentSession) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.state.sessions {
		if existing.TestTakerID == sess.TestTakerID && existing.AssessmentID == sess.AssessmentID && !existing.IsCompleted {
			return repository.ErrNotFound
		}
	}
	sess.ID = uuid.New()
	sess.StartTime = time.Now()
	s.db.state.sessions[sess.ID] = *sess
	return nil
}

func (s memSessions) UpdateTheta(_ context.Context, id uuid.UUID, theta float64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sess, ok := s.db.state.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sess.CurrentTheta = theta
	s.db.state.sessions[id] = sess
	return nil
}

func (s memSessions) Complete(_ context.Context, id uuid.UUID, endTime time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sess, ok := s.db.state.sessions[id]
	if !ok || sess.IsCompleted {
		return repository.ErrNotFound
	}
	sess.IsCompleted = true
	sess.EndTime = &endTime
	s.db.state.sessions[id] = sess
	return nil
}

type memResponses struct{ db *memDB }

func (s memResponses) Create(_ context.Context, r *model.Response) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failResponseCreate != nil {
		return s.db.failResponseCreate
	}
	for _, existing := range s.db.state.responses {
		if existing.SessionID == r.SessionID && existing.QuestionID == r.QuestionID {
			return repository.ErrDuplicate
		}
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	s.db.state.responses = append(s.db.state.responses, *r)
	return nil
}

func (s memResponses) ListForSession(_ context.Context, sessionID uuid.UUID) ([]model.ScoredResponse, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.ScoredResponse
	for _, r := range s.db.state.responses {
		if r.SessionID != sessionID {
			continue
		}
		q := s.db.state.questions[r.QuestionID]
		out = append(out, model.ScoredResponse{
			Response:       r,
			SkillID:        q.SkillID,
			Difficulty:     q.Difficulty,
			Discrimination: q.Discrimination,
		})
	}
	return out, nil
}

type memMastery struct{ db *memDB }

func (s memMastery) Get(_ context.Context, testTakerID int, skillID uuid.UUID) (*model.SkillMastery, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m, ok := s.db.state.mastery[masteryKey{testTakerID, skillID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s memMastery) Upsert(_ context.Context, m *model.SkillMastery) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	m.UpdatedAt = time.Now()
	s.db.state.mastery[masteryKey{m.TestTakerID, m.SkillID}] = *m
	return nil
}

func (s memMastery) ListByTestTaker(_ context.Context, testTakerID int) ([]model.SkillMastery, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.SkillMastery
	for k, m := range s.db.state.mastery {
		if k.testTaker == testTakerID {
			out = append(out, m)
		}
	}
	return out, nil
}
