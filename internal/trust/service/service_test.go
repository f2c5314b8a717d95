package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/trust/domain"
	"fieldserve_backend/internal/trust/repository"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore keeps subjects and the ledger in memory. WriteScore mirrors the
// pgx implementation: ledger append and profile update happen together.
type fakeStore struct {
	mu          sync.Mutex
	subjects    map[uuid.UUID]repository.Subject
	factors     map[uuid.UUID]domain.Factors
	history     []repository.HistoryRow
	gatherCalls int
	getCalls    int
	failGather  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subjects: make(map[uuid.UUID]repository.Subject),
		factors:  make(map[uuid.UUID]domain.Factors),
	}
}

func (f *fakeStore) addSubject(st repository.SubjectType, score float64, factors domain.Factors) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.subjects[id] = repository.Subject{
		ID: id, Type: st, Score: score, Status: string(domain.BandFor(score)),
	}
	f.factors[id] = factors
	return id
}

func (f *fakeStore) GatherTechnicianFactors(_ context.Context, id uuid.UUID) (domain.Factors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gatherCalls++
	if f.failGather {
		return domain.Factors{}, apperr.Internal("factor gathering broke")
	}
	return f.factors[id], nil
}

func (f *fakeStore) GatherDealerFactors(ctx context.Context, id uuid.UUID) (domain.Factors, error) {
	return f.GatherTechnicianFactors(ctx, id)
}

func (f *fakeStore) GetSubject(_ context.Context, id uuid.UUID, st repository.SubjectType) (repository.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	s, ok := f.subjects[id]
	if !ok || s.Type != st {
		return repository.Subject{}, apperr.NotFound("subject not found")
	}
	return s, nil
}

func (f *fakeStore) WriteScore(_ context.Context, row repository.HistoryRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[row.SubjectID]
	if !ok {
		return apperr.NotFound("subject not found")
	}
	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	f.history = append(f.history, row)

	now := time.Now()
	s.Score = row.NewScore
	s.Status = string(domain.BandFor(row.NewScore))
	s.LastUpdated = &now
	f.subjects[row.SubjectID] = s
	return nil
}

func (f *fakeStore) ListHistory(_ context.Context, subjectID uuid.UUID, st repository.SubjectType, _, _ int) ([]repository.HistoryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.HistoryRow
	for i := len(f.history) - 1; i >= 0; i-- {
		h := f.history[i]
		if h.SubjectID == subjectID && h.SubjectType == st {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) ListStaleSubjects(_ context.Context, cutoff time.Time, _ int) ([]repository.Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Subject
	for _, s := range f.subjects {
		if s.LastUpdated == nil || s.LastUpdated.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newService(store *fakeStore, cache ScoreCache) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(store, cache, bus, logger.New("development")), bus
}

func strongFactors() domain.Factors {
	return domain.Factors{
		AvgRating: 4.6, RatingCount: 10,
		TotalJobs: 10, CompletedJobs: 10, OnTimeCompletions: 9,
		PhotoProofRate:           1.0,
		CustomerVerifiedClosures: 10,
	}
}

func TestRecalculateWritesOneLedgerRow(t *testing.T) {
	store := newFakeStore()
	id := store.addSubject(repository.SubjectTechnician, 50, strongFactors())
	svc, bus := newService(store, nil)

	result, err := svc.Recalculate(context.Background(), id, repository.SubjectTechnician, ChangeJobCompletion)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if result.OldScore != 50 {
		t.Errorf("old score = %v, want 50", result.OldScore)
	}
	if result.NewScore <= 60 {
		t.Errorf("new score = %v, want materially above baseline", result.NewScore)
	}
	if result.Status != domain.BandGood {
		t.Errorf("status = %q, want GOOD", result.Status)
	}

	if len(store.history) != 1 {
		t.Fatalf("ledger rows = %d, want exactly 1", len(store.history))
	}
	row := store.history[0]
	if row.OldScore != 50 || row.NewScore != result.NewScore {
		t.Errorf("ledger row = %+v, want old 50 new %v", row, result.NewScore)
	}
	if row.ChangeType != ChangeJobCompletion {
		t.Errorf("change type = %q, want %q", row.ChangeType, ChangeJobCompletion)
	}
	if row.Reason == "" {
		t.Error("ledger row should carry a reason")
	}
	if row.ChangedBy != nil {
		t.Error("automatic recompute should not record a changed_by")
	}

	// Profile and ledger agree.
	if store.subjects[id].Score != row.NewScore {
		t.Errorf("profile score = %v, ledger newScore = %v", store.subjects[id].Score, row.NewScore)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 1 {
		t.Fatalf("events = %d, want one TrustScoreChanged", len(bus.events))
	}
	changed, ok := bus.events[0].(events.TrustScoreChanged)
	if !ok || changed.NewScore != result.NewScore || changed.ChangeType != ChangeJobCompletion {
		t.Errorf("event = %+v, want TrustScoreChanged matching the result", bus.events[0])
	}
}

func TestRecalculateAuditChain(t *testing.T) {
	store := newFakeStore()
	id := store.addSubject(repository.SubjectTechnician, 50, strongFactors())
	svc, _ := newService(store, nil)

	// Every write's oldScore matches the previous persisted score.
	for i := 0; i < 3; i++ {
		if _, err := svc.Recalculate(context.Background(), id, repository.SubjectTechnician, ""); err != nil {
			t.Fatalf("Recalculate #%d: %v", i, err)
		}
	}

	prev := 50.0
	for i, row := range store.history {
		if row.OldScore != prev {
			t.Errorf("row %d oldScore = %v, want %v", i, row.OldScore, prev)
		}
		prev = row.NewScore
	}
	if store.subjects[id].Score != prev {
		t.Errorf("profile score = %v, want ledger tail %v", store.subjects[id].Score, prev)
	}
}

func TestRecalculateUnknownSubject(t *testing.T) {
	store := newFakeStore()
	svc, _ := newService(store, nil)

	_, err := svc.Recalculate(context.Background(), uuid.New(), repository.SubjectTechnician, "")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestManualAdjust(t *testing.T) {
	store := newFakeStore()
	adminID := uuid.New()
	id := store.addSubject(repository.SubjectDealer, 70, domain.Factors{})
	svc, _ := newService(store, nil)

	delta := -25.0
	result, err := svc.ManualAdjust(context.Background(), id, repository.SubjectDealer, &delta, nil, adminID, "repeated no-shows reported by customers")
	if err != nil {
		t.Fatalf("ManualAdjust: %v", err)
	}
	if result.NewScore != 45 {
		t.Errorf("score = %v, want 45", result.NewScore)
	}
	if result.Status != domain.BandRisk {
		t.Errorf("status = %q, want RISK", result.Status)
	}

	row := store.history[len(store.history)-1]
	if row.ChangeType != ChangeManualDecrease {
		t.Errorf("change type = %q, want %q", row.ChangeType, ChangeManualDecrease)
	}
	if row.ChangedBy == nil || *row.ChangedBy != adminID {
		t.Errorf("changed_by = %v, want %s", row.ChangedBy, adminID)
	}

	// Absolute set, clamped into range.
	set := 250.0
	result, err = svc.ManualAdjust(context.Background(), id, repository.SubjectDealer, nil, &set, adminID, "restored after review")
	if err != nil {
		t.Fatalf("ManualAdjust set: %v", err)
	}
	if result.NewScore != 100 {
		t.Errorf("score = %v, want clamped 100", result.NewScore)
	}
	if store.history[len(store.history)-1].ChangeType != ChangeManualIncrease {
		t.Errorf("change type = %q, want %q", store.history[len(store.history)-1].ChangeType, ChangeManualIncrease)
	}
}

func TestManualAdjustValidation(t *testing.T) {
	store := newFakeStore()
	id := store.addSubject(repository.SubjectDealer, 70, domain.Factors{})
	svc, _ := newService(store, nil)
	delta, set := 5.0, 80.0

	if _, err := svc.ManualAdjust(context.Background(), id, repository.SubjectDealer, nil, nil, uuid.New(), "x"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("neither delta nor set: err = %v, want validation", err)
	}
	if _, err := svc.ManualAdjust(context.Background(), id, repository.SubjectDealer, &delta, &set, uuid.New(), "x"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("both delta and set: err = %v, want validation", err)
	}
	if _, err := svc.ManualAdjust(context.Background(), id, repository.SubjectDealer, &delta, nil, uuid.New(), ""); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing reason: err = %v, want validation", err)
	}
	if len(store.history) != 0 {
		t.Errorf("ledger rows = %d, want none after rejected adjustments", len(store.history))
	}
}

func TestSweepStale(t *testing.T) {
	store := newFakeStore()
	stale := store.addSubject(repository.SubjectTechnician, 50, strongFactors())
	fresh := store.addSubject(repository.SubjectDealer, 65, domain.Factors{})

	// The fresh subject was updated a moment ago.
	now := time.Now()
	s := store.subjects[fresh]
	s.LastUpdated = &now
	store.subjects[fresh] = s

	svc, _ := newService(store, nil)
	n, err := svc.SweepStale(context.Background(), time.Hour, 100)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if n != 1 {
		t.Errorf("recomputed = %d, want 1", n)
	}
	if len(store.history) != 1 || store.history[0].SubjectID != stale {
		t.Errorf("ledger = %+v, want one row for the stale subject", store.history)
	}
}

func TestParseSubjectType(t *testing.T) {
	if _, err := ParseSubjectType("technician"); err != nil {
		t.Errorf("technician: %v", err)
	}
	if _, err := ParseSubjectType("dealer"); err != nil {
		t.Errorf("dealer: %v", err)
	}
	if _, err := ParseSubjectType("customer"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("customer: err = %v, want validation", err)
	}
}
