package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/internal/jobs/transport"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store with the same optimistic concurrency
// semantics as the pgx implementation: every mutation is guarded on the
// expected version and bumps it on success.
type fakeStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]repository.Job
	bids map[uuid.UUID][]repository.Bid
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs: make(map[uuid.UUID]repository.Job),
		bids: make(map[uuid.UUID][]repository.Bid),
	}
}

func (f *fakeStore) CreateJob(_ context.Context, job repository.Job) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.ID = uuid.New()
	job.Status = domain.StatusPending
	job.Version = 1
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeStore) GetJob(_ context.Context, id uuid.UUID) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repository.Job{}, apperr.NotFound("job not found")
	}
	return job, nil
}

func (f *fakeStore) ListJobs(_ context.Context, _ repository.ListFilter) ([]repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

// guarded fetches the job and checks the version under the lock.
func (f *fakeStore) guarded(id uuid.UUID, expectedVersion int64, allowed ...domain.Status) (repository.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return repository.Job{}, apperr.NotFound("job not found")
	}
	if job.Version != expectedVersion {
		return repository.Job{}, apperr.Conflict("job was modified concurrently, please retry")
	}
	for _, s := range allowed {
		if job.Status == s {
			return job, nil
		}
	}
	return repository.Job{}, apperr.Conflict("job was modified concurrently, please retry")
}

func (f *fakeStore) AcquireSoftLock(_ context.Context, p repository.AcquireLockParams) (repository.Job, repository.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(p.JobID, p.ExpectedVersion, domain.StatusPending, domain.StatusSoftLocked)
	if err != nil {
		return repository.Job{}, repository.Bid{}, err
	}

	job.Status = domain.StatusSoftLocked
	job.SoftLockedByTechnicianID = &p.TechnicianID
	job.SoftLockedAt = &p.LockedAt
	job.SoftLockExpiresAt = &p.ExpiresAt
	job.AssignedTechnicianID = &p.TechnicianID
	job.Version++
	f.jobs[p.JobID] = job

	for i, b := range f.bids[p.JobID] {
		if b.TechnicianID != p.TechnicianID && (b.Status == repository.BidPending || b.Status == repository.BidCountered) {
			f.bids[p.JobID][i].Status = repository.BidRejected
		}
	}
	for _, b := range f.bids[p.JobID] {
		if b.TechnicianID == p.TechnicianID && b.Status == repository.BidAccepted {
			return job, b, nil
		}
	}
	bid := repository.Bid{
		ID:                uuid.New(),
		JobID:             p.JobID,
		TechnicianID:      p.TechnicianID,
		OfferedPriceCents: p.OfferedPriceCents,
		Status:            repository.BidAccepted,
		RoundNumber:       p.RoundNumber,
		DistanceKm:        p.DistanceKm,
		RatingSnapshot:    p.RatingSnapshot,
		CreatedAt:         time.Now(),
	}
	f.bids[p.JobID] = append(f.bids[p.JobID], bid)
	return job, bid, nil
}

func (f *fakeStore) RenewSoftLock(_ context.Context, jobID uuid.UUID, expectedVersion int64, expiresAt time.Time) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion, domain.StatusSoftLocked)
	if err != nil {
		return repository.Job{}, err
	}
	job.SoftLockExpiresAt = &expiresAt
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) ConfirmAssignment(_ context.Context, jobID uuid.UUID, expectedVersion int64) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion, domain.StatusSoftLocked)
	if err != nil {
		return repository.Job{}, err
	}
	job.Status = domain.StatusAssigned
	job.PriceLocked = true
	job.SoftLockedByTechnicianID = nil
	job.SoftLockedAt = nil
	job.SoftLockExpiresAt = nil
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) RecordRejection(_ context.Context, jobID uuid.UUID, technicianID uuid.UUID, expectedVersion int64, rejectedAt time.Time) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion, domain.StatusPending, domain.StatusSoftLocked)
	if err != nil {
		return repository.Job{}, err
	}
	job.Status = domain.StatusPending
	job.SoftLockedByTechnicianID = nil
	job.SoftLockedAt = nil
	job.SoftLockExpiresAt = nil
	job.AssignedTechnicianID = nil
	if !job.WasRejectedBy(technicianID) {
		job.RejectedTechnicianIDs = append(job.RejectedTechnicianIDs, technicianID)
	}
	job.LastRejectedAt = &rejectedAt
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) StartWork(_ context.Context, jobID uuid.UUID, expectedVersion int64, startedAt time.Time) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion, domain.StatusAssigned)
	if err != nil {
		return repository.Job{}, err
	}
	job.Status = domain.StatusInProgress
	job.StartedAt = &startedAt
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) SetCompletionCode(_ context.Context, jobID uuid.UUID, expectedVersion int64, code string, expiresAt time.Time) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion, domain.StatusInProgress)
	if err != nil {
		return repository.Job{}, err
	}
	if job.CodeVerifiedAt != nil {
		return repository.Job{}, apperr.Conflict("job was modified concurrently, please retry")
	}
	job.CompletionCode = &code
	job.CodeExpiresAt = &expiresAt
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) MarkCompletionVerified(_ context.Context, jobID uuid.UUID, expectedVersion int64, verifiedAt time.Time) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion, domain.StatusInProgress)
	if err != nil {
		return repository.Job{}, err
	}
	if job.CodeVerifiedAt != nil {
		return repository.Job{}, apperr.Conflict("job was modified concurrently, please retry")
	}
	job.Status = domain.StatusCompletionPendingApproval
	job.CodeVerifiedAt = &verifiedAt
	job.CompletedAt = &verifiedAt
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) ApproveCompletion(_ context.Context, jobID uuid.UUID, expectedVersion int64) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion, domain.StatusCompletionPendingApproval)
	if err != nil {
		return repository.Job{}, err
	}
	job.Status = domain.StatusCompleted
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) CancelJob(_ context.Context, jobID uuid.UUID, expectedVersion int64, reason string) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, err := f.guarded(jobID, expectedVersion,
		domain.StatusPending, domain.StatusSoftLocked, domain.StatusAssigned,
		domain.StatusInProgress, domain.StatusCompletionPendingApproval)
	if err != nil {
		return repository.Job{}, err
	}
	job.Status = domain.StatusCancelled
	if reason != "" {
		job.CancelReason = &reason
	}
	job.SoftLockedByTechnicianID = nil
	job.SoftLockedAt = nil
	job.SoftLockExpiresAt = nil
	job.Version++
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) CreateCounterBid(_ context.Context, bid repository.Bid) (repository.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid.ID = uuid.New()
	bid.Status = repository.BidCountered
	bid.CreatedAt = time.Now()
	f.bids[bid.JobID] = append(f.bids[bid.JobID], bid)
	return bid, nil
}

func (f *fakeStore) ListBidsForJob(_ context.Context, jobID uuid.UUID) ([]repository.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.Bid(nil), f.bids[jobID]...), nil
}

// fakeDirectory serves static technician profiles.
type fakeDirectory struct {
	mu        sync.Mutex
	techs     map[uuid.UUID]TechnicianInfo
	completed map[uuid.UUID]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		techs:     make(map[uuid.UUID]TechnicianInfo),
		completed: make(map[uuid.UUID]int),
	}
}

func (f *fakeDirectory) add(info TechnicianInfo) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info.ID == uuid.Nil {
		info.ID = uuid.New()
	}
	f.techs[info.ID] = info
	return info.ID
}

func (f *fakeDirectory) GetTechnician(_ context.Context, id uuid.UUID) (TechnicianInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.techs[id]
	if !ok {
		return TechnicianInfo{}, apperr.NotFound("technician not found")
	}
	return info, nil
}

func (f *fakeDirectory) IncrementCompletedJobs(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id]++
	return nil
}

// fakeLedger records payment splits.
type fakeLedger struct {
	mu     sync.Mutex
	splits []struct {
		JobID                                      uuid.UUID
		GrossCents, TechnicianCents, PlatformCents int64
	}
}

func (f *fakeLedger) RecordSplit(_ context.Context, jobID, _, _ uuid.UUID, gross, tech, platform int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.splits = append(f.splits, struct {
		JobID                                      uuid.UUID
		GrossCents, TechnicianCents, PlatformCents int64
	}{jobID, gross, tech, platform})
	return nil
}

// recordingBus captures published events synchronously.
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

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

// jobsConfig is a static config for tests.
type jobsConfig struct{}

func (jobsConfig) GetSoftLockTTL() time.Duration       { return 45 * time.Second }
func (jobsConfig) GetRejectionCooldown() time.Duration { return 5 * time.Minute }
func (jobsConfig) GetCompletionCodeTTL() time.Duration { return 30 * time.Minute }
func (jobsConfig) GetCompletionCodeDigits() int        { return 6 }

type fixture struct {
	svc       *Service
	store     *fakeStore
	directory *fakeDirectory
	ledger    *fakeLedger
	bus       *recordingBus
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFakeStore(),
		directory: newFakeDirectory(),
		ledger:    &fakeLedger{},
		bus:       &recordingBus{},
		clock:     time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	f.svc = New(f.store, f.directory, f.ledger, f.bus, jobsConfig{}, logger.New("development"))
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) postJob(t *testing.T, dealerID uuid.UUID) transport.JobResponse {
	t.Helper()
	job, err := f.svc.Create(context.Background(), dealerID, transport.CreateJobRequest{
		Title:         "Replace heat pump condenser",
		CustomerName:  "A. Janssen",
		CustomerEmail: "a.janssen@example.com",
		CustomerPhone: "+31612345678",
		SiteLat:       52.37,
		SiteLng:       4.90,
		PriceCents:    250_00,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func (f *fixture) newTech(name string) uuid.UUID {
	rating := 4.5
	lat, lng := 51.92, 4.48
	return f.directory.add(TechnicianInfo{
		Name:   name,
		Email:  name + "@example.com",
		Phone:  "+31687654321",
		Lat:    &lat,
		Lng:    &lng,
		Rating: &rating,
	})
}

func TestAcceptSoftLocksJob(t *testing.T) {
	f := newFixture(t)
	dealerID := uuid.New()
	job := f.postJob(t, dealerID)
	techID := f.newTech("jan")

	locked, err := f.svc.Accept(context.Background(), job.ID, techID, transport.AcceptJobRequest{})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if locked.Status != string(domain.StatusSoftLocked) {
		t.Errorf("status = %q, want %q", locked.Status, domain.StatusSoftLocked)
	}
	if locked.SoftLock == nil {
		t.Fatal("expected soft lock details in response")
	}
	if locked.SoftLock.TechnicianID != techID {
		t.Errorf("lock holder = %s, want %s", locked.SoftLock.TechnicianID, techID)
	}
	wantExpiry := f.clock.Add(45 * time.Second)
	if !locked.SoftLock.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("lock expiry = %v, want %v", locked.SoftLock.ExpiresAt, wantExpiry)
	}

	bids, err := f.svc.ListBids(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ListBids: %v", err)
	}
	if len(bids) != 1 || bids[0].Status != string(repository.BidAccepted) {
		t.Fatalf("bids = %+v, want one accepted bid", bids)
	}
	if bids[0].DistanceKm == nil || *bids[0].DistanceKm < 50 || *bids[0].DistanceKm > 65 {
		t.Errorf("distance snapshot = %v, want roughly 57 km", bids[0].DistanceKm)
	}

	names := f.bus.names()
	if len(names) != 2 || names[1] != "jobs.job.soft_locked" {
		t.Errorf("events = %v, want posted then soft_locked", names)
	}
}

func TestAcceptMutualExclusion(t *testing.T) {
	f := newFixture(t)
	job := f.postJob(t, uuid.New())
	first := f.newTech("first")
	second := f.newTech("second")

	if _, err := f.svc.Accept(context.Background(), job.ID, first, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("first Accept: %v", err)
	}

	_, err := f.svc.Accept(context.Background(), job.ID, second, transport.AcceptJobRequest{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second Accept err = %v, want conflict", err)
	}
}

func TestAcceptReclaimsExpiredLock(t *testing.T) {
	f := newFixture(t)
	job := f.postJob(t, uuid.New())
	first := f.newTech("first")
	second := f.newTech("second")

	if _, err := f.svc.Accept(context.Background(), job.ID, first, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("first Accept: %v", err)
	}

	// One second past the 45s TTL the lock is formally expired and the job
	// is claimable again without any sweeper having run.
	f.advance(46 * time.Second)

	locked, err := f.svc.Accept(context.Background(), job.ID, second, transport.AcceptJobRequest{})
	if err != nil {
		t.Fatalf("Accept after expiry: %v", err)
	}
	if locked.SoftLock == nil || locked.SoftLock.TechnicianID != second {
		t.Fatalf("lock holder = %+v, want %s", locked.SoftLock, second)
	}
}

func TestAcceptByHolderRefreshesLock(t *testing.T) {
	f := newFixture(t)
	job := f.postJob(t, uuid.New())
	techID := f.newTech("holder")

	if _, err := f.svc.Accept(context.Background(), job.ID, techID, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	f.advance(20 * time.Second)

	locked, err := f.svc.Accept(context.Background(), job.ID, techID, transport.AcceptJobRequest{})
	if err != nil {
		t.Fatalf("holder re-Accept: %v", err)
	}
	wantExpiry := f.clock.Add(45 * time.Second)
	if !locked.SoftLock.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("lock expiry = %v, want %v", locked.SoftLock.ExpiresAt, wantExpiry)
	}

	bids, _ := f.svc.ListBids(context.Background(), job.ID)
	if len(bids) != 1 {
		t.Errorf("bids = %d, want the accepted bid reused, not duplicated", len(bids))
	}
}

func TestRejectionCooldown(t *testing.T) {
	f := newFixture(t)
	job := f.postJob(t, uuid.New())
	techID := f.newTech("hesitant")

	if _, err := f.svc.Reject(context.Background(), job.ID, techID, transport.RejectJobRequest{}); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	f.advance(100 * time.Second)
	_, err := f.svc.Accept(context.Background(), job.ID, techID, transport.AcceptJobRequest{})
	if !apperr.Is(err, apperr.KindCooldown) {
		t.Fatalf("Accept during cooldown err = %v, want cooldown", err)
	}
	details, ok := err.(*apperr.Error).Details.(map[string]int64)
	if !ok {
		t.Fatalf("cooldown details = %#v, want remainingSeconds map", err.(*apperr.Error).Details)
	}
	if details["remainingSeconds"] != 200 {
		t.Errorf("remainingSeconds = %d, want 200", details["remainingSeconds"])
	}

	// Cooldown over: five minutes after the rejection the accept goes through.
	f.advance(201 * time.Second)
	if _, err := f.svc.Accept(context.Background(), job.ID, techID, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("Accept after cooldown: %v", err)
	}

	// A different technician is never affected by someone else's cooldown.
	f2 := newFixture(t)
	job2 := f2.postJob(t, uuid.New())
	rejector := f2.newTech("rejector")
	other := f2.newTech("other")
	if _, err := f2.svc.Reject(context.Background(), job2.ID, rejector, transport.RejectJobRequest{}); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := f2.svc.Accept(context.Background(), job2.ID, other, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("Accept by other technician: %v", err)
	}
}

func TestConfirmAssignsAndLocksPrice(t *testing.T) {
	f := newFixture(t)
	dealerID := uuid.New()
	job := f.postJob(t, dealerID)
	techID := f.newTech("jan")

	if _, err := f.svc.Accept(context.Background(), job.ID, techID, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	confirmed, err := f.svc.Confirm(context.Background(), job.ID, dealerID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != string(domain.StatusAssigned) {
		t.Errorf("status = %q, want assigned", confirmed.Status)
	}
	if !confirmed.PriceLocked {
		t.Error("price should be locked after confirmation")
	}
	if confirmed.SoftLock != nil {
		t.Error("soft lock fields should be cleared after confirmation")
	}
	if confirmed.AssignedTechnicianID == nil || *confirmed.AssignedTechnicianID != techID {
		t.Errorf("assigned technician = %v, want %s", confirmed.AssignedTechnicianID, techID)
	}
}

func TestConfirmRejectsWrongDealerAndExpiredLock(t *testing.T) {
	f := newFixture(t)
	dealerID := uuid.New()
	job := f.postJob(t, dealerID)
	techID := f.newTech("jan")

	if _, err := f.svc.Accept(context.Background(), job.ID, techID, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := f.svc.Confirm(context.Background(), job.ID, uuid.New()); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("Confirm by stranger err = %v, want forbidden", err)
	}

	f.advance(50 * time.Second)
	if _, err := f.svc.Confirm(context.Background(), job.ID, dealerID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Confirm after expiry err = %v, want conflict", err)
	}
}

func TestRenewLock(t *testing.T) {
	f := newFixture(t)
	job := f.postJob(t, uuid.New())
	holder := f.newTech("holder")
	stranger := f.newTech("stranger")

	if _, err := f.svc.Accept(context.Background(), job.ID, holder, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	f.advance(30 * time.Second)
	renewed, err := f.svc.RenewLock(context.Background(), job.ID, holder)
	if err != nil {
		t.Fatalf("RenewLock: %v", err)
	}
	wantExpiry := f.clock.Add(45 * time.Second)
	if !renewed.SoftLock.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("renewed expiry = %v, want %v", renewed.SoftLock.ExpiresAt, wantExpiry)
	}

	if _, err := f.svc.RenewLock(context.Background(), job.ID, stranger); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("RenewLock by stranger err = %v, want conflict", err)
	}

	// An expired lock cannot be renewed, only re-accepted.
	f.advance(50 * time.Second)
	if _, err := f.svc.RenewLock(context.Background(), job.ID, holder); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("RenewLock after expiry err = %v, want conflict", err)
	}
}

func TestStartWorkRequiresAssignedTechnician(t *testing.T) {
	f := newFixture(t)
	dealerID := uuid.New()
	job := f.postJob(t, dealerID)
	techID := f.newTech("jan")

	if _, err := f.svc.StartWork(context.Background(), job.ID, techID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("StartWork before assignment err = %v, want forbidden", err)
	}

	mustAssign(t, f, job.ID, dealerID, techID)

	started, err := f.svc.StartWork(context.Background(), job.ID, techID)
	if err != nil {
		t.Fatalf("StartWork: %v", err)
	}
	if started.Status != string(domain.StatusInProgress) {
		t.Errorf("status = %q, want in_progress", started.Status)
	}
}

func TestCancelFromTerminalStateFails(t *testing.T) {
	f := newFixture(t)
	dealerID := uuid.New()
	job := f.postJob(t, dealerID)

	if _, err := f.svc.Cancel(context.Background(), job.ID, dealerID, transport.CancelJobRequest{Reason: "customer withdrew"}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	_, err := f.svc.Cancel(context.Background(), job.ID, dealerID, transport.CancelJobRequest{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("Cancel of cancelled job err = %v, want validation", err)
	}
}

func mustAssign(t *testing.T, f *fixture, jobID, dealerID, techID uuid.UUID) {
	t.Helper()
	if _, err := f.svc.Accept(context.Background(), jobID, techID, transport.AcceptJobRequest{}); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := f.svc.Confirm(context.Background(), jobID, dealerID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}
