package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/parthjod/neuroblock/internal/app/config"
	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/ledger"
	"github.com/parthjod/neuroblock/internal/app/rts"
)

// fakeStore is the in-memory Datastore used across the package tests.
type fakeStore struct {
	mu         sync.Mutex
	patients   map[uint]*ds.Patient
	sessions   []*ds.Session
	nextID     uint
	failCreate bool
	failFlag   bool
}

func newFakeStore(patientIDs ...uint) *fakeStore {
	s := &fakeStore{patients: map[uint]*ds.Patient{}}
	for _, id := range patientIDs {
		s.patients[id] = &ds.Patient{ID: id, Name: fmt.Sprintf("patient-%d", id), Visibility: true}
	}
	return s
}

func (s *fakeStore) FindPatient(ctx context.Context, id uint) (*ds.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, errors.New("patient not found")
	}
	return p, nil
}

func (s *fakeStore) ListPatientSessions(ctx context.Context, patientID uint) ([]ds.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ds.Session
	for _, sess := range s.sessions {
		if sess.PatientID == patientID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) CreateSession(ctx context.Context, session *ds.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("store down")
	}
	s.nextID++
	session.ID = s.nextID
	cp := *session
	s.sessions = append(s.sessions, &cp)
	return nil
}

func (s *fakeStore) UpdateSessionFlag(ctx context.Context, sessionID uint, flag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFlag {
		return errors.New("store down")
	}
	for _, sess := range s.sessions {
		if sess.ID == sessionID {
			sess.IsFlagged = flag
			return nil
		}
	}
	return errors.New("session not found")
}

func (s *fakeStore) UpdateSessionAudit(ctx context.Context, sessionID uint, rec ds.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == sessionID {
			sess.TxHash = &rec.TransactionHash
			sess.TxTimestamp = &rec.Timestamp
			return nil
		}
	}
	return errors.New("session not found")
}

func (s *fakeStore) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// failingLedger rejects every append.
type failingLedger struct{}

func (failingLedger) Append(ctx context.Context, ev ledger.Event) (ledger.Receipt, error) {
	return ledger.Receipt{}, ledger.ErrWriteFailed
}
func (failingLedger) History(ctx context.Context) ([]ledger.Entry, error) { return nil, nil }

// fixedSource returns the same metric value for every exercise.
type fixedSource struct{ value int }

func (f fixedSource) Measure(ctx context.Context, exercise string) (ds.ExerciseMetric, error) {
	return ds.ExerciseMetric{Name: exercise, RangeOfMotion: f.value, Stability: f.value, Accuracy: f.value}, nil
}

// closedGate fails the capability check.
type closedGate struct{}

func (closedGate) Acquire(ctx context.Context) error { return errors.New("camera denied") }
func (closedGate) Release()                          {}

// countingGate tracks acquire/release balance.
type countingGate struct {
	mu                 sync.Mutex
	acquired, released int
}

func (g *countingGate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acquired++
	return nil
}

func (g *countingGate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released++
}

func newTestCoordinator(store Datastore, chain ledger.Ledger, gate SensorGate, dwell time.Duration) *Coordinator {
	return NewCoordinator(store, chain, fixedSource{value: 100}, gate, config.DefaultCatalog(), dwell)
}

func TestRun_FirstSessionPersistedWithAudit(t *testing.T) {
	store := newFakeStore(1)
	chain := ledger.NewMemoryLedger(0)
	c := newTestCoordinator(store, chain, OpenGate{}, 0)

	session, err := c.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Baseline 60, perfect metrics: 60*0.7 + 100*0.3.
	if session.RecoveryTrendScore != 72 {
		t.Errorf("RecoveryTrendScore = %d, want 72", session.RecoveryTrendScore)
	}
	if session.Status != ds.StatusImprovement {
		t.Errorf("Status = %q, want Improvement", session.Status)
	}
	if len(session.Exercises) != 3 {
		t.Errorf("persisted %d exercises, want 3", len(session.Exercises))
	}
	if len(session.Joints) != 3 {
		t.Errorf("persisted %d joint scores, want 3", len(session.Joints))
	}
	if session.Audit() == nil {
		t.Fatal("session has no audit receipt")
	}
	if store.sessionCount() != 1 {
		t.Errorf("store holds %d sessions, want 1", store.sessionCount())
	}

	entries, _ := chain.History(context.Background())
	if len(entries) != 1 || entries[0].Event.Type != ledger.EventSessionRecord {
		t.Fatalf("ledger entries = %+v, want one SESSION_RECORD", entries)
	}
	if entries[0].Receipt.TxHash != session.Audit().TransactionHash {
		t.Error("persisted receipt does not match ledger entry")
	}
}

func TestRun_SecondSessionSmoothsAgainstFirst(t *testing.T) {
	store := newFakeStore(1)
	chain := ledger.NewMemoryLedger(0)
	c := newTestCoordinator(store, chain, OpenGate{}, 0)

	ctx := context.Background()
	if _, err := c.Run(ctx, 1); err != nil {
		t.Fatal(err)
	}
	second, err := c.Run(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Previous RTS 72, perfect metrics again: round(72*0.7 + 100*0.3) = 80.
	if second.RecoveryTrendScore != 80 {
		t.Errorf("second RecoveryTrendScore = %d, want 80", second.RecoveryTrendScore)
	}
	if second.Status != ds.StatusImprovement {
		t.Errorf("second Status = %q, want Improvement", second.Status)
	}
}

func TestRun_AuditFailurePersistsNothing(t *testing.T) {
	store := newFakeStore(1)
	c := newTestCoordinator(store, failingLedger{}, OpenGate{}, 0)

	_, err := c.Run(context.Background(), 1)
	if !errors.Is(err, ledger.ErrWriteFailed) {
		t.Fatalf("Run() error = %v, want ErrWriteFailed", err)
	}
	if store.sessionCount() != 0 {
		t.Errorf("store holds %d sessions after audit failure, want 0", store.sessionCount())
	}
}

func TestRun_PersistFailureAfterAuditIsDistinct(t *testing.T) {
	store := newFakeStore(1)
	store.failCreate = true
	chain := ledger.NewMemoryLedger(0)
	c := newTestCoordinator(store, chain, OpenGate{}, 0)

	_, err := c.Run(context.Background(), 1)
	if !errors.Is(err, ErrPersistAfterAudit) {
		t.Fatalf("Run() error = %v, want ErrPersistAfterAudit", err)
	}

	// The ledger keeps the orphaned receipt; that is the reconciliation case.
	entries, _ := chain.History(context.Background())
	if len(entries) != 1 {
		t.Errorf("ledger holds %d entries, want the orphaned receipt", len(entries))
	}
}

func TestRun_EmptyCatalogFailsBeforeAnyWrite(t *testing.T) {
	store := newFakeStore(1)
	chain := ledger.NewMemoryLedger(0)
	c := NewCoordinator(store, chain, fixedSource{value: 80}, OpenGate{}, &config.Catalog{}, 0)

	_, err := c.Run(context.Background(), 1)
	if !errors.Is(err, rts.ErrNoMetrics) {
		t.Fatalf("Run() error = %v, want ErrNoMetrics", err)
	}
	if store.sessionCount() != 0 {
		t.Error("degenerate attempt persisted a session")
	}
	entries, _ := chain.History(context.Background())
	if len(entries) != 0 {
		t.Error("degenerate attempt reached the ledger")
	}
}

func TestRun_SensorUnavailableStaysIdle(t *testing.T) {
	store := newFakeStore(1)
	chain := ledger.NewMemoryLedger(0)
	c := newTestCoordinator(store, chain, closedGate{}, 0)

	var transitions []Transition
	c.Subscribe(func(tr Transition) { transitions = append(transitions, tr) })

	_, err := c.Run(context.Background(), 1)
	if !errors.Is(err, ErrSensorUnavailable) {
		t.Fatalf("Run() error = %v, want ErrSensorUnavailable", err)
	}
	if len(transitions) != 0 {
		t.Errorf("attempt left Idle: transitions = %+v", transitions)
	}
	if store.sessionCount() != 0 {
		t.Error("blocked attempt persisted a session")
	}
}

func TestRun_CancelDuringTrackingLeavesNoTrace(t *testing.T) {
	store := newFakeStore(1)
	chain := ledger.NewMemoryLedger(0)
	gate := &countingGate{}
	c := newTestCoordinator(store, chain, gate, 100*time.Millisecond)

	var mu sync.Mutex
	var states []State
	c.Subscribe(func(tr Transition) {
		mu.Lock()
		states = append(states, tr.To)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Run(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	if store.sessionCount() != 0 {
		t.Error("cancelled tracking persisted a session")
	}
	entries, _ := chain.History(context.Background())
	if len(entries) != 0 {
		t.Error("cancelled tracking reached the ledger")
	}
	if gate.acquired != 1 || gate.released != 1 {
		t.Errorf("sensor acquire/release = %d/%d, want 1/1", gate.acquired, gate.released)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[len(states)-1] != StateIdle {
		t.Errorf("final observed state = %v, want return to Idle", states)
	}
}

func TestRun_SecondConcurrentAttemptRejected(t *testing.T) {
	store := newFakeStore(1)
	chain := ledger.NewMemoryLedger(0)
	c := newTestCoordinator(store, chain, OpenGate{}, 80*time.Millisecond)

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx, 1)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond) // first attempt is mid-tracking
	_, err := c.Run(ctx, 1)
	if !errors.Is(err, ErrAttemptActive) {
		t.Fatalf("concurrent Run() error = %v, want ErrAttemptActive", err)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("first attempt failed: %v", err)
	}
	if store.sessionCount() != 1 {
		t.Errorf("store holds %d sessions, want exactly 1", store.sessionCount())
	}
}

func TestRun_DifferentPatientsRunIndependently(t *testing.T) {
	store := newFakeStore(1, 2)
	chain := ledger.NewMemoryLedger(0)
	c := newTestCoordinator(store, chain, OpenGate{}, 30*time.Millisecond)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pid := range []uint{1, 2} {
		wg.Add(1)
		go func(i int, pid uint) {
			defer wg.Done()
			_, errs[i] = c.Run(ctx, pid)
		}(i, pid)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("attempt %d error = %v", i, err)
		}
	}
	if store.sessionCount() != 2 {
		t.Errorf("store holds %d sessions, want 2", store.sessionCount())
	}
}

func TestRun_UnknownPatient(t *testing.T) {
	store := newFakeStore() // no patients
	c := newTestCoordinator(store, ledger.NewMemoryLedger(0), OpenGate{}, 0)

	if _, err := c.Run(context.Background(), 42); err == nil {
		t.Fatal("Run() with unknown patient succeeded")
	}
	if store.sessionCount() != 0 {
		t.Error("unknown patient attempt persisted a session")
	}
}
