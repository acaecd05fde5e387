// Package lifecycle runs one rehabilitation session attempt from sensor
// acquisition through scoring, audit and persistence.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/parthjod/neuroblock/internal/app/config"
	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/ledger"
	"github.com/parthjod/neuroblock/internal/app/rts"
)

// State of a session attempt. Idle → Tracking → Processing → Complete,
// with Error terminal from Processing.
type State string

const (
	StateIdle       State = "idle"
	StateTracking   State = "tracking"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

var (
	// ErrAttemptActive means another attempt for the same patient has
	// not finished yet.
	ErrAttemptActive = errors.New("another session attempt is active for this patient")

	// ErrSensorUnavailable means the capability check failed; the
	// attempt never left Idle and may be retried.
	ErrSensorUnavailable = errors.New("sensor unavailable")

	// ErrPersistAfterAudit is the one genuine inconsistency: the ledger
	// accepted the session but the store write failed afterwards. The
	// orphaned transaction hash is logged for reconciliation.
	ErrPersistAfterAudit = errors.New("session audited but not persisted")
)

// Transition is delivered to observers on every state change.
type Transition struct {
	AttemptID string    `json:"attempt_id"`
	PatientID uint      `json:"patient_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
	// Exercise is the catalog entry being tracked, set during Tracking.
	Exercise string `json:"exercise,omitempty"`
}

// Observer receives transitions. Callbacks run on the attempt's
// goroutine and must not block.
type Observer func(Transition)

// Coordinator orchestrates session attempts. One attempt per patient at
// a time; attempts for different patients run independently.
type Coordinator struct {
	store   Datastore
	chain   ledger.Ledger
	source  MetricSource
	gate    SensorGate
	catalog *config.Catalog
	dwell   time.Duration

	mu        sync.Mutex
	active    map[uint]bool
	observers []Observer
}

// NewCoordinator wires the attempt pipeline. dwell is the default
// per-exercise tracking time; catalog entries may override it.
func NewCoordinator(store Datastore, chain ledger.Ledger, source MetricSource, gate SensorGate, catalog *config.Catalog, dwell time.Duration) *Coordinator {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	return &Coordinator{
		store:   store,
		chain:   chain,
		source:  source,
		gate:    gate,
		catalog: catalog,
		dwell:   dwell,
		active:  map[uint]bool{},
	}
}

// Subscribe registers an observer for attempt transitions.
func (c *Coordinator) Subscribe(fn Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Coordinator) notify(tr Transition) {
	tr.At = time.Now()
	c.mu.Lock()
	obs := make([]Observer, len(c.observers))
	copy(obs, c.observers)
	c.mu.Unlock()
	for _, fn := range obs {
		fn(tr)
	}
}

func (c *Coordinator) tryAcquirePatient(patientID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[patientID] {
		return false
	}
	c.active[patientID] = true
	return true
}

func (c *Coordinator) releasePatient(patientID uint) {
	c.mu.Lock()
	delete(c.active, patientID)
	c.mu.Unlock()
}

// Run executes one full attempt for the patient and returns the
// persisted session.
//
// Cancellation during Tracking releases the sensor and leaves no trace.
// Once Processing starts the attempt runs to Complete or Error on a
// detached context, so a dropped caller cannot split the audit write
// from the store write.
func (c *Coordinator) Run(ctx context.Context, patientID uint) (*ds.Session, error) {
	if !c.tryAcquirePatient(patientID) {
		return nil, ErrAttemptActive
	}
	defer c.releasePatient(patientID)

	attemptID := uuid.New().String()
	logger := log.WithFields(log.Fields{"attempt": attemptID, "patient": patientID})

	patient, err := c.store.FindPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("find patient %d: %w", patientID, err)
	}

	// Capability check. Failure keeps the attempt in Idle.
	if err := c.gate.Acquire(ctx); err != nil {
		logger.WithError(err).Warn("sensor acquisition failed, staying idle")
		return nil, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}
	sensorHeld := true
	releaseSensor := func() {
		if sensorHeld {
			c.gate.Release()
			sensorHeld = false
		}
	}
	defer releaseSensor()

	c.notify(Transition{AttemptID: attemptID, PatientID: patientID, From: StateIdle, To: StateTracking})
	logger.Info("tracking started")

	metrics, err := c.track(ctx, attemptID, patientID)
	if err != nil {
		// Cancelled mid-tracking: back to Idle, no side effects.
		releaseSensor()
		c.notify(Transition{AttemptID: attemptID, PatientID: patientID, From: StateTracking, To: StateIdle})
		logger.WithError(err).Info("tracking cancelled")
		return nil, err
	}
	releaseSensor()

	c.notify(Transition{AttemptID: attemptID, PatientID: patientID, From: StateTracking, To: StateProcessing})

	// Processing must not be interrupted by the caller.
	session, err := c.process(context.WithoutCancel(ctx), attemptID, patient, metrics)
	if err != nil {
		c.notify(Transition{AttemptID: attemptID, PatientID: patientID, From: StateProcessing, To: StateError})
		return nil, err
	}

	c.notify(Transition{AttemptID: attemptID, PatientID: patientID, From: StateProcessing, To: StateComplete})
	logger.WithFields(log.Fields{"session": session.ID, "rts": session.RecoveryTrendScore, "status": session.Status}).Info("session complete")
	return session, nil
}

// track walks the exercise catalog, dwelling on each entry before
// measuring it.
func (c *Coordinator) track(ctx context.Context, attemptID string, patientID uint) ([]ds.ExerciseMetric, error) {
	metrics := make([]ds.ExerciseMetric, 0, len(c.catalog.Exercises))
	for _, entry := range c.catalog.Exercises {
		c.notify(Transition{AttemptID: attemptID, PatientID: patientID, From: StateTracking, To: StateTracking, Exercise: entry.Name})

		dwell := c.dwell
		if entry.Dwell > 0 {
			dwell = time.Duration(entry.Dwell)
		}
		if dwell > 0 {
			t := time.NewTimer(dwell)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		m, err := c.source.Measure(ctx, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("measure %s: %w", entry.Name, err)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// process scores the metrics, audits the session and persists it.
// Fail-before-write ordering: scoring errors abort before the ledger is
// touched; ledger errors abort before the store is touched.
func (c *Coordinator) process(ctx context.Context, attemptID string, patient *ds.Patient, metrics []ds.ExerciseMetric) (*ds.Session, error) {
	logger := log.WithFields(log.Fields{"attempt": attemptID, "patient": patient.ID})

	previous, err := c.previousScore(ctx, patient.ID)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}

	result, err := rts.ComputeTrend(previous, metrics)
	if err != nil {
		return nil, fmt.Errorf("score attempt: %w", err)
	}

	receipt, err := c.chain.Append(ctx, ledger.Event{
		Type:      ledger.EventSessionRecord,
		PatientID: patient.ID,
		Attempt:   attemptID,
		Score:     result.NewRTS,
	})
	if err != nil {
		return nil, fmt.Errorf("audit session: %w", err)
	}

	session := &ds.Session{
		PatientID:          patient.ID,
		CreatedAt:          time.Now(),
		RecoveryTrendScore: result.NewRTS,
		Status:             result.Status,
		IsFlagged:          false,
		TxHash:             &receipt.TxHash,
		TxTimestamp:        &receipt.Timestamp,
		Exercises:          metrics,
		Joints:             c.jointScores(metrics),
	}

	if err := c.store.CreateSession(ctx, session); err != nil {
		// The ledger already holds a receipt for a session the store
		// does not know about. Surface it distinctly and leave enough
		// in the log to reconcile.
		logger.WithFields(log.Fields{"tx": receipt.TxHash, "rts": result.NewRTS}).
			WithError(err).Error("persist failed after successful audit")
		return nil, fmt.Errorf("%w: tx %s: %v", ErrPersistAfterAudit, receipt.TxHash, err)
	}

	return session, nil
}

// previousScore returns the most recent session's trend score, or nil
// for a first-ever session.
func (c *Coordinator) previousScore(ctx context.Context, patientID uint) (*int, error) {
	sessions, err := c.store.ListPatientSessions(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	score := sessions[0].RecoveryTrendScore
	return &score, nil
}

// jointScores derives the per-joint breakdown from the catalog mapping:
// each exercise's composite lands on its joint.
func (c *Coordinator) jointScores(metrics []ds.ExerciseMetric) []ds.JointScore {
	joints := make([]ds.JointScore, 0, len(metrics))
	byName := map[string]string{}
	for _, e := range c.catalog.Exercises {
		byName[e.Name] = e.Joint
	}
	for _, m := range metrics {
		joint := byName[m.Name]
		if joint == "" {
			joint = m.Name
		}
		joints = append(joints, ds.JointScore{Joint: joint, Score: int(math.Round(m.Composite()))})
	}
	return joints
}
