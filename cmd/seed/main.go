package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/dsn"
	"github.com/parthjod/neuroblock/internal/app/ledger"
	"github.com/parthjod/neuroblock/internal/app/repository"
)

func daysAgo(n int) time.Time {
	return time.Now().AddDate(0, 0, -n)
}

func mustHash(pw string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}
	return string(h)
}

func main() {
	_ = godotenv.Load()

	repo, err := repository.New(dsn.FromEnv())
	if err != nil {
		log.Fatal("failed to connect database")
	}
	ctx := context.Background()

	// Receipts for the historical sessions come from a throwaway chain;
	// they are attached after the fact via the audit update path.
	chain := ledger.NewMemoryLedger(0)

	drUser := &ds.User{Login: "dr.reed@neuroblock.dev", Password: mustHash("password"), Role: ds.RoleNeurologist}
	if err := repo.CreateUser(drUser); err != nil {
		log.Fatal(err)
	}
	neurologist := &ds.Neurologist{UserID: drUser.ID}
	if err := repo.CreateNeurologist(neurologist); err != nil {
		log.Fatal(err)
	}

	type seedSession struct {
		age       int // days ago
		score     int
		status    string
		flagged   bool
		exercises []ds.ExerciseMetric
	}

	patients := []struct {
		login      string
		name       string
		age        int
		condition  string
		visibility bool
		sessions   []seedSession
	}{
		{
			login: "alex.johnson@example.com", name: "Alex Johnson", age: 58,
			condition: "Post-Stroke Recovery", visibility: true,
			sessions: []seedSession{
				{age: 10, score: 65, status: ds.StatusStable, exercises: []ds.ExerciseMetric{
					{Name: ds.ExerciseHandOpenClose, RangeOfMotion: 65, Stability: 70, Accuracy: 75},
					{Name: ds.ExerciseWristFlexion, RangeOfMotion: 50, Stability: 60, Accuracy: 65},
				}},
				{age: 5, score: 72, status: ds.StatusImprovement, exercises: []ds.ExerciseMetric{
					{Name: ds.ExerciseHandOpenClose, RangeOfMotion: 70, Stability: 75, Accuracy: 80},
					{Name: ds.ExerciseWristFlexion, RangeOfMotion: 55, Stability: 68, Accuracy: 72},
					{Name: ds.ExerciseFingerPinch, RangeOfMotion: 60, Stability: 70, Accuracy: 75},
				}},
				{age: 1, score: 71, status: ds.StatusDecline, flagged: true, exercises: []ds.ExerciseMetric{
					{Name: ds.ExerciseHandOpenClose, RangeOfMotion: 68, Stability: 72, Accuracy: 78},
					{Name: ds.ExerciseWristFlexion, RangeOfMotion: 56, Stability: 65, Accuracy: 70},
					{Name: ds.ExerciseFingerPinch, RangeOfMotion: 62, Stability: 68, Accuracy: 73},
				}},
			},
		},
		{
			login: "maria.garcia@example.com", name: "Maria Garcia", age: 72,
			condition: "Arthritis Management", visibility: true,
			sessions: []seedSession{
				{age: 8, score: 84, status: ds.StatusStable, exercises: []ds.ExerciseMetric{
					{Name: ds.ExerciseFingerPinch, RangeOfMotion: 80, Stability: 85, Accuracy: 88},
				}},
			},
		},
		{
			login: "sam.chen@example.com", name: "Sam Chen", age: 45,
			condition: "Carpal Tunnel Syndrome", visibility: false,
		},
	}

	for _, p := range patients {
		user := &ds.User{Login: p.login, Password: mustHash("password"), Role: ds.RolePatient}
		if err := repo.CreateUser(user); err != nil {
			log.Fatal(err)
		}
		patient := &ds.Patient{UserID: user.ID, Name: p.name, Age: p.age, Condition: p.condition, Visibility: p.visibility}
		if err := repo.CreatePatient(patient); err != nil {
			log.Fatal(err)
		}
		if err := repo.SetPatientNeurologists(patient.ID, []uint{neurologist.ID}); err != nil {
			log.Fatal(err)
		}

		for _, s := range p.sessions {
			session := &ds.Session{
				PatientID:          patient.ID,
				CreatedAt:          daysAgo(s.age),
				RecoveryTrendScore: s.score,
				Status:             s.status,
				IsFlagged:          s.flagged,
				Exercises:          s.exercises,
			}
			if err := repo.CreateSession(ctx, session); err != nil {
				log.Fatal(err)
			}

			receipt, err := chain.Append(ctx, ledger.Event{
				Type:      ledger.EventSessionRecord,
				PatientID: patient.ID,
				SessionID: session.ID,
				Score:     s.score,
			})
			if err != nil {
				log.Fatal(err)
			}
			rec := ds.AuditRecord{TransactionHash: receipt.TxHash, Timestamp: daysAgo(s.age).UnixMilli()}
			if err := repo.UpdateSessionAudit(ctx, session.ID, rec); err != nil {
				log.Fatal(err)
			}
		}

		fmt.Printf("Seeded patient: %s (%d sessions)\n", p.name, len(p.sessions))
	}

	fmt.Println("\nSeeding complete!")
	fmt.Println("Neurologist login: dr.reed@neuroblock.dev / password")
}
