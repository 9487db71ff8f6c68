// Package fixtures generates synthetic workout data for seeding test
// environments.
package fixtures

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/dkoehler14/traindata/internal/etl"
)

var exerciseNames = []string{
	"Bench Press", "Squat", "Deadlift", "Overhead Press",
	"Barbell Row", "Pull Up", "Lunge", "Lat Pulldown",
}

var workoutNames = []string{
	"Push Day", "Pull Day", "Leg Day", "Upper Body", "Full Body",
}

// Generator produces synthetic workout log documents. A fixed seed yields
// a reproducible dataset; uuids are derived from the same source so runs
// with equal seeds produce identical IDs.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// WorkoutLogs generates count workout log documents in _id order, each
// with a user reference, a completed date, and nested exercises with sets.
func (g *Generator) WorkoutLogs(count int) []etl.Record {
	users := g.userIDs(1 + count/20)
	base := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)

	logs := make([]etl.Record, 0, count)
	for i := 0; i < count; i++ {
		date := base.Add(time.Duration(i) * 8 * time.Hour)
		logs = append(logs, etl.Record{
			"_id":           g.uuid().String(),
			"userId":        users[g.rng.Intn(len(users))],
			"name":          workoutNames[g.rng.Intn(len(workoutNames))],
			"date":          date,
			"completedDate": date,
			"durationMin":   30 + g.rng.Intn(61),
			"exercises":     g.exercises(),
		})
	}
	return logs
}

func (g *Generator) exercises() []etl.Record {
	n := 3 + g.rng.Intn(4)
	out := make([]etl.Record, 0, n)
	for i := 0; i < n; i++ {
		sets := 3 + g.rng.Intn(3)
		reps := make([]int, sets)
		weights := make([]float64, sets)
		for s := 0; s < sets; s++ {
			reps[s] = 5 + g.rng.Intn(8)
			weights[s] = float64(20 + 5*g.rng.Intn(25))
		}
		out = append(out, etl.Record{
			"name":    exerciseNames[g.rng.Intn(len(exerciseNames))],
			"sets":    sets,
			"reps":    reps,
			"weights": weights,
		})
	}
	return out
}

func (g *Generator) userIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("user-%s", g.uuid())
	}
	return ids
}

// uuid draws a v4-shaped UUID from the generator's own randomness so that
// fixture IDs are deterministic under a fixed seed.
func (g *Generator) uuid() uuid.UUID {
	var b [16]byte
	g.rng.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b)
}
