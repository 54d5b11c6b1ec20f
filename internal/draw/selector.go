// Package draw holds the lucky-draw rules: who may win, which task is picked, and
// when the draw control is open.
package draw

import (
	"math/rand/v2"
	"time"

	"github.com/abrezinsky/moherun/internal/models"
)

// WinnerCount is the number of runners drawn each week.
const WinnerCount = 3

// NewRand returns a generator seeded from the clock.
func NewRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// Select draws WinnerCount distinct runners from eligible and one task from pool,
// preferring tasks not in used. It returns nil when fewer than WinnerCount distinct
// runners are eligible or the pool is empty. The result has no week id or timestamp.
func Select(rng *rand.Rand, eligible, pool, used []string) *models.DrawResult {
	names := dedupe(eligible)
	tasks := dedupe(pool)
	if len(names) < WinnerCount || len(tasks) == 0 {
		return nil
	}

	rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	winners := append([]string(nil), names[:WinnerCount]...)

	candidates := UnusedTasks(tasks, used)
	if len(candidates) == 0 {
		candidates = tasks
	}
	return &models.DrawResult{
		Winners: winners,
		Task:    candidates[rng.IntN(len(candidates))],
	}
}

// UnusedTasks returns the tasks of pool whose normalized text is not in used.
func UnusedTasks(pool, used []string) []string {
	seen := make(map[string]bool, len(used))
	for _, u := range used {
		seen[NormalizeTask(u)] = true
	}
	out := make([]string, 0, len(pool))
	for _, t := range pool {
		if !seen[NormalizeTask(t)] {
			out = append(out, t)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
