package scoring

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// SelectPartner picks the trigger runner's supply-station teammate from candidates.
// The choice depends only on weekID, trigger and the candidate set, so repeated loads
// agree until a persisted pairing takes over. ok is false when nobody is eligible.
func SelectPartner(weekID, trigger string, candidates []string) (string, bool) {
	seen := make(map[string]bool, len(candidates))
	eligible := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == trigger || c == "" || seen[c] {
			continue
		}
		seen[c] = true
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return "", false
	}
	sort.Strings(eligible)

	idx := xxhash.Sum64String(weekID+trigger) % uint64(len(eligible))
	return eligible[idx], true
}
