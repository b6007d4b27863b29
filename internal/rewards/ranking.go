package rewards

import (
	"sort"

	"github.com/tmardones/campusred/internal/model"
)

// Ranking merges a catalog ranking snapshot with the ledger's live balance.
// The active user's entry reflects the current balance even when the
// snapshot carries a stale value; an active user missing from the snapshot
// is appended. Entries are ordered by points descending, snapshot order
// breaking ties.
func (l *Ledger) Ranking(snapshot []model.RankingEntry, name string) []model.RankingEntry {
	l.mu.Lock()
	userID := l.userID
	balance := l.balance
	l.mu.Unlock()

	out := make([]model.RankingEntry, len(snapshot))
	copy(out, snapshot)

	if userID != "" {
		found := false
		for i := range out {
			if out[i].UserID == userID {
				out[i].Points = balance
				if name != "" {
					out[i].Name = name
				}
				found = true
				break
			}
		}
		if !found {
			out = append(out, model.RankingEntry{UserID: userID, Name: name, Points: balance})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	return out
}
