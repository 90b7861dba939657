package schedule

import (
	"sort"

	"contentboard/internal/model"
)

const (
	MaxScore      = 5.0
	RankThreshold = 3.0
	rankedLevels  = 3
)

const (
	MedalGold   = "gold"
	MedalSilver = "silver"
	MedalBronze = "bronze"
)

// Medal returns the tier for rank 1-3, "" otherwise.
func Medal(rank int) string {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	}
	return ""
}

// Standing is one user's result for an interval. Rank is 0 when unranked.
type Standing struct {
	UserID    string  `json:"userId"`
	Score     float64 `json:"score"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Rank      int     `json:"rank,omitempty"`
	Medal     string  `json:"medal,omitempty"`
}

// Ranking holds the scores and ranks of a set of candidates for an interval.
type Ranking struct {
	Interval  Interval   `json:"interval"`
	Standings []Standing `json:"standings"` // score descending, then user id
	byUser    map[string]int
}

// Score returns the user's score, 0 for unknown users.
func (r Ranking) Score(userID string) float64 {
	if i, ok := r.byUser[userID]; ok {
		return r.Standings[i].Score
	}
	return 0
}

// Rank returns the user's rank; ok is false when the user has none.
func (r Ranking) Rank(userID string) (int, bool) {
	if i, ok := r.byUser[userID]; ok && r.Standings[i].Rank > 0 {
		return r.Standings[i].Rank, true
	}
	return 0, false
}

// inScope selects the tasks counted for an interval. Recurring tasks always
// count, whatever their occurrences inside the interval.
func (c *Calculator) inScope(t *model.Task, iv Interval) bool {
	switch s := t.Schedule(c.loc).(type) {
	case model.FixedDate:
		return iv.ContainsDate(s.Date, c.loc)
	case model.Recurring:
		return true
	default:
		return false
	}
}

func (c *Calculator) tally(tasks []model.Task, userID string, iv Interval) (completed, total int) {
	for i := range tasks {
		t := &tasks[i]
		if !t.IsActive || !t.IsResponsible(userID) || !c.inScope(t, iv) {
			continue
		}
		total++
		if EffectiveStatus(t, userID) == model.StatusPublished {
			completed++
		}
	}
	return completed, total
}

// ScoreForUser is completed/total*5 over the user's active tasks in scope
// for iv, or 0 when the user has none.
func (c *Calculator) ScoreForUser(tasks []model.Task, userID string, iv Interval) float64 {
	return score(c.tally(tasks, userID, iv))
}

func score(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * MaxScore
}

// RankInfo scores every candidate and ranks them. Only scores of at least
// RankThreshold are eligible; users with equal scores share a rank, and only
// the three highest distinct eligible scores get ranks 1 to 3.
func (c *Calculator) RankInfo(tasks []model.Task, iv Interval, candidates []string) Ranking {
	r := Ranking{Interval: iv, byUser: make(map[string]int)}

	seen := make(map[string]bool, len(candidates))
	for _, uid := range candidates {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		completed, total := c.tally(tasks, uid, iv)
		r.Standings = append(r.Standings, Standing{
			UserID:    uid,
			Score:     score(completed, total),
			Completed: completed,
			Total:     total,
		})
	}

	sort.SliceStable(r.Standings, func(i, j int) bool {
		if r.Standings[i].Score != r.Standings[j].Score {
			return r.Standings[i].Score > r.Standings[j].Score
		}
		return r.Standings[i].UserID < r.Standings[j].UserID
	})

	var levels []float64
	for i := range r.Standings {
		st := &r.Standings[i]
		if st.Score >= RankThreshold {
			if len(levels) == 0 || levels[len(levels)-1] != st.Score {
				levels = append(levels, st.Score)
			}
			if len(levels) <= rankedLevels {
				st.Rank = len(levels)
				st.Medal = Medal(st.Rank)
			}
		}
		r.byUser[st.UserID] = i
	}

	return r
}
