package service

import (
	"math"
	"sort"
	"time"

	"contest_judge/internal/domain/model"
)

type standingAcc struct {
	entry     model.LeaderboardEntry
	bestScore map[string]int
	attempts  map[string]int
	solved    map[string]bool
}

// BuildStandings ranks users over the given submissions. Only the first
// accepted submission of a problem counts toward problems_solved and
// total_time, and a problem's attempt counter stops once it is solved.
func BuildStandings(subs []model.Submission) []model.LeaderboardEntry {
	ordered := make([]model.Submission, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	byUser := map[string]*standingAcc{}
	var order []string
	for _, s := range ordered {
		acc, ok := byUser[s.UserID]
		if !ok {
			acc = &standingAcc{
				entry:     model.LeaderboardEntry{UserID: s.UserID, Username: s.Username},
				bestScore: map[string]int{},
				attempts:  map[string]int{},
				solved:    map[string]bool{},
			}
			byUser[s.UserID] = acc
			order = append(order, s.UserID)
		}

		acc.entry.TotalSubmissions++
		switch {
		case s.Status == model.StatusAccepted:
			acc.entry.AcceptedSubmissions++
		case s.Status.IsTerminal():
			acc.entry.WrongSubmissions++
		}

		if best, seen := acc.bestScore[s.ProblemID]; !seen || s.Score > best {
			acc.bestScore[s.ProblemID] = s.Score
		}

		if acc.solved[s.ProblemID] {
			continue
		}
		acc.attempts[s.ProblemID]++
		if s.Status == model.StatusAccepted {
			acc.solved[s.ProblemID] = true
			acc.entry.ProblemsSolved++
			if s.ExecutionTime != nil {
				acc.entry.TotalTime += *s.ExecutionTime
			}
		}
	}

	entries := make([]model.LeaderboardEntry, 0, len(order))
	for _, userID := range order {
		acc := byUser[userID]
		for _, best := range acc.bestScore {
			acc.entry.TotalScore += best
		}
		for _, n := range acc.attempts {
			acc.entry.TotalAttempts += n
		}
		if acc.entry.ProblemsSolved > 0 {
			avg := float64(acc.entry.TotalAttempts) / float64(acc.entry.ProblemsSolved)
			acc.entry.AverageAttemptsPerProblem = math.Round(avg*100) / 100
		}
		entries = append(entries, acc.entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.AcceptedSubmissions != b.AcceptedSubmissions {
			return a.AcceptedSubmissions > b.AcceptedSubmissions
		}
		if a.TotalTime != b.TotalTime {
			return a.TotalTime < b.TotalTime
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// ComputeLeaderboardRow derives the persisted standing of one user in a
// contest. ok is false when the user has no submissions there.
func ComputeLeaderboardRow(contest *model.Contest, userID string, subs []model.Submission) (row *model.LeaderboardRow, ok bool) {
	if len(subs) == 0 {
		return nil, false
	}

	best := map[string]int{}
	firstAccepted := map[string]time.Time{}
	var last time.Time
	for _, s := range subs {
		if cur, seen := best[s.ProblemID]; !seen || s.Score > cur {
			best[s.ProblemID] = s.Score
		}
		if s.Status == model.StatusAccepted {
			if t, seen := firstAccepted[s.ProblemID]; !seen || s.SubmittedAt.Before(t) {
				firstAccepted[s.ProblemID] = s.SubmittedAt
			}
		}
		if s.SubmittedAt.After(last) {
			last = s.SubmittedAt
		}
	}

	row = &model.LeaderboardRow{
		ContestID:          contest.ID,
		UserID:             userID,
		Username:           subs[0].Username,
		ProblemsSolved:     len(firstAccepted),
		LastSubmissionTime: last,
	}
	for _, score := range best {
		row.Score += score
	}
	for _, at := range firstAccepted {
		if minutes := int(at.Sub(contest.StartTime).Minutes()); minutes > 0 {
			row.Penalty += minutes
		}
	}
	return row, true
}
