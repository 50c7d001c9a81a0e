package managers

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"

	"github.com/horusctf/horus/internal/api"
)

var statusPriority = map[string]int{
	api.StatusActive:   0,
	api.StatusUpcoming: 1,
	api.StatusFinished: 2,
}

func competitionPriority(status string) int {
	if priority, ok := statusPriority[status]; ok {
		return priority
	}
	return len(statusPriority)
}

// SortCompetitions returns competitions ordered by status priority and
// then by start date descending.
//
// Unknown statuses are placed last. Input slice is not modified.
func SortCompetitions(competitions []api.Competition) []api.Competition {
	sorted := slices.Clone(competitions)
	slices.SortStableFunc(sorted, func(a, b api.Competition) int {
		pa, pb := competitionPriority(a.Status), competitionPriority(b.Status)
		if pa != pb {
			return pa - pb
		}
		return b.StartDate.Compare(a.StartDate.Time)
	})
	return sorted
}

// NormalizeID returns canonical form of entity id.
//
// Backend does not guarantee consistent casing of ids, so ids are
// trimmed and case-folded. Valid UUIDs are returned in canonical form.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return cases.Fold().String(id)
}

// SameID returns true if ids refer to the same entity.
func SameID(a, b string) bool {
	return NormalizeID(a) == NormalizeID(b)
}

// UniqueSolvedIDs returns distinct normalized exercise ids of solves in
// order of first appearance.
func UniqueSolvedIDs(solves []api.Solve) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, solve := range solves {
		id := NormalizeID(solve.ExerciseID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// CompetitionSolves returns solves that belong to competition.
func CompetitionSolves(solves []api.Solve, competitionID string) []api.Solve {
	var result []api.Solve
	for _, solve := range solves {
		if SameID(solve.CompetitionID, competitionID) {
			result = append(result, solve)
		}
	}
	return result
}

// CompetitionScore returns sum of awarded points of competition solves.
func CompetitionScore(solves []api.Solve, competitionID string) int {
	return TotalScore(CompetitionSolves(solves, competitionID))
}

// TotalScore returns sum of awarded points.
func TotalScore(solves []api.Solve) int {
	score := 0
	for _, solve := range solves {
		score += solve.PointsAwarded
	}
	return score
}

// NoRank is displayed when user is absent in scoreboard.
const NoRank = "-"

// RankOf returns displayed rank of user in scoreboard.
func RankOf(scoreboard []api.ScoreboardEntry, userID string) string {
	i := slices.IndexFunc(scoreboard, func(entry api.ScoreboardEntry) bool {
		return SameID(entry.UserID, userID)
	})
	if i < 0 {
		return NoRank
	}
	return strconv.Itoa(scoreboard[i].Rank)
}
