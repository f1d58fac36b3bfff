package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/classmatch-api/internal/models"
)

// ComputeMatches ranks candidates by the number of courses they share with the
// reference user. Candidates sharing nothing, and the reference user itself, are
// dropped. The result is ordered by score descending, then name (case-insensitive).
func ComputeMatches(referenceID string, referenceCourses []string, candidates []models.User) []models.Match {
	matches := make([]models.Match, 0)
	if len(referenceCourses) == 0 {
		return matches
	}

	reference := make(map[string]struct{}, len(referenceCourses))
	for _, id := range referenceCourses {
		reference[id] = struct{}{}
	}

	for _, candidate := range candidates {
		if candidate.ID == referenceID {
			continue
		}
		shared := sharedCourses(reference, candidate.CourseIDs)
		if len(shared) == 0 {
			continue
		}
		matches = append(matches, models.Match{
			Candidate:       candidate,
			SharedCourseIDs: shared,
			Score:           len(shared),
		})
	}

	sortMatches(matches, models.MatchSortScore)
	return matches
}

// FilterAndSort narrows matches to those whose candidate name or major contains
// search (case-insensitive) and orders them. Any non-empty term filters, including
// whitespace; callers trim user input. The input slice is not modified.
func FilterAndSort(matches []models.Match, search string, sortBy models.MatchSort) []models.Match {
	term := strings.ToLower(search)
	filtered := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if term == "" ||
			strings.Contains(strings.ToLower(m.Candidate.Name), term) ||
			strings.Contains(strings.ToLower(m.Candidate.Major), term) {
			filtered = append(filtered, m)
		}
	}
	sortMatches(filtered, sortBy)
	return filtered
}

func sharedCourses(reference map[string]struct{}, courseIDs []string) []string {
	seen := make(map[string]struct{}, len(courseIDs))
	shared := make([]string, 0)
	for _, id := range courseIDs {
		if _, ok := reference[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		shared = append(shared, id)
	}
	sort.Strings(shared)
	return shared
}

// sortMatches applies a total order so repeated sorts are stable across calls;
// candidate id breaks any remaining tie.
func sortMatches(matches []models.Match, sortBy models.MatchSort) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if sortBy != models.MatchSortName && a.Score != b.Score {
			return a.Score > b.Score
		}
		an, bn := strings.ToLower(a.Candidate.Name), strings.ToLower(b.Candidate.Name)
		if an != bn {
			return an < bn
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}
