package models

// Match is a transient pairing of the reference user with a candidate.
// Score always equals len(SharedCourseIDs).
type Match struct {
	Candidate       User     `json:"candidate"`
	SharedCourseIDs []string `json:"shared_course_ids"`
	Score           int      `json:"score"`
}

// MatchSort selects the ordering applied to a match list.
type MatchSort string

const (
	MatchSortScore MatchSort = "score"
	MatchSortName  MatchSort = "name"
)

// ParseMatchSort maps query values onto a MatchSort, defaulting to score.
func ParseMatchSort(raw string) MatchSort {
	switch raw {
	case string(MatchSortName):
		return MatchSortName
	default:
		return MatchSortScore
	}
}

// MatchQuery holds the Matches page filters.
type MatchQuery struct {
	Search string
	SortBy MatchSort
	Limit  int
}
