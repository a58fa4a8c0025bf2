package domain

import "sort"

// StudentRanking is a student's aggregated score and counters under the
// current filter, with a 1-based rank assigned after sorting.
type StudentRanking struct {
	Rank               int         `json:"rank"`
	Email              string      `json:"email"`
	Name               string      `json:"name"`
	ImageURL           string      `json:"image_url,omitempty"`
	TotalPoints        int         `json:"total_points"`
	EventsParticipated int         `json:"events_participated"`
	EventsWon          int         `json:"events_won"`
	FirstPlace         int         `json:"first_place"`
	SecondPlace        int         `json:"second_place"`
	ThirdPlace         int         `json:"third_place"`
	Wins               []WinRecord `json:"wins"`
}

// Layout selects how the consuming UI presents a ranking list
type Layout string

const (
	LayoutEmpty  Layout = "empty"
	LayoutSingle Layout = "single"
	LayoutDuo    Layout = "duo"
	LayoutPodium Layout = "podium"
)

// LayoutFor returns the presentation layout for a ranking list of n
// entries: empty state, a lone top-performer card, a two-place podium,
// or the full three-place podium with a list below.
func LayoutFor(n int) Layout {
	switch {
	case n == 0:
		return LayoutEmpty
	case n == 1:
		return LayoutSingle
	case n == 2:
		return LayoutDuo
	default:
		return LayoutPodium
	}
}

// placement returns the record's stored placement, re-deriving it from
// the raw position label for records imported without one.
func placement(r WinRecord) Placement {
	if r.Placement.Valid() {
		return r.Placement
	}
	return ClassifyPosition(r.Position)
}

// Aggregate builds the unfiltered ranking list from the full set of win
// records. Each distinct winner email appears exactly once in the
// output; the first record seen for an email fixes the displayed name
// and image. The result is fully re-derived on every call.
func Aggregate(records []WinRecord) []StudentRanking {
	return aggregate(records, FilterOptions{})
}

// Rank produces the ranking list restricted to wins matching the given
// filters. Students with no matching wins are dropped entirely; totals
// and counters for the rest are recomputed from only the matching wins,
// then the list is re-sorted and re-ranked from 1. Category and year
// predicates are intersected when both are active.
func Rank(records []WinRecord, opts FilterOptions) []StudentRanking {
	return aggregate(records, opts)
}

func aggregate(records []WinRecord, opts FilterOptions) []StudentRanking {
	byEmail := make(map[string]int)
	rankings := make([]StudentRanking, 0)

	for _, r := range records {
		if !opts.Matches(r) {
			continue
		}

		idx, ok := byEmail[r.WinnerEmail]
		if !ok {
			idx = len(rankings)
			byEmail[r.WinnerEmail] = idx
			rankings = append(rankings, StudentRanking{
				Email:    r.WinnerEmail,
				Name:     r.DisplayName(),
				ImageURL: r.WinnerImageURL,
			})
		}

		s := &rankings[idx]
		p := placement(r)
		s.TotalPoints += p.Points()
		s.EventsParticipated++
		s.Wins = append(s.Wins, r)

		switch p {
		case PlacementFirst:
			s.FirstPlace++
			s.EventsWon++
		case PlacementSecond:
			s.SecondPlace++
		case PlacementThird:
			s.ThirdPlace++
		}
	}

	// Stable sort keeps input order among equal point totals
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].TotalPoints > rankings[j].TotalPoints
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	return rankings
}

// FindStudent returns the ranking entry for the given email, or nil if
// the student has no wins under the current filter. The email is
// compared exactly, matching the aggregation key.
func FindStudent(rankings []StudentRanking, email string) *StudentRanking {
	for i := range rankings {
		if rankings[i].Email == email {
			return &rankings[i]
		}
	}
	return nil
}
