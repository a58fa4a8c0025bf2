package domain

import "strings"

// Placement is the closed classification of a free-text position label.
// It is assigned once when a win is recorded; ClassifyPosition remains
// available for imports of legacy data that only carry the raw label.
type Placement string

const (
	PlacementFirst  Placement = "first"
	PlacementSecond Placement = "second"
	PlacementThird  Placement = "third"
	PlacementOther  Placement = "other"
)

// Points awarded per placement for leaderboard weighting
const (
	PointsFirst  = 100
	PointsSecond = 75
	PointsThird  = 50
	PointsOther  = 25
)

// ClassifyPosition maps a free-text position label (e.g. "1st Place",
// "Runner Up", "3") to a Placement. Matching is case-insensitive and
// first match wins. Bare-digit labels are compared after trimming
// surrounding whitespace, so " 2 " classifies the same as "2".
func ClassifyPosition(position string) Placement {
	p := strings.ToLower(position)
	digit := strings.TrimSpace(p)

	switch {
	case strings.Contains(p, "1st"), strings.Contains(p, "first"),
		digit == "1", strings.Contains(p, "winner"):
		return PlacementFirst
	case strings.Contains(p, "2nd"), strings.Contains(p, "second"),
		digit == "2", strings.Contains(p, "runner"):
		return PlacementSecond
	case strings.Contains(p, "3rd"), strings.Contains(p, "third"),
		digit == "3":
		return PlacementThird
	default:
		return PlacementOther
	}
}

// Points returns the score a win with this placement contributes.
// Unknown placements score as PlacementOther, so every win always
// contributes exactly one score.
func (p Placement) Points() int {
	switch p {
	case PlacementFirst:
		return PointsFirst
	case PlacementSecond:
		return PointsSecond
	case PlacementThird:
		return PointsThird
	default:
		return PointsOther
	}
}

// Valid reports whether p is one of the four known placements
func (p Placement) Valid() bool {
	switch p {
	case PlacementFirst, PlacementSecond, PlacementThird, PlacementOther:
		return true
	}
	return false
}
