package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"productrag/internal/domain"
)

const (
	belowMarker = "below"
	usdMarker   = "usd"
)

// ErrNoPriceMarkers is the warning attached when a query carries no
// "below ... usd" phrase.
var ErrNoPriceMarkers = errors.New("no price ceiling in query")

// ParseWarning is attached when a price phrase is present but its amount
// cannot be read.
type ParseWarning struct {
	Fragment string
	Err      error
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("cannot read price ceiling %q: %v", w.Fragment, w.Err)
}

func (w *ParseWarning) Unwrap() error { return w.Err }

// ConstraintResult is the outcome of constraint extraction. Constraint is
// always usable; Warning explains why it fell back to no ceiling.
type ConstraintResult struct {
	Constraint domain.QueryConstraint
	Warning    error
}

// ExtractConstraint looks for a "below <amount> usd" price ceiling in query.
// The amount is the text between the first "below" and the first "usd" after
// it (or the rest of the query when no "usd" follows). Extraction never
// fails; unreadable amounts yield no ceiling and a warning.
func ExtractConstraint(query string) ConstraintResult {
	lower := strings.ToLower(query)
	if !strings.Contains(lower, belowMarker) || !strings.Contains(lower, usdMarker) {
		return ConstraintResult{Constraint: domain.NoConstraint(), Warning: ErrNoPriceMarkers}
	}
	_, rest, _ := strings.Cut(lower, belowMarker)
	fragment, _, _ := strings.Cut(rest, usdMarker)
	amount := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(fragment), "$", ""))

	v, err := strconv.ParseFloat(amount, 64)
	if err == nil && (math.IsNaN(v) || v < 0) {
		err = errors.New("not a valid price")
	}
	if err != nil {
		return ConstraintResult{
			Constraint: domain.NoConstraint(),
			Warning:    &ParseWarning{Fragment: strings.TrimSpace(fragment), Err: err},
		}
	}
	return ConstraintResult{Constraint: domain.QueryConstraint{MaxPrice: v}}
}
