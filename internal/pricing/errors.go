package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidComponentSelection marks a selection that cannot be priced. It is
	// a recoverable validation signal: the line is priced at zero and excluded.
	ErrInvalidComponentSelection = errors.New("pricing: invalid component selection")
	// ErrEmptyQuote is returned by RoundTotal for totals that are not positive.
	ErrEmptyQuote = errors.New("pricing: empty quote")
	// ErrInvalidPolicy is returned for unusable tenant pricing policies.
	ErrInvalidPolicy = errors.New("pricing: invalid tenant pricing policy")
)

// InvalidSelectionError names the rejected component and the reason.
type InvalidSelectionError struct {
	Index  int
	Kind   Kind
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("pricing: invalid %s selection #%d: %s", e.Kind, e.Index, e.Reason)
	}
	return fmt.Sprintf("pricing: invalid %s selection: %s", e.Kind, e.Reason)
}

// Is matches ErrInvalidComponentSelection.
func (e *InvalidSelectionError) Is(target error) bool {
	return target == ErrInvalidComponentSelection
}
