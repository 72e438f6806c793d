package domain

import "fmt"

type WarningCode string

const (
	WarningBasketMismatch   WarningCode = "basket_mismatch"
	WarningFinalExceeds     WarningCode = "final_exceeds_initial"
	WarningAboveSoftCeiling WarningCode = "above_soft_ceiling"
	WarningSequenceGap      WarningCode = "sequence_gap"
)

// DataIntegrityWarning is advisory. It is shown to the operator and never blocks computation or persistence.
type DataIntegrityWarning struct {
	Code    WarningCode
	Message string
}

func (w DataIntegrityWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

func (s Session) Warnings() []DataIntegrityWarning {
	out := []DataIntegrityWarning{}
	if total := s.Metadata.BasketTotal(); total != s.Metadata.InitialCount {
		out = append(out, DataIntegrityWarning{
			Code:    WarningBasketMismatch,
			Message: fmt.Sprintf("baskets hold %d products, initial count is %d", total, s.Metadata.InitialCount),
		})
	}
	if s.Metadata.FinalCount > s.Metadata.InitialCount {
		out = append(out, DataIntegrityWarning{
			Code:    WarningFinalExceeds,
			Message: fmt.Sprintf("final count %d exceeds initial count %d", s.Metadata.FinalCount, s.Metadata.InitialCount),
		})
	}
	prev := -1
	for i, r := range s.Readings {
		if r.TemperatureC > SoftCeilingC {
			out = append(out, DataIntegrityWarning{
				Code:    WarningAboveSoftCeiling,
				Message: fmt.Sprintf("reading %d at %.1f C is above %.0f C", r.SequenceIndex, r.TemperatureC, SoftCeilingC),
			})
		}
		if i > 0 && r.SequenceIndex > prev+1 {
			out = append(out, DataIntegrityWarning{
				Code:    WarningSequenceGap,
				Message: fmt.Sprintf("%d sample(s) missing between %d and %d", r.SequenceIndex-prev-1, prev, r.SequenceIndex),
			})
		}
		prev = r.SequenceIndex
	}
	return out
}
