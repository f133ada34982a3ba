package usecase

// IndicatorState is the lifecycle state of the get-failure indicator.
type IndicatorState int

const (
	IndicatorAbsent IndicatorState = iota
	IndicatorShown
)

func (s IndicatorState) String() string {
	if s == IndicatorShown {
		return "shown"
	}
	return "absent"
}

// ErrorIndicator is the single error element scoped to the get result area.
// There is never more than one; Show on a shown indicator is a no-op.
type ErrorIndicator struct {
	state   IndicatorState
	message string
}

// Show transitions Absent to Shown and reports whether it did.
func (i *ErrorIndicator) Show(message string) bool {
	if i.state == IndicatorShown {
		return false
	}
	i.state = IndicatorShown
	i.message = message
	return true
}

// Clear transitions Shown to Absent and reports whether it did.
func (i *ErrorIndicator) Clear() bool {
	if i.state == IndicatorAbsent {
		return false
	}
	i.state = IndicatorAbsent
	i.message = ""
	return true
}

// State returns the current state.
func (i *ErrorIndicator) State() IndicatorState { return i.state }

// Message returns the shown message, or "" when absent.
func (i *ErrorIndicator) Message() string { return i.message }
