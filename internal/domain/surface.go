package domain

// IndicatorMessage is the fixed text of the get-failure indicator.
const IndicatorMessage = "Error: wrong name"

// SurfaceSnapshot is a point-in-time copy of the observable UI state.
type SurfaceSnapshot struct {
	StatusText string `json:"status_text"`
	ResultText string `json:"result_text"`
	// Indicator is empty when no error indicator is shown.
	Indicator string `json:"indicator,omitempty"`
}

// IndicatorShown reports whether the error indicator is present.
func (s SurfaceSnapshot) IndicatorShown() bool { return s.Indicator != "" }
