package usecase

import (
	"sync"

	"storage-visual/internal/domain"
)

// Surface holds the observable UI state: status text, get result text and
// the error indicator.
//
// Every method is atomic, but overlapping operations are last-writer-wins:
// two concurrent gets may finish in either order and the later one decides
// the result text and indicator. Callers that need ordering must serialize
// their invocations.
type Surface struct {
	mu         sync.RWMutex
	statusText string
	resultText string
	indicator  ErrorIndicator
}

// NewSurface returns an empty surface with the indicator absent.
func NewSurface() *Surface {
	return &Surface{}
}

// Snapshot returns a copy of the current state.
func (s *Surface) Snapshot() domain.SurfaceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SurfaceSnapshot{
		StatusText: s.statusText,
		ResultText: s.resultText,
		Indicator:  s.indicator.Message(),
	}
}

// IndicatorState returns the indicator's current state.
func (s *Surface) IndicatorState() IndicatorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indicator.State()
}

func (s *Surface) setStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusText = text
}

// getSucceeded renders value and clears the indicator. Reports whether the
// indicator was cleared.
func (s *Surface) getSucceeded(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultText = value
	return s.indicator.Clear()
}

// getFailed shows the indicator and clears the result text, unless the
// indicator is already shown, in which case nothing changes.
func (s *Surface) getFailed(message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.indicator.Show(message) {
		return false
	}
	s.resultText = ""
	return true
}

func (s *Surface) dismiss() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicator.Clear()
}
