package visual

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"storage-visual/internal/domain"
	"storage-visual/internal/usecase"
)

// runOpCmd invokes one controller operation asynchronously. ctx carries no
// deadline; the host answers in its own time and the call is cancelled only
// when the UI quits.
func runOpCmd(ctx context.Context, ctrl *usecase.Controller, kind domain.OperationKind, key, value string) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Invoke(ctx, domain.NewOperationRequest(kind, key, value))
		return OpResultMsg{Kind: kind, Result: res, Err: err}
	}
}
