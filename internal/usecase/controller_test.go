package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-visual/internal/domain"
)

func newTestController(svc domain.StorageService, opts ...ControllerOption) *Controller {
	return NewController(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func TestReportStatusRendersEveryStatus(t *testing.T) {
	statuses := []domain.PrivilegeStatus{
		domain.PrivilegeAllowed,
		domain.PrivilegeDisallowed,
		domain.PrivilegePendingConsent,
		domain.PrivilegeNotDeclared,
		domain.PrivilegeNotSupported,
		domain.PrivilegeDisabledByAdmin,
	}
	for _, status := range statuses {
		t.Run(status.String(), func(t *testing.T) {
			svc := newFakeService()
			svc.status = status
			c := newTestController(svc)

			text, err := c.ReportStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, status.String(), text)
			assert.Equal(t, status.String(), c.Surface().Snapshot().StatusText)
			assert.Zero(t, svc.storageCalls())
		})
	}
}

func TestReportStatusFailureLeavesTextUnchanged(t *testing.T) {
	svc := newFakeService()
	c := newTestController(svc)

	_, err := c.ReportStatus(context.Background())
	require.NoError(t, err)

	cause := errors.New("host gone")
	svc.statusErr = cause
	_, err = c.ReportStatus(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnexpected)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Allowed", c.Surface().Snapshot().StatusText)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	svc := newFakeService()
	c := newTestController(svc)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "color", "blue"))
	res, err := c.Get(ctx, "color")
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "blue", res.Value)
	snap := c.Surface().Snapshot()
	assert.Equal(t, "blue", snap.ResultText)
	assert.False(t, snap.IndicatorShown())
}

func TestGetEmptyValueRendersEmpty(t *testing.T) {
	svc := newFakeService()
	c := newTestController(svc)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "x"))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", ""))

	res, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "", c.Surface().Snapshot().ResultText)
}

func TestGetMissingKeyShowsIndicatorOnce(t *testing.T) {
	svc := newFakeService()
	bus := &recordingBus{}
	c := newTestController(svc, WithEventBus(bus))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "present", "v"))
	_, err := c.Get(ctx, "present")
	require.NoError(t, err)

	res, err := c.Get(ctx, "missing")
	require.NoError(t, err, "get failures are recovered locally")
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.NotEmpty(t, res.Reason)

	snap := c.Surface().Snapshot()
	assert.Equal(t, domain.IndicatorMessage, snap.Indicator)
	assert.Equal(t, "", snap.ResultText, "stale value must be cleared")

	surfaceEvents := len(bus.ofType(domain.EventSurfaceChanged))

	res, err = c.Get(ctx, "still-missing")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, IndicatorShown, c.Surface().IndicatorState())
	assert.Equal(t, snap, c.Surface().Snapshot())
	assert.Len(t, bus.ofType(domain.EventSurfaceChanged), surfaceEvents, "second failure changes nothing")
}

func TestGetSuccessClearsIndicator(t *testing.T) {
	svc := newFakeService()
	c := newTestController(svc)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, IndicatorShown, c.Surface().IndicatorState())

	require.NoError(t, c.Set(ctx, "k", "v"))
	_, err = c.Get(ctx, "k")
	require.NoError(t, err)

	snap := c.Surface().Snapshot()
	assert.Equal(t, "v", snap.ResultText)
	assert.Equal(t, "", snap.Indicator)
	assert.Equal(t, IndicatorAbsent, c.Surface().IndicatorState())
}

func TestDismissErrorIdempotent(t *testing.T) {
	svc := newFakeService()
	bus := &recordingBus{}
	c := newTestController(svc, WithEventBus(bus))
	ctx := context.Background()

	c.DismissError(ctx)
	assert.Empty(t, bus.ofType(domain.EventSurfaceChanged), "dismiss with nothing shown is silent")

	_, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	before := len(bus.ofType(domain.EventSurfaceChanged))
	statusCalls := svc.statusCalls

	c.DismissError(ctx)
	assert.Equal(t, IndicatorAbsent, c.Surface().IndicatorState())
	assert.Len(t, bus.ofType(domain.EventSurfaceChanged), before+1)

	c.DismissError(ctx)
	assert.Len(t, bus.ofType(domain.EventSurfaceChanged), before+1)
	assert.Equal(t, statusCalls, svc.statusCalls, "dismiss never consults the host")
}

func TestQuietDenyNeverTouchesStorage(t *testing.T) {
	denied := []domain.PrivilegeStatus{
		domain.PrivilegeDisallowed,
		domain.PrivilegePendingConsent,
		domain.PrivilegeNotDeclared,
		domain.PrivilegeNotSupported,
		domain.PrivilegeDisabledByAdmin,
	}
	for _, status := range denied {
		t.Run(status.String(), func(t *testing.T) {
			svc := newFakeService()
			svc.data["k"] = "kept"
			svc.status = status
			c := newTestController(svc)
			ctx := context.Background()
			before := c.Surface().Snapshot()

			res, err := c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeDenied, res.Outcome)

			require.NoError(t, c.Set(ctx, "k", "changed"))
			require.NoError(t, c.Remove(ctx, "k"))

			assert.Zero(t, svc.storageCalls())
			assert.Equal(t, 3, svc.statusCalls)
			assert.Equal(t, before, c.Surface().Snapshot())
			assert.Equal(t, "kept", svc.data["k"])
		})
	}
}

func TestPrivilegeRecheckedEveryOperation(t *testing.T) {
	svc := newFakeService()
	c := newTestController(svc)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	svc.setStatus(domain.PrivilegeDisallowed)

	res, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDenied, res.Outcome)
	assert.Equal(t, 1, svc.setCalls)
	assert.Zero(t, svc.getCalls)

	svc.setStatus(domain.PrivilegeAllowed)
	res, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", res.Value)
	assert.Equal(t, 3, svc.statusCalls)
}

func TestRemoveThenGetShowsIndicator(t *testing.T) {
	svc := newFakeService()
	c := newTestController(svc)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	require.NoError(t, c.Remove(ctx, "k"))
	res, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, IndicatorShown, c.Surface().IndicatorState())
}

func TestStatusFailureDuringGetIsUnexpected(t *testing.T) {
	svc := newFakeService()
	svc.statusErr = errors.New("ipc closed")
	c := newTestController(svc)

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnexpected)
	assert.Equal(t, IndicatorAbsent, c.Surface().IndicatorState(), "status failures never show the get indicator")
	assert.Zero(t, svc.storageCalls())
}

func TestWriteFailuresAreUnexpected(t *testing.T) {
	cause := errors.New("disk full")

	t.Run("set", func(t *testing.T) {
		svc := newFakeService()
		svc.setErr = cause
		c := newTestController(svc)
		before := c.Surface().Snapshot()

		err := c.Set(context.Background(), "k", "v")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnexpected)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, domain.CodeUnexpected, domain.ErrorCodeOf(err))
		assert.Equal(t, before, c.Surface().Snapshot())
	})

	t.Run("remove", func(t *testing.T) {
		svc := newFakeService()
		svc.removeErr = cause
		c := newTestController(svc)

		err := c.Remove(context.Background(), "k")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnexpected)
		assert.ErrorIs(t, err, cause)
	})
}

func TestInvokeUnknownKind(t *testing.T) {
	svc := newFakeService()
	c := newTestController(svc)

	_, err := c.Invoke(context.Background(), domain.OperationRequest{ID: "x", Kind: "rename"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, svc.statusCalls)
}

func TestEventsPublished(t *testing.T) {
	svc := newFakeService()
	bus := &recordingBus{}
	c := newTestController(svc, WithEventBus(bus))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	svc.setErr = errors.New("boom")
	require.Error(t, c.Set(ctx, "k", "w"))

	done := bus.ofType(domain.EventOperationDone)
	require.Len(t, done, 1)
	var res domain.OperationResult
	require.NoError(t, json.Unmarshal(done[0].Payload, &res))
	assert.Equal(t, domain.OpSet, res.Kind)
	assert.Equal(t, domain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, done[0].RequestID, res.RequestID)

	failed := bus.ofType(domain.EventOperationError)
	require.Len(t, failed, 1)
	var payload domain.OperationErrorPayload
	require.NoError(t, json.Unmarshal(failed[0].Payload, &payload))
	assert.Equal(t, domain.OpSet, payload.Kind)
	assert.Equal(t, "k", payload.Key)
	assert.Equal(t, domain.CodeUnexpected, payload.Code)
}

func TestSharedSurface(t *testing.T) {
	surface := NewSurface()
	c := newTestController(newFakeService(), WithSurface(surface))
	assert.Same(t, surface, c.Surface())
}
