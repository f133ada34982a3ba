package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"storage-visual/internal/domain"
)

func TestErrorIndicatorTransitions(t *testing.T) {
	var ind ErrorIndicator
	assert.Equal(t, IndicatorAbsent, ind.State())
	assert.Equal(t, "absent", ind.State().String())

	assert.False(t, ind.Clear())
	assert.True(t, ind.Show("first"))
	assert.False(t, ind.Show("second"))
	assert.Equal(t, "first", ind.Message())
	assert.Equal(t, "shown", ind.State().String())

	assert.True(t, ind.Clear())
	assert.Equal(t, "", ind.Message())
	assert.False(t, ind.Clear())
}

func TestSurfaceGetFailedClearsResult(t *testing.T) {
	s := NewSurface()
	assert.False(t, s.getSucceeded("old"))
	assert.Equal(t, "old", s.Snapshot().ResultText)

	assert.True(t, s.getFailed(domain.IndicatorMessage))
	assert.Equal(t, domain.SurfaceSnapshot{Indicator: domain.IndicatorMessage}, s.Snapshot())

	assert.False(t, s.getFailed(domain.IndicatorMessage))
	assert.True(t, s.getSucceeded("new"))
	assert.Equal(t, domain.SurfaceSnapshot{ResultText: "new"}, s.Snapshot())
}

func TestSurfaceStatusIndependentOfIndicator(t *testing.T) {
	s := NewSurface()
	s.setStatus("Allowed")
	s.getFailed(domain.IndicatorMessage)
	s.dismiss()
	assert.Equal(t, "Allowed", s.Snapshot().StatusText)
}

func TestSurfaceConcurrentAccess(t *testing.T) {
	s := NewSurface()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if (i+j)%2 == 0 {
					s.getFailed(domain.IndicatorMessage)
				} else {
					s.getSucceeded("v")
				}
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.IndicatorShown() {
		assert.Equal(t, "", snap.ResultText)
	} else {
		assert.Equal(t, "v", snap.ResultText)
	}
}

func TestPrivilegeGateWrapsFailure(t *testing.T) {
	svc := newFakeService()
	svc.status = domain.PrivilegeNotDeclared
	gate := NewPrivilegeGate(svc)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	status, err := gate.Check(ctx)
	assert.NoError(t, err)
	assert.Equal(t, domain.PrivilegeNotDeclared, status)

	svc.statusErr = domain.ErrTimeout
	_, err = gate.Check(ctx)
	assert.ErrorIs(t, err, domain.ErrUnexpected)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}
