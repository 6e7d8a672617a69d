package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kalpem/internal/acquisition"
	"kalpem/pkg/contracts/domain"
)

func TestRefresherTicks(t *testing.T) {
	var calls atomic.Int32
	r := NewRefresher(RefreshFunc(func(ctx context.Context) error {
		if calls.Add(1) == 2 {
			return errors.New("remote down")
		}
		return nil
	}), 10*time.Millisecond, discardLogger())

	r.Start(context.Background())
	r.Start(context.Background())
	assert.True(t, r.Running())

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	r.Stop()
	assert.False(t, r.Running())
	stopped := calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())

	r.Stop()
}

func TestRefresherStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	r := NewRefresher(RefreshFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}), 10*time.Millisecond, discardLogger())

	r.Start(ctx)
	cancel()
	r.Stop()

	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}

func TestRefresherDisabled(t *testing.T) {
	r := NewRefresher(RefreshFunc(func(ctx context.Context) error { return nil }), 0, nil)
	r.Start(context.Background())
	assert.False(t, r.Running())
	r.Stop()
}

func TestRefresherDrivesDashboard(t *testing.T) {
	var calls atomic.Int32
	acq := acquirerFunc(func(ctx context.Context) (domain.RawTable, acquisition.Result) {
		calls.Add(1)
		return calendarTable(), acquisition.Result{Connected: true, Source: acquisition.SourceRemote}
	})
	svc := newService(t, acq)

	r := NewRefresher(ForDashboard(svc), 10*time.Millisecond, discardLogger())
	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool { return svc.Current().Version >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, svc.Current().Records.Len())
}
