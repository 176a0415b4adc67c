package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

type fakeRefresher struct {
	mu         sync.Mutex
	inProgress bool
	started    int
}

func (f *fakeRefresher) InProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inProgress
}

func (f *fakeRefresher) StartRefresh(context.Context) *dashboard.RefreshSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return &dashboard.RefreshSession{Kind: dashboard.KindRefresh}
}

type fakeHistory struct {
	calls int
	err   error
}

func (f *fakeHistory) RefreshTransactionHistory(context.Context) error {
	f.calls++
	return f.err
}

func TestRefreshTick_SkipsWhileInProgress(t *testing.T) {
	r := &fakeRefresher{}
	s := New(context.Background(), r, nil)

	s.RefreshTick()
	assert.Equal(t, 1, r.started)

	r.inProgress = true
	s.RefreshTick()
	assert.Equal(t, 1, r.started)
}

func TestHistoryTick_LogsFailure(t *testing.T) {
	h := &fakeHistory{err: errors.New("rpc down")}
	s := New(context.Background(), &fakeRefresher{}, h)

	assert.NotPanics(t, s.HistoryTick)
	assert.Equal(t, 1, h.calls)
}

func TestRegisterAll(t *testing.T) {
	s := New(context.Background(), &fakeRefresher{}, &fakeHistory{})

	require.NoError(t, s.RegisterAll(Config{Refresh: "*/30 * * * * *", History: "0 */5 * * * *"}))
	assert.Len(t, s.Cron.Entries(), 2)

	err := New(context.Background(), &fakeRefresher{}, nil).RegisterAll(Config{Refresh: "every now and then"})
	require.Error(t, err)
}

func TestRegisterAll_EmptyDisablesJobs(t *testing.T) {
	s := New(context.Background(), &fakeRefresher{}, nil)

	require.NoError(t, s.RegisterAll(Config{History: "0 * * * * *"}))
	assert.Empty(t, s.Cron.Entries(), "history job needs a history refresher")
}

func TestStartStop(t *testing.T) {
	s := New(context.Background(), &fakeRefresher{}, nil)
	require.NoError(t, s.RegisterAll(Config{Refresh: "0 0 0 1 1 *"}))

	s.Start()
	s.Stop()
}
