package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbookapp/openbook-library/internal/backup"
)

type fakeBackuper struct {
	mu        sync.Mutex
	creates   int
	pruneKeep []int
	createErr error
}

func (f *fakeBackuper) Create(ctx context.Context) (*backup.BackupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backup.BackupResult{Path: "/backups/latest.json"}, nil
}

func (f *fakeBackuper) Prune(ctx context.Context, keep int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneKeep = append(f.pruneKeep, keep)
	return 1, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("@daily"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestStart_Disabled(t *testing.T) {
	s := NewBackupScheduler(&fakeBackuper{}, "", 7, testLogger())

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.Enabled())
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewBackupScheduler(&fakeBackuper{}, "not a schedule", 7, testLogger())
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestStartStop(t *testing.T) {
	s := NewBackupScheduler(&fakeBackuper{}, "@every 1h", 7, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	next := s.NextRun()
	require.NotNil(t, next)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *next, time.Minute)

	cancel()
	require.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, s.NextRun())
}

func TestRunNow(t *testing.T) {
	fake := &fakeBackuper{}
	s := NewBackupScheduler(fake, "@daily", 3, testLogger())

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, []int{3}, fake.pruneKeep)

	last := s.LastRun()
	require.NotNil(t, last)
	assert.NoError(t, last.Err)
	assert.Equal(t, "/backups/latest.json", last.Path)
	assert.Equal(t, 1, last.Pruned)
}

func TestRunNow_CreateFails(t *testing.T) {
	fake := &fakeBackuper{createErr: errors.New("disk full")}
	s := NewBackupScheduler(fake, "@daily", 3, testLogger())

	err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Empty(t, fake.pruneKeep, "nothing is pruned after a failed backup")

	last := s.LastRun()
	require.NotNil(t, last)
	assert.EqualError(t, last.Err, "disk full")
}
