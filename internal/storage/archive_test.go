package storage

import (
	"cftracker/internal/models"
	"cftracker/internal/testutil"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T, retention time.Duration) *SyncLogArchive {
	t.Helper()
	return NewSyncLogArchive(filepath.Join(t.TempDir(), "archive"), retention, &testutil.MockCompressor{}, &testutil.MockLogger{})
}

func logsAt(studentID string, base time.Time, n int) []*models.SyncLog {
	out := make([]*models.SyncLog, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &models.SyncLog{
			ID:        fmt.Sprintf("%s-%d", studentID, i),
			StudentID: studentID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestSyncLogArchive_EvictIsBufferedUntilFlush(t *testing.T) {
	a := newTestArchive(t, 0)
	a.Evict("s1", logsAt("s1", time.Now(), 2))

	_, err := os.Stat(a.path("s1"))
	assert.True(t, os.IsNotExist(err))

	pending, err := a.Load("s1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "s1-1", pending[0].ID)

	require.NoError(t, a.Flush())
	_, err = os.Stat(a.path("s1"))
	assert.NoError(t, err)
}

func TestSyncLogArchive_FlushMergesWithDisk(t *testing.T) {
	a := newTestArchive(t, 0)
	base := time.Now()
	a.Evict("s1", logsAt("s1", base, 2))
	require.NoError(t, a.Flush())

	a.Evict("s1", []*models.SyncLog{{ID: "late", StudentID: "s1", Timestamp: base.Add(time.Hour)}})
	require.NoError(t, a.Flush())

	reopened := NewSyncLogArchive(a.dir, 0, &testutil.MockCompressor{}, &testutil.MockLogger{})
	require.NoError(t, reopened.RestoreIndex())

	logs, err := reopened.Load("s1")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "late", logs[0].ID)
	assert.Equal(t, "s1-0", logs[2].ID)
}

func TestSyncLogArchive_RetentionDropsOld(t *testing.T) {
	a := newTestArchive(t, 24*time.Hour)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	a.Evict("s1", []*models.SyncLog{
		{ID: "old", StudentID: "s1", Timestamp: now.Add(-48 * time.Hour)},
		{ID: "new", StudentID: "s1", Timestamp: now.Add(-time.Hour)},
	})
	require.NoError(t, a.Flush())

	logs, err := a.Load("s1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "new", logs[0].ID)

	now = now.Add(48 * time.Hour)
	require.NoError(t, a.Flush())
	_, err = os.Stat(a.path("s1"))
	assert.True(t, os.IsNotExist(err))
}

func TestSyncLogArchive_UnknownStudent(t *testing.T) {
	a := newTestArchive(t, 0)
	logs, err := a.Load("nobody")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSyncLogArchive_FlushCompressorError(t *testing.T) {
	a := NewSyncLogArchive(t.TempDir(), 0, &testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) { return nil, errors.New("boom") },
	}, &testutil.MockLogger{})
	a.Evict("s1", logsAt("s1", time.Now(), 1))

	assert.Error(t, a.Flush())

	logs, _ := a.Load("s1")
	assert.Len(t, logs, 1, "pending logs survive a failed flush")
}

func TestSyncLogArchive_CorruptFileIsLogged(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1"+archiveSuffix), []byte("garbage"), 0644))
	logger := &testutil.MockLogger{}
	a := NewSyncLogArchive(dir, 0, &testutil.MockCompressor{}, logger)
	require.NoError(t, a.RestoreIndex())

	logs, err := a.Load("s1")
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.True(t, logger.Contains("error", "Failed to parse archive"))
}

func TestSyncLogArchive_FlushKeepsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s1"+archiveSuffix)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	logger := &testutil.MockLogger{}
	a := NewSyncLogArchive(dir, 0, &testutil.MockCompressor{}, logger)
	require.NoError(t, a.RestoreIndex())
	a.Evict("s1", logsAt("s1", time.Now(), 2))

	require.NoError(t, a.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(data))
	assert.True(t, logger.Contains("warn", "Skipping archive flush"))

	logs, err := a.Load("s1")
	require.NoError(t, err)
	assert.Len(t, logs, 2, "pending logs stay buffered")
}

func TestSyncLogArchive_Drop(t *testing.T) {
	a := newTestArchive(t, 0)
	a.Evict("s1", logsAt("s1", time.Now(), 2))
	require.NoError(t, a.Flush())
	a.Evict("s1", logsAt("s1", time.Now(), 1))
	require.FileExists(t, a.path("s1"))

	a.Drop("s1")

	assert.NoFileExists(t, a.path("s1"))
	logs, err := a.Load("s1")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSyncLogArchive_DropLogsRemoveFailure(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory in place of the file cannot be removed
	path := filepath.Join(dir, "s1"+archiveSuffix)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0755))
	logger := &testutil.MockLogger{}
	a := NewSyncLogArchive(dir, 0, &testutil.MockCompressor{}, logger)

	a.Drop("s1")

	assert.True(t, logger.Contains("error", "Failed to remove archive"))
}

func TestMemoryRepository_WithFileArchive(t *testing.T) {
	a := newTestArchive(t, 0)
	repo := NewMemoryRepository(1, a)
	s := newStudent(t, repo, "arch")
	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AppendSyncLog(ctx, &models.SyncLog{StudentID: s.ID, Timestamp: base.Add(time.Duration(i) * time.Second)}))
	}
	require.NoError(t, a.Flush())

	logs, err := repo.ListSyncLogs(ctx, s.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].Timestamp.After(logs[2].Timestamp))
}
