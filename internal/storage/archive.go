package storage

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const archiveSuffix = ".logs.zst"

// ArchiveFile is the on-disk format of one student's archived sync logs.
type ArchiveFile struct {
	Logs []*models.SyncLog `json:"logs"`
}

// SyncLogArchive keeps sync logs evicted from the hot set on disk, one
// compressed file per student. Evict only buffers; Flush does the I/O.
type SyncLogArchive struct {
	mu         sync.Mutex
	dir        string
	index      map[string]struct{}          // students with a file on disk
	pending    map[string][]*models.SyncLog // not yet flushed
	loaded     map[string]*ArchiveFile      // cached files
	retention  time.Duration
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	now        func() time.Time
}

func NewSyncLogArchive(dir string, retention time.Duration, compressor interfaces.CompressorInterface, logger providers.Logger) *SyncLogArchive {
	return &SyncLogArchive{
		dir:        dir,
		index:      make(map[string]struct{}),
		pending:    make(map[string][]*models.SyncLog),
		loaded:     make(map[string]*ArchiveFile),
		retention:  retention,
		compressor: compressor,
		logger:     logger,
		now:        time.Now,
	}
}

func (a *SyncLogArchive) Evict(studentID string, logs []*models.SyncLog) {
	if len(logs) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[studentID] = append(a.pending[studentID], logs...)
}

// Load returns archived logs for a student, newest first.
func (a *SyncLogArchive) Load(studentID string) ([]*models.SyncLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var all []*models.SyncLog
	if _, ok := a.index[studentID]; ok {
		if f, err := a.getOrLoad(studentID); err == nil && f != nil {
			all = append(all, f.Logs...)
		}
	}
	all = append(all, a.pending[studentID]...)

	out := make([]*models.SyncLog, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Flush merges pending logs into the archive files and drops entries older
// than the retention window. A file that cannot be read is left untouched and
// its pending logs stay buffered.
func (a *SyncLogArchive) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	students := make(map[string]struct{}, len(a.pending))
	for id := range a.pending {
		students[id] = struct{}{}
	}
	if a.retention > 0 {
		for id := range a.index {
			students[id] = struct{}{}
		}
	}

	for id := range students {
		f, err := a.getOrLoad(id)
		if err != nil {
			a.logger.Warnf(providers.TypeApp, "Skipping archive flush for %s: %s", id, err)
			continue
		}
		if f == nil {
			f = &ArchiveFile{}
		}
		merged := append(append([]*models.SyncLog(nil), f.Logs...), a.pending[id]...)

		if a.retention > 0 {
			cutoff := a.now().Add(-a.retention)
			kept := merged[:0]
			for _, l := range merged {
				if !l.Timestamp.Before(cutoff) {
					kept = append(kept, l)
				}
			}
			merged = kept
		}
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })

		if len(merged) > 0 {
			next := &ArchiveFile{Logs: merged}
			if err := a.write(id, next); err != nil {
				return err
			}
			a.loaded[id] = next
			a.index[id] = struct{}{}
		} else {
			a.remove(id)
		}
		delete(a.pending, id)
	}
	return nil
}

// Drop forgets everything archived for a student, on disk and in memory.
func (a *SyncLogArchive) Drop(studentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.pending, studentID)
	a.remove(studentID)
}

// remove must be called with a.mu held.
func (a *SyncLogArchive) remove(studentID string) {
	if err := os.Remove(a.path(studentID)); err != nil && !os.IsNotExist(err) {
		a.logger.Errorf(providers.TypeApp, "Failed to remove archive %s: %s", a.path(studentID), err)
	}
	delete(a.loaded, studentID)
	delete(a.index, studentID)
}

// RestoreIndex scans the archive directory. Called once at startup.
func (a *SyncLogArchive) RestoreIndex() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(a.dir, "*"+archiveSuffix))
	if err != nil {
		return err
	}
	for _, file := range files {
		a.index[strings.TrimSuffix(filepath.Base(file), archiveSuffix)] = struct{}{}
	}
	return nil
}

// getOrLoad must be called with a.mu held. A missing file yields nil
// without error.
func (a *SyncLogArchive) getOrLoad(studentID string) (*ArchiveFile, error) {
	if f, ok := a.loaded[studentID]; ok {
		return f, nil
	}
	f, err := a.read(studentID)
	if err != nil {
		return nil, err
	}
	if f != nil {
		a.loaded[studentID] = f
	}
	return f, nil
}

func (a *SyncLogArchive) read(studentID string) (*ArchiveFile, error) {
	path := a.path(studentID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		a.logger.Errorf(providers.TypeApp, "Failed to read archive %s: %s", path, err)
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	raw, err := a.compressor.Decompress(data)
	if err != nil {
		a.logger.Errorf(providers.TypeApp, "Failed to decompress archive %s: %s", path, err)
		return nil, fmt.Errorf("decompress archive %s: %w", path, err)
	}
	var f ArchiveFile
	if err := json.Unmarshal(raw, &f); err != nil {
		a.logger.Errorf(providers.TypeApp, "Failed to parse archive %s: %s", path, err)
		return nil, fmt.Errorf("parse archive %s: %w", path, err)
	}
	return &f, nil
}

func (a *SyncLogArchive) write(studentID string, f *ArchiveFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	compressed, err := a.compressor.Compress(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return err
	}
	path := a.path(studentID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (a *SyncLogArchive) path(studentID string) string {
	return filepath.Join(a.dir, studentID+archiveSuffix)
}
