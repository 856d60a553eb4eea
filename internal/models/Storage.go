package models

const SnapshotVersion = 1

// Storage is the persistence envelope of the in-memory repository.
type Storage struct {
	Version     int           `json:"version"`
	Students    []*Student    `json:"students"`
	Contests    []*Contest    `json:"contests"`
	Submissions []*Submission `json:"submissions"`
	SyncLogs    []*SyncLog    `json:"sync_logs"`
}
