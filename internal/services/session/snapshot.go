package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"salonrecon/internal/services/ingest"
	"salonrecon/internal/services/vault"
)

const snapshotPrefix = "snapshots/"

// Snapshot is the persisted copy of a session's raw uploads, read back by the admin view
type Snapshot struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Files     [2]*ingest.Upload `json:"files"`
}

// SnapshotInfo is a listing entry without the table data
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updatedAt"`
	Files     []string  `json:"files"`
}

func (sess *Session) snapshot() Snapshot {
	return Snapshot{
		ID:        sess.ID,
		Email:     sess.Email,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Files:     sess.Uploads,
	}
}

func snapshotKey(id string) string {
	return snapshotPrefix + id + ".json"
}

// SaveSnapshot writes the snapshot to the vault
func (s *Store) SaveSnapshot(snap Snapshot) error {
	if s.vault == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.vault.Put(snapshotKey(snap.ID), data)
}

// LoadSnapshot reads a snapshot back from the vault
func (s *Store) LoadSnapshot(id string) (*Snapshot, error) {
	if s.vault == nil || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	data, err := s.vault.Get(snapshotKey(id))
	if errors.Is(err, vault.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// ListSnapshots returns every stored snapshot, most recently updated first
func (s *Store) ListSnapshots() ([]SnapshotInfo, error) {
	if s.vault == nil {
		return nil, nil
	}

	keys, err := s.vault.List(snapshotPrefix)
	if err != nil {
		return nil, err
	}

	infos := make([]SnapshotInfo, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimSuffix(path.Base(key), ".json")
		snap, err := s.LoadSnapshot(id)
		if err != nil {
			return nil, err
		}

		info := SnapshotInfo{ID: snap.ID, Email: snap.Email, UpdatedAt: snap.UpdatedAt, Files: []string{}}
		for _, f := range snap.Files {
			if f != nil {
				info.Files = append(info.Files, f.Name)
			}
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// DeleteSnapshotsFor removes every snapshot belonging to email and returns how many went
func (s *Store) DeleteSnapshotsFor(email string) (int, error) {
	infos, err := s.ListSnapshots()
	if err != nil {
		return 0, err
	}

	var n int
	for _, info := range infos {
		if !strings.EqualFold(info.Email, email) {
			continue
		}
		if err := s.vault.Delete(snapshotKey(info.ID)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
