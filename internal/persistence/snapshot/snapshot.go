package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"inboxwars.io/internal/game"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	RoomID  string `json:"room_id"`
	Round   int    `json:"round"`
}

// RoomSnapshotV1 captures a full session for resume and replay. The game
// state is already plain JSON-serializable data, so it is embedded whole.
type RoomSnapshotV1 struct {
	Header Header `json:"header"`

	Rounds          int `json:"rounds"`
	PlanningSeconds int `json:"planning_seconds"`

	State *game.State `json:"state"`
}

// WriteSnapshot writes <dir>/<room>-r<round>.snap.zst atomically.
func WriteSnapshot(dir string, snap RoomSnapshotV1) (string, error) {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-r%06d.snap.zst", snap.Header.RoomID, snap.Header.Round))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return "", err
	}
	if err := json.NewEncoder(enc).Encode(snap); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}

func ReadSnapshot(path string) (RoomSnapshotV1, error) {
	var snap RoomSnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return snap, fmt.Errorf("snapshot %s: %w", filepath.Base(path), err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot %s: unsupported version %d", filepath.Base(path), snap.Header.Version)
	}
	if snap.State == nil {
		return snap, fmt.Errorf("snapshot %s: empty state", filepath.Base(path))
	}
	return snap, nil
}

// Latest returns the newest snapshot path for a room ("" when none exist).
func Latest(dir, roomID string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	prefix := roomID + "-r"
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".snap.zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1])
}
