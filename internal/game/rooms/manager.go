package rooms

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/room"
	"inboxwars.io/internal/game/tuning"
	plog "inboxwars.io/internal/persistence/log"
	"inboxwars.io/internal/persistence/snapshot"
)

const manifestVersion = 1

type Config struct {
	DataDir  string
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	// Index is optional (may be nil).
	Index room.Indexer
}

type RoomInfo struct {
	ID      string `json:"id"`
	Phase   string `json:"phase"`
	Round   int    `json:"round"`
	Rounds  int    `json:"rounds"`
	Senders int    `json:"senders"`
}

type runtime struct {
	room   *room.Room
	cancel context.CancelFunc
	done   chan struct{}
	logger *plog.RoundLogger
}

// Manager owns every live room: it creates them, restores them from the
// newest snapshot on startup, and fans their snapshots out to disk through
// a single off-thread writer.
type Manager struct {
	cfg   Config
	store *game.MemStore

	mu       sync.RWMutex
	runtimes map[string]*runtime
	nextNum  int

	snapCh    chan snapshot.RoomSnapshotV1
	snapWG    sync.WaitGroup
	closeOnce sync.Once
}

type manifest struct {
	Version int      `json:"version"`
	RoomIDs []string `json:"room_ids"`
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("rooms: nil catalogs")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:      cfg,
		store:    game.NewMemStore(),
		runtimes: map[string]*runtime{},
		snapCh:   make(chan snapshot.RoomSnapshotV1, 16),
	}
	m.snapWG.Add(1)
	go func() {
		defer m.snapWG.Done()
		for snap := range m.snapCh {
			_, _ = snapshot.WriteSnapshot(m.snapshotDir(), snap)
		}
	}()

	if err := m.restore(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) snapshotDir() string { return filepath.Join(m.cfg.DataDir, "snapshots") }
func (m *Manager) manifestPath() string {
	return filepath.Join(m.cfg.DataDir, "rooms.json")
}
func (m *Manager) roomDir(roomID string) string {
	return filepath.Join(m.cfg.DataDir, "rooms", roomID)
}

// Create starts a new room. An empty id allocates the next sequential one.
func (m *Manager) Create(roomID string) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if roomID == "" {
		m.nextNum++
		roomID = fmt.Sprintf("room_%d", m.nextNum)
		for m.runtimes[roomID] != nil {
			m.nextNum++
			roomID = fmt.Sprintf("room_%d", m.nextNum)
		}
	}
	if m.runtimes[roomID] != nil {
		return nil, fmt.Errorf("room %s already exists", roomID)
	}

	m.store.Put(game.NewState(roomID, m.cfg.Tuning.StartingBudget))
	rt, err := m.startLocked(roomID)
	if err != nil {
		m.store.Delete(roomID)
		return nil, err
	}
	if err := m.persistManifestLocked(); err != nil {
		return nil, err
	}
	return rt.room, nil
}

// startLocked wires a room over whatever session the store already holds.
func (m *Manager) startLocked(roomID string) (*runtime, error) {
	r, err := room.New(room.Config{RoomID: roomID, Tuning: m.cfg.Tuning}, m.cfg.Catalogs, m.store)
	if err != nil {
		return nil, err
	}

	logger := plog.NewRoundLogger(m.roomDir(roomID))
	r.SetRoundLogger(logger)
	if m.cfg.Index != nil {
		r.SetIndexer(m.cfg.Index)
	}
	r.SetSnapshotSink(m.snapCh)

	ctx, cancel := context.WithCancel(context.Background())
	rt := &runtime{room: r, cancel: cancel, done: make(chan struct{}), logger: logger}
	go func() {
		defer close(rt.done)
		_ = r.Run(ctx)
	}()
	m.runtimes[roomID] = rt
	return rt, nil
}

func (m *Manager) Get(roomID string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt := m.runtimes[roomID]
	if rt == nil {
		return nil, false
	}
	return rt.room, true
}

func (m *Manager) List() []RoomInfo {
	m.mu.RLock()
	ids := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	out := make([]RoomInfo, 0, len(ids))
	for _, id := range ids {
		st, ok := m.store.Get(id)
		if !ok {
			continue
		}
		out = append(out, RoomInfo{
			ID:      id,
			Phase:   string(st.Phase),
			Round:   st.Round,
			Rounds:  m.cfg.Tuning.Rounds,
			Senders: len(st.Teams),
		})
	}
	return out
}

// Votes exposes a room's pending votes for the read-only HTTP endpoint.
func (m *Manager) Votes(roomID string) (map[string]string, bool) {
	st, ok := m.store.Get(roomID)
	if !ok {
		return nil, false
	}
	out := map[string]string{}
	for destID, target := range st.Votes {
		out[destID] = target
	}
	return out, true
}

// restore reseeds every manifest room from its newest snapshot. Rooms with
// no snapshot yet restart from a fresh lobby.
func (m *Manager) restore() error {
	raw, err := os.ReadFile(m.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var mf manifest
	if err := json.Unmarshal(raw, &mf); err != nil {
		return fmt.Errorf("rooms.json: %w", err)
	}
	if mf.Version != manifestVersion {
		return fmt.Errorf("rooms.json: unsupported version %d", mf.Version)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, roomID := range mf.RoomIDs {
		st := game.NewState(roomID, m.cfg.Tuning.StartingBudget)
		if path := snapshot.Latest(m.snapshotDir(), roomID); path != "" {
			snap, err := snapshot.ReadSnapshot(path)
			if err != nil {
				return err
			}
			st = snap.State
		}
		m.store.Put(st)
		if _, err := m.startLocked(roomID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) persistManifestLocked() error {
	ids := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	raw, err := json.MarshalIndent(manifest{Version: manifestVersion, RoomIDs: ids}, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.manifestPath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.manifestPath())
}

func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		rts := make([]*runtime, 0, len(m.runtimes))
		for _, rt := range m.runtimes {
			rts = append(rts, rt)
		}
		m.mu.Unlock()

		for _, rt := range rts {
			rt.cancel()
			<-rt.done
			_ = rt.logger.Close()
		}
		close(m.snapCh)
		m.snapWG.Wait()
	})
}
