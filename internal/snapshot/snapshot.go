// Package snapshot persists the engine and token balances as zstd-compressed
// JSON. Each save records the digest of the previous one, forming a chain
// operators can audit against the recorder.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"BunkerWars/internal/model"
)

const formatVersion = 1

// State is one persisted snapshot.
type State struct {
	Version    int               `json:"version"`
	SavedAt    time.Time         `json:"saved_at"`
	Engine     model.EngineState `json:"engine"`
	Balances   map[string]string `json:"balances"`
	PrevDigest string            `json:"prev_digest"`
}

// Fresh reports whether the state was never saved.
func (s *State) Fresh() bool {
	return s.Version == 0
}

// Digest returns the hex blake3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Load reads a snapshot. Returns a fresh state and an empty digest if the
// file doesn't exist.
func Load(path string) (*State, string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, "", nil
		}
		return nil, "", fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, "", fmt.Errorf("open zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, "", fmt.Errorf("decompress snapshot: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, "", fmt.Errorf("decode snapshot: %w", err)
	}
	if st.Version != formatVersion {
		return nil, "", fmt.Errorf("snapshot version %d, want %d", st.Version, formatVersion)
	}
	return &st, Digest(data), nil
}

// Save writes the snapshot through a temp file and rename, so a crash never
// leaves a torn file. It returns the digest of the written payload.
func Save(path string, st *State) (string, error) {
	st.Version = formatVersion
	st.SavedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return "", fmt.Errorf("open zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		f.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replace snapshot: %w", err)
	}
	return Digest(data), nil
}

// Store saves snapshots to one path and links each to its predecessor.
type Store struct {
	mu     sync.Mutex
	path   string
	digest string
}

// NewStore creates a store continuing the chain from lastDigest.
func NewStore(path, lastDigest string) *Store {
	return &Store{path: path, digest: lastDigest}
}

// Save persists engine state and balances and returns the new digest.
func (s *Store) Save(engine model.EngineState, balances map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest, err := Save(s.path, &State{Engine: engine, Balances: balances, PrevDigest: s.digest})
	if err != nil {
		return "", err
	}
	s.digest = digest
	return digest, nil
}

// LastDigest returns the digest of the most recent save.
func (s *Store) LastDigest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digest
}
