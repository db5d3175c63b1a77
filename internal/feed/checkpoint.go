package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Checkpoint tracks the feed's last processed block together with the pool
// set it was taken under, so a resume against a different pool list can be
// detected.
type Checkpoint struct {
	LastProcessedBlock uint64   `json:"last_processed_block"`
	Pools              []string `json:"pools,omitempty"`
	UpdatedAt          string   `json:"updated_at"`
}

// PoolFingerprint renders a pool set in the canonical form stored in
// checkpoints: lowercase hex, sorted.
func PoolFingerprint(pools []common.Address) []string {
	out := make([]string, 0, len(pools))
	for _, pool := range pools {
		out = append(out, pool.Hex())
	}
	sort.Strings(out)
	return out
}

// Checkpointer persists feed progress. The file-backed store is the
// default; a Postgres-backed one is used when the feed writes to Postgres.
type Checkpointer interface {
	Load() (Checkpoint, bool, error)
	Save(cp Checkpoint) error
}

// CheckpointStore persists checkpoints to a local JSON file.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}

	return cp, true, nil
}

func (c *CheckpointStore) Save(cp Checkpoint) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}
