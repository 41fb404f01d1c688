package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

type checkpoint struct {
	RunID       string               `json:"runId,omitempty"`
	Agent       string               `json:"agent"`
	PassResults []review.PassResult  `json:"passResults"`
	MergedAt    time.Time            `json:"mergedAt"`
}

// writeCheckpoint writes a write-only JSON checkpoint after an agent
// completes, capturing {agent, passResults, mergedAt} for post-mortem use.
// It is never read back within the same run. Grounded on the teacher's
// events package's write-oriented, append-only event log posture. A
// failure to write is logged and otherwise ignored: checkpoints are
// diagnostic, not load-bearing.
func (o *Orchestrator) writeCheckpoint(agentName string, passResults []review.PassResult) {
	if o.cfg.CheckpointDir == "" {
		return
	}
	cp := checkpoint{RunID: o.cfg.RunID, Agent: agentName, PassResults: passResults, MergedAt: time.Now()}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		o.logger.Warn("failed to marshal checkpoint", "agent", agentName, "error", err)
		return
	}
	if err := os.MkdirAll(o.cfg.CheckpointDir, 0o700); err != nil {
		o.logger.Warn("failed to create checkpoint directory", "dir", o.cfg.CheckpointDir, "error", err)
		return
	}
	path := filepath.Join(o.cfg.CheckpointDir, agentName+"-checkpoint.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		o.logger.Warn("failed to write checkpoint", "path", path, "error", err)
	}
}
