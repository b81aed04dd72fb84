package chain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseChain decodes a planner-produced chain. Planner output is LLM
// text, so a strict parse failure falls back to jsonrepair before giving
// up. Accepts either a bare array of steps or an object with a "chain"
// field.
func ParseChain(raw string) ([]Step, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty chain payload")
	}
	raw = stripCodeFence(raw)

	// A chain may arrive double-encoded as a JSON string.
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil && inner != raw {
			return ParseChain(inner)
		}
	}

	steps, err := decodeSteps(raw)
	if err == nil {
		return steps, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("parse chain: %w", err)
	}
	steps, err = decodeSteps(repaired)
	if err != nil {
		return nil, fmt.Errorf("parse repaired chain: %w", err)
	}
	return steps, nil
}

func decodeSteps(raw string) ([]Step, error) {
	var steps []Step
	if err := json.Unmarshal([]byte(raw), &steps); err == nil {
		return steps, nil
	}
	var wrapped struct {
		Chain []Step `json:"chain"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Chain == nil {
		return nil, fmt.Errorf("no chain field in payload")
	}
	return wrapped.Chain, nil
}

// stripCodeFence removes a surrounding markdown fence if present.
func stripCodeFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
