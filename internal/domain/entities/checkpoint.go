package entities

import (
	"encoding/json"
	"fmt"
)

// Checkpoint captures an interrupted run so it can be resumed
type Checkpoint struct {
	RunID           string        `json:"run_id"`
	Exploits        []*Exploit    `json:"exploits"`
	Parameters      []string      `json:"parameters"`
	DoneExploits    []DoneExploit `json:"done_exploits"`
	Target          string        `json:"target"`
	ExploitsToScan  []string      `json:"exploits_to_scan"`
	ExcludeExploits []string      `json:"exclude_exploits"`
}

// DoneExploit is a finished exploit, stored as a [name, code] pair
type DoneExploit struct {
	Name string
	Code Verdict
}

// MarshalJSON encodes the pair as a two-element array
func (d DoneExploit) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{d.Name, int(d.Code)})
}

// UnmarshalJSON decodes a [name, code] pair
func (d *DoneExploit) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("done exploit must be a [name, code] pair: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("done exploit must have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &d.Name); err != nil {
		return fmt.Errorf("done exploit name: %w", err)
	}
	var code int
	if err := json.Unmarshal(raw[1], &code); err != nil {
		return fmt.Errorf("done exploit code: %w", err)
	}
	d.Code = Verdict(code)
	return nil
}

// DoneNames returns the names of finished exploits
func (c *Checkpoint) DoneNames() map[string]bool {
	done := make(map[string]bool, len(c.DoneExploits))
	for _, d := range c.DoneExploits {
		done[d.Name] = true
	}
	return done
}
