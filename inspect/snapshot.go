// Package inspect renders the contents of a registry for debugging: as
// JSON, as a Markdown or HTML table, or over HTTP next to the registry
// metrics.
package inspect

import (
	"encoding/json"
	"fmt"

	"github.com/odvcencio/furry-rx/registry"
)

// Entry describes one registry node.
type Entry struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	State        string `json:"state"`
	Value        string `json:"value,omitempty"`
	Listeners    int    `json:"listeners"`
	Dependents   int    `json:"dependents"`
	Dependencies int    `json:"dependencies"`
	KeepAlive    bool   `json:"keepAlive,omitempty"`
}

// Snapshot returns one entry per live node of reg, ordered by handle ID.
// Values are rendered with fmt; uninitialized nodes have no value.
func Snapshot(reg *registry.Registry) []Entry {
	nodes := reg.Nodes()
	entries := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		e := Entry{
			ID:           n.ID.String(),
			Label:        n.Label,
			State:        n.State,
			Listeners:    n.Listeners,
			Dependents:   n.Dependents,
			Dependencies: n.Dependencies,
			KeepAlive:    n.KeepAlive,
		}
		if n.Value != nil {
			e.Value = fmt.Sprint(n.Value)
		}
		entries = append(entries, e)
	}
	return entries
}

// JSON encodes entries as indented JSON.
func JSON(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}
