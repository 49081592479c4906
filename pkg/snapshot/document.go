package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Document is a loosely-typed incoming snapshot.
//
// It accepts both the flat layout produced by Export and the older layout where
// step and entropy_history are nested under "metrics" and size is implied by the grid.
// Absent fields stay nil so Resolve can tell "missing" apart from "zero".
type Document struct {
	Size           *int           `mapstructure:"size"`
	Grid           [][]int        `mapstructure:"grid"`
	PosThreshold   *int           `mapstructure:"pos_threshold"`
	NegThreshold   *int           `mapstructure:"neg_threshold"`
	Step           *int           `mapstructure:"step"`
	EntropyHistory []float64      `mapstructure:"entropy_history"`
	Metrics        *legacyMetrics `mapstructure:"metrics"`
}

type legacyMetrics struct {
	Step           *int      `mapstructure:"step"`
	Size           *int      `mapstructure:"size"`
	EntropyHistory []float64 `mapstructure:"entropy_history"`
}

// Decode parses JSON into a Document. Numbers must be integral where the
// layout expects integers; 1.5 is rejected rather than truncated.
func Decode(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	return FromMap(raw)
}

// FromMap decodes an already-parsed JSON object (or MCP argument map) into a Document.
func FromMap(raw map[string]any) (*Document, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidSnapshot)
	}

	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &doc,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	return &doc, nil
}

// Resolve fills the gaps of a Document and returns a concrete Snapshot.
// Missing thresholds fall back to current; a missing size is taken from the grid;
// step and history fall back to the legacy "metrics" block, then to zero/empty.
func (d *Document) Resolve(current domain.Thresholds) *domain.Snapshot {
	snap := &domain.Snapshot{
		Grid:           d.Grid,
		PosThreshold:   current.Pos,
		NegThreshold:   current.Neg,
		EntropyHistory: d.EntropyHistory,
	}

	switch {
	case d.Size != nil:
		snap.Size = *d.Size
	case d.Metrics != nil && d.Metrics.Size != nil:
		snap.Size = *d.Metrics.Size
	default:
		snap.Size = len(d.Grid)
	}

	if d.PosThreshold != nil {
		snap.PosThreshold = *d.PosThreshold
	}
	if d.NegThreshold != nil {
		snap.NegThreshold = *d.NegThreshold
	}

	if d.Step != nil {
		snap.Step = *d.Step
		return snap
	}
	if d.Metrics == nil || d.Metrics.Step == nil {
		return snap
	}

	// Legacy exports keep a trimmed history without the initial entry. When it
	// cannot satisfy len == step+1 the pattern is imported as a fresh run.
	legacy := d.Metrics.EntropyHistory
	if snap.EntropyHistory == nil && len(legacy) == *d.Metrics.Step+1 {
		snap.Step = *d.Metrics.Step
		snap.EntropyHistory = legacy
		return snap
	}
	if snap.EntropyHistory != nil {
		snap.Step = *d.Metrics.Step
	}
	return snap
}
