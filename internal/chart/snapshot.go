package chart

import (
	"encoding/json"
	"fmt"
)

// SnapshotSchemaVersion is the current persisted snapshot shape. Older
// snapshots (including ones written before the field existed) are upgraded
// by defaulting rules on restore rather than rejected.
const SnapshotSchemaVersion = 2

// Snapshot is the persisted unit of a seating layout: the grid plus the
// viewport and display settings needed to reproduce the view. Historical
// shapes varied, so every field beyond the rows is optional with an
// explicit default.
type Snapshot struct {
	SchemaVersion int             `json:"schemaVersion,omitempty"`
	LayoutName    string          `json:"layoutName,omitempty"`
	ZoomPercent   int             `json:"zoomPercent,omitempty"`
	Offset        Point           `json:"offset"`
	CompactMode   bool            `json:"compactMode,omitempty"`
	Rows          [][]*StudentRef `json:"rows"`
}

// TakeSnapshot captures the live chart and viewport.
func TakeSnapshot(c *SeatingChart, v Viewport, layoutName string, compactMode bool) Snapshot {
	return Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		LayoutName:    layoutName,
		ZoomPercent:   v.ZoomPercent,
		Offset:        v.Offset,
		CompactMode:   compactMode,
		Rows:          c.Rows(),
	}
}

// Restore rebuilds a chart and viewport from the snapshot against the given
// row configuration. Rows are padded or truncated to each row's configured
// seat count, missing rows become empty, duplicate student ids keep their
// first cell, and out-of-range zoom values are clamped.
func (s Snapshot) Restore(configs []RowConfig) (*SeatingChart, Viewport) {
	restored := NewSeatingChart(configs)
	seen := make(map[string]struct{})
	for r, cfg := range configs {
		if r >= len(s.Rows) {
			break
		}
		for seat := 0; seat < cfg.SeatCount && seat < len(s.Rows[r]); seat++ {
			student := s.Rows[r][seat]
			if student == nil || student.ID == "" {
				continue
			}
			if _, dup := seen[student.ID]; dup {
				continue
			}
			seen[student.ID] = struct{}{}
			restored.rows[r][seat] = student
		}
	}

	viewport := Viewport{
		ZoomPercent: clampZoom(s.ZoomPercent),
		Offset:      s.Offset,
	}
	return restored, viewport
}

// Encode serialises the snapshot for either persistence tier.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a stored snapshot, tolerating older shapes: a
// missing schema version is treated as version 1 and unknown fields (such
// as the retired free-placement furniture array) are ignored.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.SchemaVersion == 0 {
		s.SchemaVersion = 1
	}
	if s.SchemaVersion > SnapshotSchemaVersion {
		return Snapshot{}, fmt.Errorf("snapshot schema version %d not supported", s.SchemaVersion)
	}
	return s, nil
}
