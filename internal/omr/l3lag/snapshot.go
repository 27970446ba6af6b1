package l3lag

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
)

// Snapshot is the serialisable form of a lag.
type Snapshot struct {
	Name        string
	Orientation Orientation
	Width       int
	Height      int
	Version     uint64
	Sections    []SectionRecord
}

// SectionRecord is the serialisable form of a section, dead ones included
// so that ids stay stable.
type SectionRecord struct {
	ID       SectionID
	FirstPos int
	Runs     []Run
	Role     Role
	Stick    int
	Dead     bool
	Sources  []Edge
	Targets  []Edge
}

// Snapshot captures the lag under its read lock.
func (l *Lag) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := &Snapshot{
		Name:        l.name,
		Orientation: l.orientation,
		Width:       l.width,
		Height:      l.height,
		Version:     l.version,
		Sections:    make([]SectionRecord, len(l.sections)),
	}
	for i, s := range l.sections {
		snap.Sections[i] = SectionRecord{
			ID:       s.ID,
			FirstPos: s.FirstPos,
			Runs:     append([]Run(nil), s.Runs...),
			Role:     s.Role,
			Stick:    s.Stick,
			Dead:     s.dead,
			Sources:  s.Sources(),
			Targets:  s.Targets(),
		}
	}
	return snap
}

// Restore rebuilds a lag from a snapshot.
func Restore(snap *Snapshot) (*Lag, error) {
	l := New(snap.Name, snap.Orientation, snap.Width, snap.Height)
	l.version = snap.Version
	l.sections = make([]*Section, len(snap.Sections))
	for i, rec := range snap.Sections {
		if rec.ID != SectionID(i+1) {
			return nil, fmt.Errorf("snapshot section %d has id %d", i+1, rec.ID)
		}
		l.sections[i] = &Section{
			ID:       rec.ID,
			FirstPos: rec.FirstPos,
			Runs:     append([]Run(nil), rec.Runs...),
			Role:     rec.Role,
			Stick:    rec.Stick,
			dead:     rec.Dead,
			sources:  append([]Edge(nil), rec.Sources...),
			targets:  append([]Edge(nil), rec.Targets...),
		}
	}
	return l, nil
}

// Encode serialises the lag as a gob+gzip blob.
func Encode(l *Lag) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(l.Snapshot()); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode restores a lag from a blob produced by Encode.
func Decode(blob []byte) (*Lag, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty lag blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var snap Snapshot
	if err := gob.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode lag snapshot: %w", err)
	}
	return Restore(&snap)
}
