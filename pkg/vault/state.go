package vault

import (
	"encoding/json"
	"fmt"
)

// StateVersion is the payload version written by this code. Payloads without a
// version field predate versioning and are read as version 1.
const StateVersion = 1

// State is the whole persisted vault: profiles in insertion order and the id of
// the active one ("" when none).
type State struct {
	Configs  []Profile
	ActiveID string
}

// stateDoc is the JSON layout of State
type stateDoc struct {
	Version  int       `json:"version"`
	Configs  []Profile `json:"configs"`
	ActiveID *string   `json:"activeId"`
}

func (s State) index(id string) int {
	for i := range s.Configs {
		if s.Configs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	out := State{ActiveID: s.ActiveID}
	if len(s.Configs) > 0 {
		out.Configs = append([]Profile(nil), s.Configs...)
	}
	return out
}

func encodeState(s State) ([]byte, error) {
	doc := stateDoc{
		Version: StateVersion,
		Configs: s.Configs,
	}
	if doc.Configs == nil {
		doc.Configs = []Profile{}
	}
	if s.ActiveID != "" {
		id := s.ActiveID
		doc.ActiveID = &id
	}
	return json.Marshal(doc)
}

func decodeState(data []byte) (State, error) {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("parse state: %w", err)
	}

	switch {
	case doc.Version == 0:
		// unversioned payload, same layout as version 1
	case doc.Version > StateVersion:
		return State{}, fmt.Errorf("state version %d is newer than supported version %d", doc.Version, StateVersion)
	}

	seen := make(map[string]struct{}, len(doc.Configs))
	for _, p := range doc.Configs {
		if p.ID == "" {
			return State{}, fmt.Errorf("profile %q has no id", p.Name)
		}
		if _, dup := seen[p.ID]; dup {
			return State{}, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	s := State{}
	if len(doc.Configs) > 0 {
		s.Configs = doc.Configs
	}
	if doc.ActiveID != nil {
		s.ActiveID = *doc.ActiveID
	}
	return s, nil
}
