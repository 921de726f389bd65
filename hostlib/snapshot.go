package hostlib

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"wrtd.dev/internal/routing"
	"wrtd.dev/internal/trigger"
)

// snapshotEntry is routing.Entry flattened into exported fields CBOR
// can marshal, plus the condition trigger identity a Conditional rule
// points at — CondPtr itself is a Table-local array index and is not
// portable across a save/load round trip, so it is re-resolved to an
// ID here the way the firmware resolves a Conditional rule to its
// sibling Condition rule by identity (spec.md §4.5, AssignConditionPair).
type snapshotEntry struct {
	ID      trigger.ID
	Ocfg    [routing.Outputs]routing.OutputRule
	CondIDs [routing.Outputs]trigger.ID
}

// Snapshot is a routing.Table serialized for persistence across a
// power cycle or a card swap (spec.md §4.10, §6.1: "routing table
// persistence ... save and restore it across restarts").
type Snapshot struct {
	Entries []snapshotEntry
}

// SnapshotTable captures t's current contents.
func SnapshotTable(t *routing.Table) Snapshot {
	var s Snapshot
	t.Each(func(e routing.Entry) {
		se := snapshotEntry{ID: e.ID, Ocfg: e.Ocfg}
		for j, r := range e.Ocfg {
			if r.State == routing.Conditional && r.HasCondPtr {
				se.CondIDs[j] = t.EntryAt(r.CondPtr).ID
			}
		}
		s.Entries = append(s.Entries, se)
	})
	return s
}

// SaveSnapshot CBOR-encodes snap and appends a blake2b-256 digest of
// the encoded body, the same tamper-evidence shape the firmware's
// update_hash blob check uses but computed host-side (spec.md §4.10).
func SaveSnapshot(path string, t *routing.Table) error {
	snap := SnapshotTable(t)
	body, err := cbor.Marshal(snap)
	if err != nil {
		return wrap("save_snapshot", err)
	}
	sum := blake2b.Sum256(body)
	out := make([]byte, 0, len(body)+len(sum))
	out = append(out, body...)
	out = append(out, sum[:]...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return wrap("save_snapshot", err)
	}
	return nil
}

// LoadSnapshot reads and digest-verifies a file written by
// SaveSnapshot.
func LoadSnapshot(path string) (Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, wrap("load_snapshot", err)
	}
	if len(raw) < blake2b.Size256 {
		return Snapshot{}, wrap("load_snapshot", fmt.Errorf("file too short (%d bytes)", len(raw)))
	}
	split := len(raw) - blake2b.Size256
	body, want := raw[:split], raw[split:]
	got := blake2b.Sum256(body)
	for i := range want {
		if want[i] != got[i] {
			return Snapshot{}, wrap("load_snapshot", fmt.Errorf("digest mismatch, snapshot corrupt or truncated"))
		}
	}
	var snap Snapshot
	if err := cbor.Unmarshal(body, &snap); err != nil {
		return Snapshot{}, wrap("load_snapshot", err)
	}
	return snap, nil
}

// Replay reissues every entry in snap against client, rebuilding the
// card's routing table from scratch. Conditional rules are replayed
// through TrigAssignConditional so the firmware re-links CondPtr by
// identity rather than by the snapshot's now-stale table index.
func Replay(snap Snapshot, client *FDClient) error {
	for _, e := range snap.Entries {
		for output, rule := range e.Ocfg {
			switch rule.State {
			case routing.Empty, routing.Condition:
				// Condition-only rules are created as a side effect of
				// their paired Conditional rule below; nothing to do
				// if this entry is never referenced as one.
				continue
			case routing.Conditional:
				if err := client.TrigAssignConditional(output, e.CondIDs[output], e.ID, rule); err != nil {
					return wrap("replay", err)
				}
			case routing.Direct, routing.Disabled:
				if err := client.TrigAssign(output, e.ID, rule); err != nil {
					return wrap("replay", err)
				}
				if rule.State == routing.Disabled {
					if err := client.TrigEnable(output, e.ID, false); err != nil {
						return wrap("replay", err)
					}
				}
			}
		}
	}
	return nil
}
