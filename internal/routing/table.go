// Package routing implements the trigger-ID → per-output rule table
// shared by every FD output personality (spec.md §4.5). Entries are
// referenced by small integer indices into a fixed array rather than
// pointers (spec.md §9, "pointer graph → arena + indices"), which
// lets a Conditional rule's cond_ptr be a plain index instead of an
// aliasable pointer.
package routing

import (
	"fmt"
	"sort"

	"wrtd.dev/internal/trigger"
)

// MaxEntries is the fixed table capacity (spec.md §4.5).
const MaxEntries = 128

// Outputs is the number of output channels each entry carries a rule
// for (spec.md §3, "ocfg[4]").
const Outputs = 4

// State encodes an output rule's membership in the routing graph.
type State uint8

const (
	Empty State = iota
	Direct
	Condition
	Conditional
	Disabled
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Direct:
		return "Direct"
	case Condition:
		return "Condition"
	case Conditional:
		return "Conditional"
	case Disabled:
		return "Disabled"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// OutputRule is one output channel's behavior for a routing entry
// (spec.md §3/§4.5). Delay is expressed as (cycles, frac-of-a-cycle)
// quantized the same way as tai.Timestamp: DelayFrac is in units of
// 1/4096 of an 8ns tick.
type OutputRule struct {
	DelayCycles int32
	DelayFrac   int32
	State       State
	// CondPtr is the EntryIndex a Conditional rule's sibling Condition
	// rule lives at on the same output; unused otherwise.
	CondPtr         EntryIndex
	HasCondPtr      bool
	LatencyWorst    int64
	LatencyAvgSum   int64
	LatencyAvgCount uint64
	Hits            uint64
	Misses          uint64
}

// EntryIndex is a reference to a Table row, replacing the original
// implementation's raw pointer.
type EntryIndex uint16

// Entry is one routing table row: a trigger identity and its rule per
// output channel.
type Entry struct {
	Valid bool
	ID    trigger.ID
	Ocfg  [Outputs]OutputRule
}

// Table is the sorted ≤128-entry routing table (spec.md §4.5). It is
// not safe for concurrent use; callers serialize access the same way
// the cooperative main loop serializes every other piece of firmware
// state (spec.md §5).
type Table struct {
	entries []Entry
	order   []EntryIndex // indices into entries, kept sorted by ID
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// ErrTableFull is returned by Assign when the table already holds
// MaxEntries valid entries (spec.md §7, kind TableFull).
var ErrTableFull = fmt.Errorf("routing: table full (max %d entries)", MaxEntries)

// ErrNotFound is returned when id has no entry (spec.md §7, kind
// TriggerNotFound).
var ErrNotFound = fmt.Errorf("routing: trigger not found")

// search returns the position in t.order where id is, or would be
// inserted, via binary search over the lexicographic (system,
// source_port, trigger) order (spec.md §4.5).
func (t *Table) search(id trigger.ID) (pos int, found bool) {
	n := len(t.order)
	pos = sort.Search(n, func(i int) bool {
		return !t.entries[t.order[i]].ID.Less(id)
	})
	found = pos < n && t.entries[t.order[pos]].ID.Equal(id)
	return pos, found
}

// Lookup returns the entry for id, if present.
func (t *Table) Lookup(id trigger.ID) (EntryIndex, *Entry, bool) {
	pos, found := t.search(id)
	if !found {
		return 0, nil, false
	}
	idx := t.order[pos]
	return idx, &t.entries[idx], true
}

// EntryAt returns the entry at idx. It panics if idx is out of range,
// the same contract as direct array indexing in the firmware.
func (t *Table) EntryAt(idx EntryIndex) *Entry {
	return &t.entries[idx]
}

// Assign inserts or updates the rule for (id, output). A fresh id
// consumes one of the MaxEntries slots; updating an existing id's
// rule does not. Returns the entry's index.
func (t *Table) Assign(id trigger.ID, output int, rule OutputRule) (EntryIndex, error) {
	pos, found := t.search(id)
	if found {
		idx := t.order[pos]
		t.entries[idx].Ocfg[output] = rule
		return idx, nil
	}
	if t.Count() >= MaxEntries {
		return 0, ErrTableFull
	}
	idx := t.allocate()
	t.entries[idx] = Entry{Valid: true, ID: id}
	t.entries[idx].Ocfg[output] = rule
	t.insertOrder(pos, idx)
	return idx, nil
}

// allocate returns a free slot in t.entries, growing the backing
// array if every existing slot is in use.
func (t *Table) allocate() EntryIndex {
	for i := range t.entries {
		if !t.entries[i].Valid {
			return EntryIndex(i)
		}
	}
	t.entries = append(t.entries, Entry{})
	return EntryIndex(len(t.entries) - 1)
}

func (t *Table) insertOrder(pos int, idx EntryIndex) {
	t.order = append(t.order, 0)
	copy(t.order[pos+1:], t.order[pos:])
	t.order[pos] = idx
}

// Remove clears output's rule on id's entry. The entry itself is only
// deleted once every output's rule has gone Empty (spec.md §4.5,
// "removing a channel's rule does not delete the entry unless all
// four ocfg[i].state == Empty").
func (t *Table) Remove(id trigger.ID, output int) error {
	pos, found := t.search(id)
	if !found {
		return ErrNotFound
	}
	idx := t.order[pos]
	e := &t.entries[idx]
	e.Ocfg[output] = OutputRule{}

	for _, r := range e.Ocfg {
		if r.State != Empty {
			return nil
		}
	}
	e.Valid = false
	t.order = append(t.order[:pos], t.order[pos+1:]...)
	return nil
}

// Each calls visit for every valid entry, in sorted ID order
// (spec.md §4.6.5, "FD_READ_HASH: iterate valid entries").
func (t *Table) Each(visit func(Entry)) {
	for _, idx := range t.order {
		visit(t.entries[idx])
	}
}

// Count returns the number of valid entries.
func (t *Table) Count() int {
	n := 0
	for _, e := range t.entries {
		if e.Valid {
			n++
		}
	}
	return n
}

// AssignConditionPair records a Condition/Conditional pair on the same
// output, enforcing the invariant that a Conditional rule's CondPtr
// names a Condition-state entry on the same output, and that pair is
// created together (spec.md §4.5, §8 invariant list).
func (t *Table) AssignConditionPair(output int, conditionID, conditionalID trigger.ID, conditionalRule OutputRule) error {
	need := 0
	if _, _, ok := t.Lookup(conditionID); !ok {
		need++
	}
	if _, _, ok := t.Lookup(conditionalID); !ok && conditionalID != conditionID {
		need++
	}
	if t.Count()+need > MaxEntries {
		return ErrTableFull
	}
	condIdx, _, err := t.ensure(conditionID)
	if err != nil {
		return err
	}
	t.entries[condIdx].Ocfg[output] = OutputRule{State: Condition}

	condIdx2, _, err := t.ensure(conditionalID)
	if err != nil {
		return err
	}
	conditionalRule.State = Conditional
	conditionalRule.CondPtr = condIdx
	conditionalRule.HasCondPtr = true
	t.entries[condIdx2].Ocfg[output] = conditionalRule
	return nil
}

func (t *Table) ensure(id trigger.ID) (EntryIndex, *Entry, error) {
	if idx, e, ok := t.Lookup(id); ok {
		return idx, e, nil
	}
	if t.Count() >= MaxEntries {
		return 0, nil, ErrTableFull
	}
	pos, _ := t.search(id)
	idx := t.allocate()
	t.entries[idx] = Entry{Valid: true, ID: id}
	t.insertOrder(pos, idx)
	return idx, &t.entries[idx], nil
}

// CheckInvariants validates the two structural invariants from spec.md
// §8 across every entry: every valid entry has at least one non-Empty
// rule, and every Conditional rule's sibling is a matching Condition
// rule. It is a debugging/test aid, not something the hot path calls.
func (t *Table) CheckInvariants() error {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.Valid {
			continue
		}
		anyNonEmpty := false
		for out, r := range e.Ocfg {
			if r.State == Empty {
				continue
			}
			anyNonEmpty = true
			if r.State == Conditional {
				if !r.HasCondPtr || int(r.CondPtr) >= len(t.entries) {
					return fmt.Errorf("routing: entry %d output %d Conditional with no valid CondPtr", i, out)
				}
				cond := t.EntryAt(r.CondPtr)
				if !cond.Valid || cond.Ocfg[out].State != Condition {
					return fmt.Errorf("routing: entry %d output %d CondPtr does not reference a Condition rule", i, out)
				}
			}
		}
		if !anyNonEmpty {
			return fmt.Errorf("routing: entry %d valid but all outputs Empty", i)
		}
	}
	return nil
}
