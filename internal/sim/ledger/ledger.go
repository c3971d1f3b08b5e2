package ledger

import (
	"encoding/binary"
	"io"
	"sort"
)

// Verbs recorded by the dispatcher.
const (
	VerbMoveAway    = "moveAway"
	VerbMoveToward  = "moveToward"
	VerbMoveForward = "moveForward"
	VerbTurn        = "turn"
	VerbTurnRandom  = "turnRandom"
	VerbExplode     = "explode"
	VerbWait        = "wait"
	VerbFlash       = "flash"
	VerbDrop        = "drop"
	VerbSpawn       = "spawn"
	VerbDestroy     = "destroy"
	VerbPlaySound   = "playSound"
	VerbAttack      = "attack"
	VerbAddScore    = "addScore"
)

// Record is the count for one verb: a total plus a breakdown by entity type.
type Record struct {
	Count  int            `json:"count"`
	ByType map[string]int `json:"by_type,omitempty"`
}

// Ledger counts invocations per verb, with a separate book for commands
// issued in repeat mode. Counts only grow until Reset.
type Ledger struct {
	normal map[string]*Record
	repeat map[string]*Record
}

func New() *Ledger {
	l := &Ledger{}
	l.Reset()
	return l
}

func (l *Ledger) Reset() {
	l.normal = map[string]*Record{}
	l.repeat = map[string]*Record{}
}

func (l *Ledger) book(repeat bool) map[string]*Record {
	if repeat {
		return l.repeat
	}
	return l.normal
}

// Record charges one invocation of verb. typ may be empty when the action is
// not attributable to an entity; only the total is bumped then.
func (l *Ledger) Record(verb, typ string, repeat bool) {
	b := l.book(repeat)
	r := b[verb]
	if r == nil {
		r = &Record{ByType: map[string]int{}}
		b[verb] = r
	}
	r.Count++
	if typ != "" {
		r.ByType[typ]++
	}
}

// Count returns the total for verb when typ is empty, else the per-type count.
func (l *Ledger) Count(verb, typ string, repeat bool) int {
	r := l.book(repeat)[verb]
	if r == nil {
		return 0
	}
	if typ == "" {
		return r.Count
	}
	return r.ByType[typ]
}

// Snapshot is a copy of both books, suitable for JSON output.
type Snapshot struct {
	Normal map[string]Record `json:"normal"`
	Repeat map[string]Record `json:"repeat"`
}

func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{Normal: copyBook(l.normal), Repeat: copyBook(l.repeat)}
}

func copyBook(b map[string]*Record) map[string]Record {
	out := make(map[string]Record, len(b))
	for verb, r := range b {
		byType := make(map[string]int, len(r.ByType))
		for k, v := range r.ByType {
			byType[k] = v
		}
		out[verb] = Record{Count: r.Count, ByType: byType}
	}
	return out
}

// WriteDigest feeds a key-sorted encoding of both books into w. Strings and
// maps carry their length so adjacent fields cannot run into each other.
func (l *Ledger) WriteDigest(w io.Writer) {
	var tmp [8]byte
	for _, b := range []map[string]*Record{l.normal, l.repeat} {
		verbs := make([]string, 0, len(b))
		for verb := range b {
			verbs = append(verbs, verb)
		}
		sort.Strings(verbs)
		writeUint(w, &tmp, uint64(len(verbs)))
		for _, verb := range verbs {
			r := b[verb]
			writeString(w, &tmp, verb)
			writeUint(w, &tmp, uint64(r.Count))
			writeSortedIntMap(w, &tmp, r.ByType)
		}
	}
}

func writeUint(w io.Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func writeString(w io.Writer, tmp *[8]byte, s string) {
	writeUint(w, tmp, uint64(len(s)))
	io.WriteString(w, s)
}

func writeSortedIntMap(w io.Writer, tmp *[8]byte, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	writeUint(w, tmp, uint64(len(keys)))
	for _, k := range keys {
		writeString(w, tmp, k)
		writeUint(w, tmp, uint64(m[k]))
	}
}
