package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedger_RepeatIsolation(t *testing.T) {
	l := New()
	l.Record(VerbExplode, "creeper", true)
	l.Record(VerbExplode, "creeper", false)
	l.Record(VerbExplode, "sheep", false)

	require.Equal(t, 1, l.Count(VerbExplode, "", true))
	require.Equal(t, 2, l.Count(VerbExplode, "", false))
	require.Equal(t, 1, l.Count(VerbExplode, "creeper", false))
	require.Equal(t, 1, l.Count(VerbExplode, "sheep", false))
	require.Zero(t, l.Count(VerbExplode, "sheep", true))
}

func TestLedger_UntypedRecordOnlyBumpsTotal(t *testing.T) {
	l := New()
	l.Record(VerbPlaySound, "", false)
	l.Record(VerbPlaySound, "", false)

	snap := l.Snapshot()
	require.Equal(t, 2, snap.Normal[VerbPlaySound].Count)
	require.Empty(t, snap.Normal[VerbPlaySound].ByType)
	require.Empty(t, snap.Repeat)
}

func TestLedger_ResetZeroes(t *testing.T) {
	l := New()
	l.Record(VerbAttack, "zombie", false)
	l.Reset()
	require.Zero(t, l.Count(VerbAttack, "", false))
	require.Zero(t, l.Count(VerbAttack, "zombie", false))
}

func TestLedger_SnapshotIsACopy(t *testing.T) {
	l := New()
	l.Record(VerbDrop, "sheep", false)
	snap := l.Snapshot()
	l.Record(VerbDrop, "sheep", false)
	require.Equal(t, 1, snap.Normal[VerbDrop].ByType["sheep"])
}

func digestOf(l *Ledger) string {
	h := sha256.New()
	l.WriteDigest(h)
	return hex.EncodeToString(h.Sum(nil))
}

func TestLedger_DigestIndependentOfInsertionOrder(t *testing.T) {
	a, b := New(), New()
	a.Record(VerbWait, "player", false)
	a.Record(VerbAttack, "zombie", false)
	b.Record(VerbAttack, "zombie", false)
	b.Record(VerbWait, "player", false)
	require.Equal(t, digestOf(a), digestOf(b))

	// Same verb charged to the other book must change the digest.
	c := New()
	c.Record(VerbWait, "player", true)
	c.Record(VerbAttack, "zombie", false)
	require.NotEqual(t, digestOf(a), digestOf(c))
}

func TestLedger_DigestSeparatesTypeNames(t *testing.T) {
	// Without length prefixes both books encode to the same bytes.
	a := New()
	a.Record(VerbWait, "a", false)
	a.Record(VerbWait, "b", false)

	b := New()
	b.Record(VerbWait, "a\x01\x00\x00\x00\x00\x00\x00\x00b", false)
	b.Record(VerbWait, "", false)

	require.Equal(t, a.Count(VerbWait, "", false), b.Count(VerbWait, "", false))
	require.NotEqual(t, digestOf(a), digestOf(b))
}
