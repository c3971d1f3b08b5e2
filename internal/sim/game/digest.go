package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
)

// StateDigest hashes everything that decides how the rest of the attempt
// plays out: the world, every live entity with its queue depth, the dispatch
// queue, score and ledger. Two runs of the same level and program produce the
// same digest on every tick.
func (c *Controller) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, c.sched.Now())
	if c.model != nil {
		c.model.WriteDigest(h)
	}
	for _, e := range c.ents.All() {
		h.Write([]byte(e.id))
		h.Write([]byte{0})
		h.Write([]byte(e.typ))
		h.Write([]byte{0, byte(e.facing), boolByte(e.burning)})
		digestWriteI64(h, &tmp, int64(e.pos.X))
		digestWriteI64(h, &tmp, int64(e.pos.Y))
		digestWriteI64(h, &tmp, int64(e.health))
		digestWriteU64(h, &tmp, uint64(e.queue.Len()))
	}
	digestWriteU64(h, &tmp, uint64(c.dispatch.Len()))
	digestWriteI64(h, &tmp, int64(c.score))
	c.ledger.WriteDigest(h)

	return hex.EncodeToString(h.Sum(nil))
}

// StepOnce advances one tick and returns the tick reached and its digest.
func (c *Controller) StepOnce() (tick uint64, digest string) {
	c.Step()
	return c.sched.Now(), c.StateDigest()
}

func digestWriteU64(w io.Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func digestWriteI64(w io.Writer, tmp *[8]byte, v int64) {
	digestWriteU64(w, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
