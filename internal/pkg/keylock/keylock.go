// Package keylock serializes work on the same record id over a fixed set of
// lock stripes, so the lock table never grows past Stripes entries.
package keylock

import (
	"hash/fnv"

	"github.com/fishy/rowlock"
)

const Stripes = 256

type Locks struct {
	rows *rowlock.RowLock
}

func New() *Locks {
	return &Locks{rows: rowlock.NewRowLock(rowlock.MutexNewLocker)}
}

func (l *Locks) Lock(id string) {
	l.rows.Lock(Stripe(id))
}

func (l *Locks) Unlock(id string) {
	l.rows.Unlock(Stripe(id))
}

// Stripe maps id onto one of Stripes lock slots. Distinct ids may share a slot.
func Stripe(id string) uint8 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return uint8(h.Sum32() % Stripes)
}
