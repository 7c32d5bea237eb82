package search

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/gapper/move"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

const entrySize = 16

const depthMask = (1 << 6) - 1

// TableEntry is 16 bytes (entrySize). The full hash is kept so small tables
// stay collision-safe; depth and flag share a byte.
type TableEntry struct {
	fullHash     uint64
	score        float32
	play         move.TinyMove
	flagAndDepth uint8
}

func (t TableEntry) flag() uint8 {
	return t.flagAndDepth >> 6
}

func (t TableEntry) depth() uint8 {
	return t.flagAndDepth & depthMask
}

func (t TableEntry) valid() bool {
	// a table flag is 1, 2, or 3.
	return t.flag() != 0
}

func (t TableEntry) move() move.TinyMove {
	return t.play
}

type TableLock interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type FakeLock struct{}

func (f FakeLock) Lock()    {}
func (f FakeLock) Unlock()  {}
func (f FakeLock) RLock()   {}
func (f FakeLock) RUnlock() {}

// TranspositionTable caches search results keyed by board signature.
// Entries are never authoritative across evaluator or search configurations;
// the solver resets the table whenever the config signature changes.
type TranspositionTable struct {
	TableLock
	table        []TableEntry
	created      atomic.Uint64
	lookups      atomic.Uint64
	hits         atomic.Uint64
	sizeMask     uint64
	sizePowerOf2 int
	// "type 2" collisions: two positions sharing the same table slot.
	t2collisions atomic.Uint64

	cfgSignature uint64
}

func (t *TranspositionTable) SetSingleThreadedMode() {
	t.TableLock = FakeLock{}
}

func (t *TranspositionTable) SetMultiThreadedMode() {
	t.TableLock = &sync.RWMutex{}
}

func (t *TranspositionTable) lookup(zval uint64) TableEntry {
	t.RLock()
	defer t.RUnlock()
	t.lookups.Add(1)
	idx := zval & t.sizeMask
	entry := t.table[idx]
	if entry.fullHash != zval {
		if entry.valid() {
			t.t2collisions.Add(1)
		}
		return TableEntry{}
	}
	t.hits.Add(1)
	return entry
}

// store is depth-preferred: a deeper entry for the same position is never
// overwritten by a shallower one. Unrelated positions landing in the same
// slot always replace.
func (t *TranspositionTable) store(zval uint64, tentry TableEntry) {
	idx := zval & t.sizeMask
	tentry.fullHash = zval
	t.Lock()
	defer t.Unlock()
	existing := t.table[idx]
	if existing.valid() && existing.fullHash == zval && existing.depth() > tentry.depth() {
		return
	}
	t.table[idx] = tentry
	t.created.Add(1)
}

// Reset sizes the table to a fraction of system memory (power-of-two slot
// count, minimum 2^16) and clears it, along with the stats counters.
func (t *TranspositionTable) Reset(fractionOfMemory float64) {
	t.Lock()
	defer t.Unlock()
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	t.sizePowerOf2 = int(math.Log2(desiredNElems))
	if t.sizePowerOf2 < 16 {
		t.sizePowerOf2 = 16
	}

	numElems := 1 << t.sizePowerOf2
	t.sizeMask = uint64(numElems - 1)
	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		clear(t.table)
	} else {
		t.table = make([]TableEntry, numElems)
	}

	log.Info().Int("num-elems", numElems).
		Float64("desired-num-elems", desiredNElems).
		Int("estimated-total-memory-bytes", numElems*entrySize).
		Uint64("total-system-memory-bytes", totalMem).
		Bool("reset", reset).
		Msg("transposition-table-size")

	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.t2collisions.Store(0)
}
