package merger

import (
	"crypto/sha256"
	"sync"
)

// Fingerprint is the digest of an (author, text) pair.
type Fingerprint [sha256.Size]byte

// FingerprintOf returns the fingerprint of a message.
func FingerprintOf(author, text string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(author))
	h.Write([]byte{0})
	h.Write([]byte(text))
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// Ring is a fixed capacity FIFO set of fingerprints.
type Ring struct {
	mu    sync.Mutex
	cap   int
	buf   []Fingerprint
	next  int
	index map[Fingerprint]struct{}
}

// NewRing creates a ring holding at most capacity fingerprints.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 50
	}
	return &Ring{
		cap:   capacity,
		buf:   make([]Fingerprint, 0, capacity),
		index: make(map[Fingerprint]struct{}, capacity),
	}
}

// Contains reports whether fp is in the ring.
func (r *Ring) Contains(fp Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.index[fp]
	return ok
}

// Add inserts fp, evicting the oldest entry when full. It reports false when
// fp was already present.
func (r *Ring) Add(fp Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[fp]; ok {
		return false
	}
	if len(r.buf) < r.cap {
		r.buf = append(r.buf, fp)
	} else {
		delete(r.index, r.buf[r.next])
		r.buf[r.next] = fp
		r.next = (r.next + 1) % r.cap
	}
	r.index[fp] = struct{}{}
	return true
}

// Len returns the number of stored fingerprints.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return r.cap }

// Clear empties the ring.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = r.buf[:0]
	r.next = 0
	r.index = make(map[Fingerprint]struct{}, r.cap)
}
