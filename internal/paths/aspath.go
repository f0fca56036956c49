package paths

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Dedup removes consecutive duplicate ASNs from path (AS-path
// prepending cancellation). Non-consecutive duplicates are preserved
// since they are meaningful in divergence analysis (spec.md §3).
func Dedup(path []ASN) []ASN {
	if len(path) == 0 {
		return nil
	}
	out := make([]ASN, 0, len(path))
	out = append(out, path[0])
	for _, a := range path[1:] {
		if a != out[len(out)-1] {
			out = append(out, a)
		}
	}
	return out
}

func hashASNPath(path []ASN) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for _, a := range path {
		binary.BigEndian.PutUint32(buf[:], a)
		d.Write(buf[:])
	}
	return d.Sum64()
}

// AsPath is a deduplicated AS-hop sequence together with the distinct
// Routes observed to carry it (spec.md §4.2).
type AsPath struct {
	sequence []ASN
	key      uint64
	routes   map[uint64]Route
}

// NewAsPath builds an AsPath from a raw (not yet deduplicated) ASN
// sequence. Returns ErrMalformedRoute if the sequence is empty (the
// same invariant a Route's AS path must satisfy, since an AsPath only
// ever exists to hold Routes sharing it).
func NewAsPath(rawSequence []ASN) (*AsPath, error) {
	seq := Dedup(rawSequence)
	if len(seq) == 0 {
		return nil, fmt.Errorf("paths: new as path: %w: empty sequence", ErrMalformedRoute)
	}
	return &AsPath{
		sequence: seq,
		key:      hashASNPath(seq),
		routes:   make(map[uint64]Route),
	}, nil
}

// Sequence returns a copy of the deduplicated ASN sequence.
func (ap *AsPath) Sequence() []ASN {
	out := make([]ASN, len(ap.sequence))
	copy(out, ap.sequence)
	return out
}

// Key is a stable hash of the deduplicated sequence, used by
// OriginAsPaths to index AsPaths without a linear structural-equality
// scan (spec.md §9).
func (ap *AsPath) Key() uint64 { return ap.key }

// Len returns the number of hops after dedup.
func (ap *AsPath) Len() int { return len(ap.sequence) }

// Origin returns the last ASN in the deduplicated sequence.
func (ap *AsPath) Origin() ASN { return ap.sequence[len(ap.sequence)-1] }

// sameSequence reports whether other's dedup sequence is structurally
// equal to ap's.
func (ap *AsPath) sameSequence(other []ASN) bool {
	if len(ap.sequence) != len(other) {
		return false
	}
	for i := range ap.sequence {
		if ap.sequence[i] != other[i] {
			return false
		}
	}
	return true
}

// AddRoute inserts r if dedup(r.as_path) == ap's sequence and
// r.origin == ap's origin; any other input is a programming error
// (ErrInvariantViolation), never a data error — the caller is expected
// to have already routed r to the right AsPath. Insertion is idempotent:
// a second insertion of an equal Route is a silent no-op, and on
// collapse the first-observed Route (with its first-observed
// communities) is the one retained (spec.md §9).
func (ap *AsPath) AddRoute(r Route) error {
	if !ap.sameSequence(Dedup(r.ASPath())) {
		return fmt.Errorf("paths: add route: %w: as_path does not dedup to this AsPath's sequence", ErrInvariantViolation)
	}
	if r.Origin() != ap.Origin() {
		return fmt.Errorf("paths: add route: %w: route origin %d != as_path origin %d", ErrInvariantViolation, r.Origin(), ap.Origin())
	}
	if _, exists := ap.routes[r.Hash()]; exists {
		return nil
	}
	ap.routes[r.Hash()] = r
	return nil
}

// HasRoute reports whether an equal Route is already stored.
func (ap *AsPath) HasRoute(r Route) bool {
	existing, ok := ap.routes[r.Hash()]
	if !ok {
		return false
	}
	return existing.Equal(r)
}

// Routes returns the stored Routes in no particular order (spec.md §5:
// no ordering guarantee is part of the contract).
func (ap *AsPath) Routes() []Route {
	out := make([]Route, 0, len(ap.routes))
	for _, r := range ap.routes {
		out = append(out, r)
	}
	return out
}

// RouteCount returns the number of distinct Routes stored.
func (ap *AsPath) RouteCount() int { return len(ap.routes) }

// HasDivergenceWith implements spec.md §4.2's formal divergence test:
// true iff some ASN a appears in both this.sequence[0:n-1] and
// other.sequence[0:m-1] (i.e. not at either path's terminal origin
// position) and the suffixes starting from the first occurrence of a
// in each path are unequal. The predicate scans this path left to
// right and is not symmetric in which element triggers a positive
// result first, but is symmetric in outcome (spec.md invariant 6):
// for a fixed shared ASN, "suffix from its first occurrence in A" vs
// "suffix from its first occurrence in B" is well-defined independent
// of which path's scan initiated the comparison.
func (ap *AsPath) HasDivergenceWith(other *AsPath) bool {
	n, m := len(ap.sequence), len(other.sequence)
	if n < 2 || m < 2 {
		return false
	}

	seen := make(map[ASN]bool, n-1)
	for i := 0; i < n-1; i++ {
		a := ap.sequence[i]
		if seen[a] {
			continue
		}
		seen[a] = true

		j := firstIndexIn(other.sequence[:m-1], a)
		if j < 0 {
			continue
		}

		if !equalASNSlice(ap.sequence[i:], other.sequence[j:]) {
			return true
		}
	}
	return false
}

func firstIndexIn(haystack []ASN, needle ASN) int {
	for i, v := range haystack {
		if v == needle {
			return i
		}
	}
	return -1
}

func equalASNSlice(a, b []ASN) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
