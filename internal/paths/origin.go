package paths

import "fmt"

// OriginAsPaths holds every distinct AsPath observed for one origin
// ASN (spec.md §4.3). AsPaths are indexed by a hash of their
// deduplicated sequence rather than the structural linear scan the
// Rust source uses, per spec.md §9.
type OriginAsPaths struct {
	origin  ASN
	asPaths map[uint64]*AsPath
}

// NewOriginAsPaths creates an empty container for the given origin.
func NewOriginAsPaths(origin ASN) *OriginAsPaths {
	return &OriginAsPaths{
		origin:  origin,
		asPaths: make(map[uint64]*AsPath),
	}
}

// Origin returns the ASN all contained AsPaths terminate at.
func (o *OriginAsPaths) Origin() ASN { return o.origin }

// AddRoute routes r into the AsPath matching dedup(r.as_path),
// creating that AsPath if this is the first Route seen for its
// sequence. Returns ErrInvariantViolation if r.Origin() does not match
// this container's origin.
func (o *OriginAsPaths) AddRoute(r Route) error {
	if r.Origin() != o.origin {
		return fmt.Errorf("paths: origin as paths: add route: %w: route origin %d != container origin %d", ErrInvariantViolation, r.Origin(), o.origin)
	}

	key := hashASNPath(Dedup(r.ASPath()))
	ap, ok := o.asPaths[key]
	if !ok {
		var err error
		ap, err = NewAsPath(r.ASPath())
		if err != nil {
			return err
		}
		o.asPaths[key] = ap
	}
	return ap.AddRoute(r)
}

// AddAsPath inserts an already-built AsPath wholesale, merging its
// Routes into any existing AsPath with the same sequence. Used when
// combining results across MRT files (spec.md §4.4).
func (o *OriginAsPaths) AddAsPath(ap *AsPath) error {
	if ap.Origin() != o.origin {
		return fmt.Errorf("paths: origin as paths: add as path: %w: as_path origin %d != container origin %d", ErrInvariantViolation, ap.Origin(), o.origin)
	}

	existing, ok := o.asPaths[ap.key]
	if !ok {
		o.asPaths[ap.key] = ap
		return nil
	}
	for _, r := range ap.routes {
		if err := existing.AddRoute(r); err != nil {
			return err
		}
	}
	return nil
}

// HasAsPath reports whether a deduplicated sequence equal to seq is
// already present.
func (o *OriginAsPaths) HasAsPath(seq []ASN) bool {
	deduped := Dedup(seq)
	ap, ok := o.asPaths[hashASNPath(deduped)]
	return ok && ap.sameSequence(deduped)
}

// HasRoute reports whether an equal Route is stored under any AsPath.
func (o *OriginAsPaths) HasRoute(r Route) bool {
	ap, ok := o.asPaths[hashASNPath(Dedup(r.ASPath()))]
	if !ok {
		return false
	}
	return ap.HasRoute(r)
}

// AsPaths returns the contained AsPaths in no particular order.
func (o *OriginAsPaths) AsPaths() []*AsPath {
	out := make([]*AsPath, 0, len(o.asPaths))
	for _, ap := range o.asPaths {
		out = append(out, ap)
	}
	return out
}

// Count returns the number of distinct AsPaths held.
func (o *OriginAsPaths) Count() int { return len(o.asPaths) }

// MergeFrom absorbs other's AsPaths into o, merging Routes for any
// sequence both sides already hold. other is left populated but is
// expected to be discarded by the caller (spec.md §4.4's tree merge
// drops the absorbed half after each round).
func (o *OriginAsPaths) MergeFrom(other *OriginAsPaths) error {
	if other.origin != o.origin {
		return fmt.Errorf("paths: origin as paths: merge: %w: origin %d != origin %d", ErrInvariantViolation, other.origin, o.origin)
	}
	for key, ap := range other.asPaths {
		existing, ok := o.asPaths[key]
		if !ok {
			o.asPaths[key] = ap
			continue
		}
		for _, r := range ap.routes {
			if err := existing.AddRoute(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveSingleHopAsPaths drops every AsPath of length 1 — a bare
// origin announcement carries no divergence information and only
// dilutes the anomaly-mining passes (spec.md §4.4). Returns the
// number of AsPaths removed.
func (o *OriginAsPaths) RemoveSingleHopAsPaths() int {
	removed := 0
	for key, ap := range o.asPaths {
		if ap.Len() <= 1 {
			delete(o.asPaths, key)
			removed++
		}
	}
	return removed
}
