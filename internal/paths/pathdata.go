package paths

// PathData is the full aggregated view produced from one or more MRT
// files: every distinct AsPath observed, grouped by origin ASN
// (spec.md §4.4).
type PathData struct {
	origins map[ASN]*OriginAsPaths
}

// NewPathData returns an empty PathData, ready to accept Routes.
func NewPathData() *PathData {
	return &PathData{origins: make(map[ASN]*OriginAsPaths)}
}

// InsertRoute routes r to the OriginAsPaths for r.Origin(), creating
// it on first use. Insertion is idempotent: inserting an equal Route
// twice is a no-op (spec.md §4.4).
func (pd *PathData) InsertRoute(r Route) error {
	origin := r.Origin()
	oap, ok := pd.origins[origin]
	if !ok {
		oap = NewOriginAsPaths(origin)
		pd.origins[origin] = oap
	}
	return oap.AddRoute(r)
}

// Origins returns the OriginAsPaths for every origin ASN seen so far,
// in no particular order.
func (pd *PathData) Origins() []*OriginAsPaths {
	out := make([]*OriginAsPaths, 0, len(pd.origins))
	for _, oap := range pd.origins {
		out = append(out, oap)
	}
	return out
}

// OriginAsPathsFor returns the OriginAsPaths for origin, or nil if
// nothing has been recorded for it.
func (pd *PathData) OriginAsPathsFor(origin ASN) *OriginAsPaths {
	return pd.origins[origin]
}

// CountOrigins returns the number of distinct origin ASNs held.
func (pd *PathData) CountOrigins() int { return len(pd.origins) }

// CountAsPaths returns the total number of distinct AsPaths across
// every origin.
func (pd *PathData) CountAsPaths() int {
	total := 0
	for _, oap := range pd.origins {
		total += oap.Count()
	}
	return total
}

// MergeFrom absorbs other's origins into pd, merging per-origin
// AsPath sets where both sides already hold the same origin. other is
// left populated but is expected to be discarded by the caller.
func (pd *PathData) MergeFrom(other *PathData) error {
	for origin, oap := range other.origins {
		existing, ok := pd.origins[origin]
		if !ok {
			pd.origins[origin] = oap
			continue
		}
		if err := existing.MergeFrom(oap); err != nil {
			return err
		}
	}
	return nil
}

// RemoveOriginsWithSingleAsPath drops every origin that ended up with
// at most one AsPath: a single path to an origin cannot diverge from
// anything and is not interesting to the anomaly-mining passes
// (spec.md §4.4). Returns the number of origins removed.
func (pd *PathData) RemoveOriginsWithSingleAsPath() int {
	removed := 0
	for origin, oap := range pd.origins {
		if oap.Count() <= 1 {
			delete(pd.origins, origin)
			removed++
		}
	}
	return removed
}

// RemoveSingleHopAsPaths drops single-hop AsPaths from every origin,
// then drops any origin left with no AsPaths at all. Returns the
// number of AsPaths removed.
func (pd *PathData) RemoveSingleHopAsPaths() int {
	removed := 0
	for origin, oap := range pd.origins {
		removed += oap.RemoveSingleHopAsPaths()
		if oap.Count() == 0 {
			delete(pd.origins, origin)
		}
	}
	return removed
}
