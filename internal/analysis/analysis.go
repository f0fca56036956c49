// Package analysis implements the anomaly-mining passes that run over a
// fully merged PathData: divergent paths to the same origin, and BGP
// communities that reference an ASN absent from their own route's AS
// path.
package analysis

import "github.com/route-beacon/aspath-miner/internal/paths"

// DivergenceFinding records one pair of AsPaths to the same origin that
// share a mid-path ASN but disagree on what follows it — a signature of
// route leaks, hijacks, or inconsistent aggregation (spec.md §1).
type DivergenceFinding struct {
	Origin    paths.ASN
	SequenceA []paths.ASN
	SequenceB []paths.ASN
}

// PathDivergence compares every pair of AsPaths under each origin and
// reports the pairs that diverge (internal/paths.AsPath.HasDivergenceWith).
// Pair count is quadratic in AsPaths per origin, which is acceptable:
// spec.md's RemoveOriginsWithSingleAsPath / RemoveSingleHopAsPaths
// reductions keep that count small before analysis ever runs.
func PathDivergence(pd *paths.PathData) []DivergenceFinding {
	var findings []DivergenceFinding

	for _, oap := range pd.Origins() {
		asPaths := oap.AsPaths()
		for i := 0; i < len(asPaths); i++ {
			for j := i + 1; j < len(asPaths); j++ {
				if asPaths[i].HasDivergenceWith(asPaths[j]) {
					findings = append(findings, DivergenceFinding{
						Origin:    oap.Origin(),
						SequenceA: asPaths[i].Sequence(),
						SequenceB: asPaths[j].Sequence(),
					})
				}
			}
		}
	}

	return findings
}

// CommunityMismatchFinding records a standard or large BGP community
// whose embedded ASN does not appear anywhere in its own route's AS
// path — usually a stale or copy-pasted policy tag that no longer
// matches the path it rides on.
type CommunityMismatchFinding struct {
	Origin        paths.ASN
	Route         paths.Route
	ReferencedASN paths.ASN
	Large         bool
}

// CommunityOriginMismatch scans every stored Route's communities and
// large communities, interpreting a standard community's high 16 bits
// and a large community's global administrator field as an ASN
// reference, and reports any that are absent from the route's own
// (deduplicated) AS path (spec.md §1).
func CommunityOriginMismatch(pd *paths.PathData) []CommunityMismatchFinding {
	var findings []CommunityMismatchFinding

	for _, oap := range pd.Origins() {
		for _, ap := range oap.AsPaths() {
			present := asnSet(ap.Sequence())
			for _, route := range ap.Routes() {
				for _, c := range route.Communities() {
					asn := paths.ASN(c.High)
					if !present[asn] {
						findings = append(findings, CommunityMismatchFinding{
							Origin:        oap.Origin(),
							Route:         route,
							ReferencedASN: asn,
						})
					}
				}
				for _, lc := range route.LargeCommunities() {
					if !present[lc.GlobalAdmin] {
						findings = append(findings, CommunityMismatchFinding{
							Origin:        oap.Origin(),
							Route:         route,
							ReferencedASN: lc.GlobalAdmin,
							Large:         true,
						})
					}
				}
			}
		}
	}

	return findings
}

func asnSet(seq []paths.ASN) map[paths.ASN]bool {
	set := make(map[paths.ASN]bool, len(seq))
	for _, a := range seq {
		set[a] = true
	}
	return set
}
