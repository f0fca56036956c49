// Package ingest drives the worker pool that turns a set of MRT RIB
// files into one merged PathData: one goroutine decodes and aggregates
// each file independently, and a pairwise tree merge combines the
// per-file results (internal/paths.MergePathData) once every worker has
// finished.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/route-beacon/aspath-miner/internal/metrics"
	"github.com/route-beacon/aspath-miner/internal/mrtdump"
	"github.com/route-beacon/aspath-miner/internal/paths"
)

// Run decodes files concurrently (at most concurrency at a time) and
// returns their merged PathData. A decode failure on any file aborts
// the whole run: per spec, a worker failure discards all in-flight
// results rather than returning a partial PathData (no silent data
// loss disguised as success).
func Run(ctx context.Context, files []string, concurrency int) (*paths.PathData, error) {
	if len(files) == 0 {
		return paths.NewPathData(), nil
	}

	results := make([]*paths.PathData, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pd, err := ParseFile(file)
			if err != nil {
				return fmt.Errorf("ingest: %s: %w", file, err)
			}
			results[i] = pd
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	timer := prometheus.NewTimer(metrics.MergeDuration.WithLabelValues())
	defer timer.ObserveDuration()

	return paths.MergePathData(results)
}

// ParseFile decodes a single MRT RIB file into a PathData, resolving
// every RIB entry's peer and expanding AS_SET segments into one Route
// per member (spec.md §4.1). The filename used for Route identity is
// the file's base name, not its full path, so the same file processed
// from two different directories still collapses to the same Routes.
func ParseFile(path string) (*paths.PathData, error) {
	start := time.Now()

	pd, err := parseFile(path)

	metrics.FileParseDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		return nil, err
	}
	metrics.FilesParsedTotal.WithLabelValues().Inc()
	return pd, nil
}

func parseFile(path string) (*paths.PathData, error) {
	r, err := mrtdump.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	pd := paths.NewPathData()
	dec := mrtdump.NewDecoder(r)
	filename := filepath.Base(path)

	for {
		rec, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: decode %s: %w", filename, err)
		}

		if rec.Kind != mrtdump.KindRibEntry {
			continue
		}

		if err := insertRibEntry(pd, rec.RibEntry, dec.Peers(), filename); err != nil {
			return nil, fmt.Errorf("ingest: %s: %w", filename, err)
		}
	}

	return pd, nil
}

// errorKind classifies a decode/insert failure into a bounded label value
// for ParseErrorsTotal, so the "kind" cardinality stays fixed regardless of
// how many distinct files or prefixes ever fail.
func errorKind(err error) string {
	switch {
	case errors.Is(err, mrtdump.ErrMalformedMrt):
		return "malformed_mrt"
	case errors.Is(err, mrtdump.ErrUnexpectedRecordType):
		return "unexpected_record_type"
	case errors.Is(err, mrtdump.ErrMissingAttribute):
		return "missing_attribute"
	case errors.Is(err, paths.ErrMalformedRoute):
		return "malformed_route"
	case errors.Is(err, paths.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "other"
	}
}

func insertRibEntry(pd *paths.PathData, entry *mrtdump.RibEntry, peers []mrtdump.PeerEntry, filename string) error {
	for _, pe := range entry.Entries {
		if int(pe.PeerIndex) >= len(peers) {
			return fmt.Errorf("peer index %d out of range (%d peers known)", pe.PeerIndex, len(peers))
		}
		peerInfo := peers[pe.PeerIndex]
		peer := paths.Peer{ASN: peerInfo.ASN, Addr: peerInfo.Addr, BGPID: peerInfo.BGPID}

		if !pe.Attributes.ASPathSeen {
			return fmt.Errorf("%w: rib entry for %s has no as_path attribute", mrtdump.ErrMissingAttribute, entry.Prefix)
		}
		if len(pe.Attributes.ASPath) == 0 {
			// Present but empty: an iBGP-style empty AS_PATH, not an error.
			// Skip this one peer entry rather than aborting the file.
			continue
		}
		if !pe.Attributes.NextHop.IsValid() {
			return fmt.Errorf("%w: rib entry for %s has no usable next hop", mrtdump.ErrMissingAttribute, entry.Prefix)
		}

		variants, err := expandASPath(pe.Attributes.ASPath)
		if err != nil {
			return err
		}

		for _, seq := range variants {
			route, err := paths.NewRoute(seq, entry.Prefix, pe.Attributes.NextHop, peer, filename, pe.Attributes.Communities, pe.Attributes.LargeCommunities)
			if err != nil {
				return err
			}
			if err := pd.InsertRoute(route); err != nil {
				return err
			}
			metrics.RoutesInsertedTotal.WithLabelValues().Inc()
		}
	}
	return nil
}

// expandASPath flattens an AS_PATH's AS_SEQUENCE/AS_SET segments into
// one or more concrete ASN sequences: AS_SEQUENCE segments extend every
// in-flight variant, and an AS_SET segment fans each variant out into
// one copy per member ASN (spec.md §4.1). An AS_SET segment appearing
// before any AS_SEQUENCE data is malformed — it would have no
// predecessor ASNs to attach to.
func expandASPath(segments []mrtdump.ASPathSegment) ([][]paths.ASN, error) {
	variants := [][]paths.ASN{{}}
	haveSequence := false

	for _, seg := range segments {
		if !seg.Set {
			haveSequence = true
			for i := range variants {
				variants[i] = append(variants[i], seg.ASNs...)
			}
			continue
		}

		if !haveSequence {
			return nil, fmt.Errorf("%w: as_set segment with no preceding as_sequence", mrtdump.ErrMalformedMrt)
		}

		fanned := make([][]paths.ASN, 0, len(variants)*len(seg.ASNs))
		for _, v := range variants {
			for _, asn := range seg.ASNs {
				next := make([]paths.ASN, len(v)+1)
				copy(next, v)
				next[len(v)] = asn
				fanned = append(fanned, next)
			}
		}
		variants = fanned
	}

	return variants, nil
}
