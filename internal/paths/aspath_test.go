package paths

import (
	"errors"
	"reflect"
	"testing"
)

func TestDedup_ConsecutiveOnly(t *testing.T) {
	got := Dedup([]ASN{64496, 64496, 64497, 64497, 64497, 64496})
	want := []ASN{64496, 64497, 64496}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Dedup() = %v, want %v", got, want)
	}
}

func TestNewAsPath_RejectsEmpty(t *testing.T) {
	if _, err := NewAsPath(nil); !errors.Is(err, ErrMalformedRoute) {
		t.Fatalf("expected ErrMalformedRoute, got %v", err)
	}
}

func TestAsPath_AddRoute_RejectsMismatchedSequence(t *testing.T) {
	ap, err := NewAsPath([]ASN{64496, 64497})
	if err != nil {
		t.Fatalf("new as path: %v", err)
	}

	r, err := NewRoute([]ASN{64496, 64498}, mustPrefix(t, "203.0.113.0/24"), mustAddr(t, "192.0.2.1"), Peer{}, "f.mrt", nil, nil)
	if err != nil {
		t.Fatalf("new route: %v", err)
	}

	if err := ap.AddRoute(r); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestAsPath_AddRoute_IdempotentOnEqualRoute(t *testing.T) {
	ap, _ := NewAsPath([]ASN{64496, 64497})
	r, _ := NewRoute([]ASN{64496, 64497}, mustPrefix(t, "203.0.113.0/24"), mustAddr(t, "192.0.2.1"), Peer{ASN: 64500}, "f.mrt", nil, nil)

	if err := ap.AddRoute(r); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := ap.AddRoute(r); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if ap.RouteCount() != 1 {
		t.Fatalf("expected 1 stored route after duplicate insert, got %d", ap.RouteCount())
	}
	if !ap.HasRoute(r) {
		t.Fatalf("expected HasRoute to report the stored route")
	}
}

func TestAsPath_AddRoute_DedupsFromPrepending(t *testing.T) {
	// AS path as it appears on the wire after a prepend: 64496 64496 64496 64497.
	raw := []ASN{64496, 64496, 64496, 64497}
	ap, err := NewAsPath(raw)
	if err != nil {
		t.Fatalf("new as path: %v", err)
	}
	if ap.Len() != 2 {
		t.Fatalf("expected dedup'd length 2, got %d (%v)", ap.Len(), ap.Sequence())
	}

	r, err := NewRoute(raw, mustPrefix(t, "203.0.113.0/24"), mustAddr(t, "192.0.2.1"), Peer{}, "f.mrt", nil, nil)
	if err != nil {
		t.Fatalf("new route: %v", err)
	}
	if err := ap.AddRoute(r); err != nil {
		t.Fatalf("add route with prepended as_path: %v", err)
	}
}

func newTestAsPath(t *testing.T, seq []ASN) *AsPath {
	t.Helper()
	ap, err := NewAsPath(seq)
	if err != nil {
		t.Fatalf("new as path %v: %v", seq, err)
	}
	return ap
}

func TestAsPath_HasDivergenceWith_SharedMidPathDiffers(t *testing.T) {
	a := newTestAsPath(t, []ASN{1, 2, 3})
	b := newTestAsPath(t, []ASN{4, 2, 5, 3})

	if !a.HasDivergenceWith(b) {
		t.Fatalf("expected divergence: shared ASN 2 has different suffixes")
	}
	if !b.HasDivergenceWith(a) {
		t.Fatalf("expected HasDivergenceWith to be symmetric")
	}
}

func TestAsPath_HasDivergenceWith_OnlySharedAtOrigin(t *testing.T) {
	a := newTestAsPath(t, []ASN{1, 2, 3})
	b := newTestAsPath(t, []ASN{4, 5, 3})

	if a.HasDivergenceWith(b) {
		t.Fatalf("expected no divergence: only the origin is shared")
	}
	if b.HasDivergenceWith(a) {
		t.Fatalf("expected HasDivergenceWith to be symmetric")
	}
}

func TestAsPath_HasDivergenceWith_IdenticalPaths(t *testing.T) {
	a := newTestAsPath(t, []ASN{1, 2, 3})
	b := newTestAsPath(t, []ASN{1, 2, 3})

	if a.HasDivergenceWith(b) {
		t.Fatalf("expected no divergence between identical paths")
	}
}

func TestAsPath_HasDivergenceWith_SharedSuffixNoDivergence(t *testing.T) {
	a := newTestAsPath(t, []ASN{1, 9, 2, 3})
	b := newTestAsPath(t, []ASN{4, 2, 3})

	if a.HasDivergenceWith(b) {
		t.Fatalf("expected no divergence: suffix from shared ASN 2 matches in both")
	}
	if b.HasDivergenceWith(a) {
		t.Fatalf("expected HasDivergenceWith to be symmetric")
	}
}

func TestAsPath_Key_StableAcrossEquivalentConstruction(t *testing.T) {
	a := newTestAsPath(t, []ASN{64496, 64496, 64497})
	b := newTestAsPath(t, []ASN{64496, 64497})
	if a.Key() != b.Key() {
		t.Fatalf("expected equivalent (post-dedup) sequences to share a key")
	}
}
