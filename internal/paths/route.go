package paths

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/cespare/xxhash/v2"
)

// ASN is a BGP four-octet Autonomous System Number (RFC 6793).
type ASN = uint32

// Peer identifies the collector session a route was observed on.
type Peer struct {
	ASN   ASN
	Addr  netip.Addr
	BGPID netip.Addr
}

// Community is a standard (RFC 1997) BGP community attribute value.
type Community struct {
	High uint16
	Low  uint16
}

// LargeCommunity is an RFC 8092 large community value.
type LargeCommunity struct {
	GlobalAdmin uint32
	LocalData1  uint32
	LocalData2  uint32
}

// Route is an immutable record of one RIB entry as it contributes to the
// global path-aggregation view. Two Routes are equal iff their as_path,
// filename, next_hop, peer, and prefix all match; communities are
// intentionally excluded from equality (spec.md §9) since they are
// transient policy tags, not route identity.
type Route struct {
	asPath           []ASN
	prefix           netip.Prefix
	nextHop          netip.Addr
	peer             Peer
	filename         string
	communities      []Community
	largeCommunities []LargeCommunity
	hash             uint64
}

// NewRoute builds an immutable Route. as_path must be non-empty; its
// last element is the route's origin ASN. Slices are copied so the
// caller's backing arrays can be reused or mutated freely afterwards.
func NewRoute(asPath []ASN, prefix netip.Prefix, nextHop netip.Addr, peer Peer, filename string, communities []Community, largeCommunities []LargeCommunity) (Route, error) {
	if len(asPath) == 0 {
		return Route{}, fmt.Errorf("paths: new route: %w: empty as_path", ErrMalformedRoute)
	}

	asPathCopy := make([]ASN, len(asPath))
	copy(asPathCopy, asPath)

	var commCopy []Community
	if len(communities) > 0 {
		commCopy = make([]Community, len(communities))
		copy(commCopy, communities)
	}
	var largeCommCopy []LargeCommunity
	if len(largeCommunities) > 0 {
		largeCommCopy = make([]LargeCommunity, len(largeCommunities))
		copy(largeCommCopy, largeCommunities)
	}

	r := Route{
		asPath:           asPathCopy,
		prefix:           prefix,
		nextHop:          nextHop,
		peer:             peer,
		filename:         filename,
		communities:      commCopy,
		largeCommunities: largeCommCopy,
	}
	r.hash = hashRoute(r)
	return r, nil
}

// ASPath returns a copy of the route's AS path as received on the wire
// (may contain consecutive duplicates from prepending).
func (r Route) ASPath() []ASN {
	out := make([]ASN, len(r.asPath))
	copy(out, r.asPath)
	return out
}

// Origin returns the last ASN in the AS path.
func (r Route) Origin() ASN {
	return r.asPath[len(r.asPath)-1]
}

func (r Route) Prefix() netip.Prefix { return r.prefix }
func (r Route) NextHop() netip.Addr  { return r.nextHop }
func (r Route) Peer() Peer           { return r.peer }
func (r Route) Filename() string     { return r.filename }

func (r Route) Communities() []Community {
	out := make([]Community, len(r.communities))
	copy(out, r.communities)
	return out
}

func (r Route) LargeCommunities() []LargeCommunity {
	out := make([]LargeCommunity, len(r.largeCommunities))
	copy(out, r.largeCommunities)
	return out
}

// Equal implements the equality rule from spec.md §3: as_path, filename,
// next_hop, peer, and prefix must all match. Communities are excluded.
func (r Route) Equal(other Route) bool {
	if r.hash != other.hash {
		return false
	}
	if r.filename != other.filename || r.nextHop != other.nextHop ||
		r.peer != other.peer || r.prefix != other.prefix {
		return false
	}
	if len(r.asPath) != len(other.asPath) {
		return false
	}
	for i := range r.asPath {
		if r.asPath[i] != other.asPath[i] {
			return false
		}
	}
	return true
}

// Hash returns a stable hash over the equality fields, in the order the
// equality rule lists them (as_path, filename, next_hop, peer, prefix).
// Used to index Routes in AsPath without
// a quadratic linear scan (spec.md §9).
func (r Route) Hash() uint64 { return r.hash }

func hashRoute(r Route) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for _, a := range r.asPath {
		binary.BigEndian.PutUint32(buf[:], a)
		d.Write(buf[:])
	}
	d.Write([]byte{0})
	d.Write([]byte(r.filename))
	d.Write([]byte{0})
	if r.nextHop.IsValid() {
		ip16 := r.nextHop.As16()
		d.Write(ip16[:])
	}
	binary.BigEndian.PutUint32(buf[:], r.peer.ASN)
	d.Write(buf[:])
	if r.peer.Addr.IsValid() {
		ip16 := r.peer.Addr.As16()
		d.Write(ip16[:])
	}
	if r.peer.BGPID.IsValid() {
		ip16 := r.peer.BGPID.As16()
		d.Write(ip16[:])
	}
	if r.prefix.IsValid() {
		ip16 := r.prefix.Addr().As16()
		d.Write(ip16[:])
		d.Write([]byte{byte(r.prefix.Bits())})
	}
	return d.Sum64()
}
