package mrtdump

import (
	"net/netip"
	"time"

	"github.com/route-beacon/aspath-miner/internal/paths"
)

// MRT message type. TABLE_DUMP_V2 is the only type this decoder reads;
// any other top-level type is an ErrUnexpectedRecordType.
const mrtTypeTableDumpV2 uint16 = 13

// TABLE_DUMP_V2 subtypes (RFC 6396 §4.3). Only the non-Add-Path unicast
// RIB subtypes and the peer index table are supported.
const (
	subtypePeerIndexTable  uint16 = 1
	subtypeRibIPv4Unicast  uint16 = 2
	subtypeRibIPv6Unicast  uint16 = 4
)

// BGP path attribute type codes (shared with the RIB-entry attribute walk).
const (
	attrTypeOrigin         uint8 = 1
	attrTypeASPath         uint8 = 2
	attrTypeNextHop        uint8 = 3
	attrTypeMED            uint8 = 4
	attrTypeLocalPref      uint8 = 5
	attrTypeCommunity      uint8 = 8
	attrTypeMPReachNLRI    uint8 = 14
	attrTypeMPUnreachNLRI  uint8 = 15
	attrTypeLargeCommunity uint8 = 32
)

// AS_PATH segment types (RFC 4271 §4.3).
const (
	asPathSegmentSet      uint8 = 1
	asPathSegmentSequence uint8 = 2
)

// AFI codes.
const (
	afiIPv4 uint16 = 1
	afiIPv6 uint16 = 2
)

// Header is the 12-byte MRT common header preceding every record.
type Header struct {
	Timestamp time.Time
	Type      uint16
	Subtype   uint16
	Length    uint32
}

// PeerEntry is one row of a PEER_INDEX_TABLE.
type PeerEntry struct {
	BGPID netip.Addr
	Addr  netip.Addr
	ASN   paths.ASN
}

// PeerIndexTable is always the first record in a TABLE_DUMP_V2 stream. It
// resolves the PeerIndex field on every following RIB entry to a Peer.
type PeerIndexTable struct {
	CollectorBGPID netip.Addr
	ViewName       string
	Peers          []PeerEntry
}

// ASPathSegment is one AS_SEQUENCE or AS_SET run within an AS_PATH
// attribute. A RIB entry's AS_PATH attribute is a sequence of these,
// almost always a single AS_SEQUENCE segment in modern table dumps, but
// AS_SET segments still appear from routes that crossed a confederation
// or were manually aggregated.
type ASPathSegment struct {
	Set  bool
	ASNs []paths.ASN
}

// Attributes holds the BGP path attributes parsed out of one RIB-entry
// peer record, retargeted from display strings (as the teacher's BGP
// attribute parser produces) to the typed values the path-aggregation
// engine operates on.
type Attributes struct {
	ASPath []ASPathSegment
	// ASPathSeen distinguishes an AS_PATH attribute that was never present
	// (ASPath stays nil) from one that was present but carried zero
	// segments, an iBGP-style empty path — the latter leaves ASPath nil
	// too, so presence cannot be inferred from ASPath alone.
	ASPathSeen       bool
	NextHop          netip.Addr
	Origin           uint8
	MED              *uint32
	LocalPref        *uint32
	Communities      []paths.Community
	LargeCommunities []paths.LargeCommunity
}

// RibPeerEntry is one per-peer attribute set attached to a RIB entry.
type RibPeerEntry struct {
	PeerIndex      uint16
	OriginatedTime time.Time
	Attributes     Attributes
}

// RibEntry is one prefix's worth of per-peer route data from a RIB_IPV4_
// UNICAST or RIB_IPV6_UNICAST record.
type RibEntry struct {
	SequenceNumber uint32
	Prefix         netip.Prefix
	Entries        []RibPeerEntry
}

// RecordKind discriminates the two record shapes Record can carry.
type RecordKind int

const (
	KindPeerIndexTable RecordKind = iota
	KindRibEntry
)

// Record is one decoded MRT record: either the single PeerIndexTable at
// the start of the stream, or a RibEntry further on.
type Record struct {
	Header         Header
	Kind           RecordKind
	PeerIndexTable *PeerIndexTable
	RibEntry       *RibEntry
}
