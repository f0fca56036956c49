package mrtdump

import "errors"

// Sentinel error kinds surfaced while decoding an MRT TABLE_DUMP_V2 stream.
var (
	// ErrMalformedMrt marks truncated or structurally invalid MRT framing:
	// a header, length, or section that does not fit the bytes available.
	ErrMalformedMrt = errors.New("mrtdump: malformed mrt stream")

	// ErrUnexpectedRecordType is returned for MRT type/subtype combinations
	// this decoder does not support (anything other than TABLE_DUMP_V2's
	// PEER_INDEX_TABLE, RIB_IPV4_UNICAST, and RIB_IPV6_UNICAST).
	ErrUnexpectedRecordType = errors.New("mrtdump: unexpected record type")

	// ErrMissingAttribute marks a RIB entry whose attribute set lacks a
	// field this decoder requires to build a route (AS_PATH or a usable
	// next hop).
	ErrMissingAttribute = errors.New("mrtdump: missing attribute")
)
