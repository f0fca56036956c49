package mrtdump

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/route-beacon/aspath-miner/internal/paths"
)

// parsePathAttributes walks the flag/type/length attribute sequence of one
// RIB-entry peer record, adapted from the BGP UPDATE attribute walk this
// decoder's wire framing is otherwise unrelated to: the attribute TLV
// encoding is identical whether it arrives inside an UPDATE message or,
// as here, inside an MRT TABLE_DUMP_V2 RIB entry (RFC 6396 §4.3.4).
func parsePathAttributes(data []byte) (Attributes, error) {
	var attrs Attributes

	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return attrs, fmt.Errorf("mrtdump: %w: attribute header truncated at offset %d", ErrMalformedMrt, offset)
		}

		flags := data[offset]
		typeCode := data[offset+1]
		offset += 2

		var attrLen int
		if flags&0x10 != 0 { // Extended Length
			if offset+2 > len(data) {
				return attrs, fmt.Errorf("mrtdump: %w: extended attribute length truncated", ErrMalformedMrt)
			}
			attrLen = int(binary.BigEndian.Uint16(data[offset : offset+2]))
			offset += 2
		} else {
			if offset+1 > len(data) {
				return attrs, fmt.Errorf("mrtdump: %w: attribute length truncated", ErrMalformedMrt)
			}
			attrLen = int(data[offset])
			offset++
		}

		if offset+attrLen > len(data) {
			return attrs, fmt.Errorf("mrtdump: %w: attribute data truncated (type %d, need %d, have %d)", ErrMalformedMrt, typeCode, attrLen, len(data)-offset)
		}

		attrData := data[offset : offset+attrLen]
		offset += attrLen

		switch typeCode {
		case attrTypeOrigin:
			if len(attrData) >= 1 {
				attrs.Origin = attrData[0]
			}
		case attrTypeASPath:
			segments, err := parseASPathSegments(attrData)
			if err != nil {
				return attrs, err
			}
			attrs.ASPath = segments
			attrs.ASPathSeen = true
		case attrTypeNextHop:
			if nh, ok := parseIPv4(attrData); ok {
				attrs.NextHop = nh
			}
		case attrTypeMED:
			if v, ok := parseUint32(attrData); ok {
				attrs.MED = &v
			}
		case attrTypeLocalPref:
			if v, ok := parseUint32(attrData); ok {
				attrs.LocalPref = &v
			}
		case attrTypeCommunity:
			attrs.Communities = append(attrs.Communities, parseCommunities(attrData)...)
		case attrTypeLargeCommunity:
			attrs.LargeCommunities = append(attrs.LargeCommunities, parseLargeCommunities(attrData)...)
		case attrTypeMPReachNLRI:
			if nh, ok := parseMPReachNextHop(attrData); ok {
				attrs.NextHop = nh
			}
		case attrTypeMPUnreachNLRI:
			// Withdrawals carry no forwarding information relevant to the
			// path-aggregation model; nothing to extract.
		default:
			// Unrecognized attribute: ignored, not an error.
		}
	}

	return attrs, nil
}

// parseASPathSegments splits an AS_PATH attribute into its AS_SEQUENCE /
// AS_SET segments, each a run of 4-octet ASNs (RFC 6793; TABLE_DUMP_V2
// dumps always use 4-octet ASNs, so there is no 2-vs-4-octet ambiguity
// here the way there is for BGP UPDATE messages over an old session).
func parseASPathSegments(data []byte) ([]ASPathSegment, error) {
	var segments []ASPathSegment
	offset := 0
	for offset+2 <= len(data) {
		segType := data[offset]
		segLen := int(data[offset+1])
		offset += 2

		need := segLen * 4
		if offset+need > len(data) {
			return nil, fmt.Errorf("mrtdump: %w: as_path segment truncated at offset %d", ErrMalformedMrt, offset)
		}

		asns := make([]paths.ASN, segLen)
		for i := 0; i < segLen; i++ {
			asns[i] = binary.BigEndian.Uint32(data[offset : offset+4])
			offset += 4
		}

		segments = append(segments, ASPathSegment{
			Set:  segType == asPathSegmentSet,
			ASNs: asns,
		})
	}
	return segments, nil
}

func parseIPv4(data []byte) (netip.Addr, bool) {
	if len(data) != 4 {
		return netip.Addr{}, false
	}
	return netip.AddrFrom4([4]byte(data)), true
}

func parseUint32(data []byte) (uint32, bool) {
	if len(data) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(data), true
}

func parseCommunities(data []byte) []paths.Community {
	var out []paths.Community
	for i := 0; i+4 <= len(data); i += 4 {
		out = append(out, paths.Community{
			High: binary.BigEndian.Uint16(data[i : i+2]),
			Low:  binary.BigEndian.Uint16(data[i+2 : i+4]),
		})
	}
	return out
}

func parseLargeCommunities(data []byte) []paths.LargeCommunity {
	var out []paths.LargeCommunity
	for i := 0; i+12 <= len(data); i += 12 {
		out = append(out, paths.LargeCommunity{
			GlobalAdmin: binary.BigEndian.Uint32(data[i : i+4]),
			LocalData1:  binary.BigEndian.Uint32(data[i+4 : i+8]),
			LocalData2:  binary.BigEndian.Uint32(data[i+8 : i+12]),
		})
	}
	return out
}

// parseMPReachNextHop extracts the next hop from an MP_REACH_NLRI
// attribute, preferring the IPv6 global-unicast address over the
// link-local one when a dual next hop (global + link-local, RFC 2545) is
// present. The NLRI portion that normally follows is absent in
// TABLE_DUMP_V2 RIB entries (the prefix already lives in the RIB entry
// header), so nothing after the next hop and SNPA list is read.
func parseMPReachNextHop(data []byte) (netip.Addr, bool) {
	if len(data) < 5 {
		return netip.Addr{}, false
	}

	safi := data[2]
	if safi != 1 { // unicast only
		return netip.Addr{}, false
	}
	nhLen := int(data[3])
	offset := 4
	if offset+nhLen > len(data) {
		return netip.Addr{}, false
	}

	nhData := data[offset : offset+nhLen]
	switch nhLen {
	case 4:
		return netip.AddrFrom4([4]byte(nhData)), true
	case 16:
		return netip.AddrFrom16([16]byte(nhData)), true
	case 32:
		// Global unicast + link-local (RFC 2545 §3): prefer the global
		// address for route comparison, since the link-local address is
		// only meaningful on the directly connected segment.
		return netip.AddrFrom16([16]byte(nhData[:16])), true
	default:
		return netip.Addr{}, false
	}
}
