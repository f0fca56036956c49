package mrtdump

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
	"time"
)

const commonHeaderSize = 12

// peerTypeAS4 and peerTypeIPv6 are the two flag bits of a PEER_INDEX_TABLE
// peer entry's Peer Type octet (RFC 6396 §4.3.1).
const (
	peerTypeAS4  = 0x02
	peerTypeIPv6 = 0x01
)

// Decoder reads a sequence of MRT TABLE_DUMP_V2 records from an
// underlying byte stream. The stream's PEER_INDEX_TABLE record — always
// first — is decoded and cached internally so later RIB entries'
// PeerIndex fields can be resolved by the caller via Peers().
//
// Decoder does not handle compression; wrap r in a gzip or bzip2 reader
// first if the source file is compressed (see OpenFile).
type Decoder struct {
	r     *bufio.Reader
	peers []PeerEntry
}

// NewDecoder wraps r for record-at-a-time MRT decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Peers returns the peers resolved from the stream's PEER_INDEX_TABLE.
// Empty until that record — always the stream's first — has been read.
func (d *Decoder) Peers() []PeerEntry {
	out := make([]PeerEntry, len(d.peers))
	copy(out, d.peers)
	return out
}

// Next decodes and returns the next record, skipping default-route RIB
// entries (0.0.0.0/0, ::/0) internally since they carry no path
// information worth aggregating. Returns io.EOF once the stream is
// exhausted.
func (d *Decoder) Next() (*Record, error) {
	for {
		rec, skip, err := d.next()
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		return rec, nil
	}
}

func (d *Decoder) next() (rec *Record, skip bool, err error) {
	var hdr [commonHeaderSize]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, false, io.EOF
		}
		return nil, false, fmt.Errorf("mrtdump: %w: reading common header: %v", ErrMalformedMrt, err)
	}

	header := Header{
		Timestamp: time.Unix(int64(binary.BigEndian.Uint32(hdr[0:4])), 0).UTC(),
		Type:      binary.BigEndian.Uint16(hdr[4:6]),
		Subtype:   binary.BigEndian.Uint16(hdr[6:8]),
		Length:    binary.BigEndian.Uint32(hdr[8:12]),
	}

	payload := make([]byte, header.Length)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, false, fmt.Errorf("mrtdump: %w: reading %d-byte record body: %v", ErrMalformedMrt, header.Length, err)
	}

	if header.Type != mrtTypeTableDumpV2 {
		return nil, false, fmt.Errorf("mrtdump: %w: mrt type %d", ErrUnexpectedRecordType, header.Type)
	}

	switch header.Subtype {
	case subtypePeerIndexTable:
		table, err := parsePeerIndexTable(payload)
		if err != nil {
			return nil, false, err
		}
		d.peers = table.Peers
		return &Record{Header: header, Kind: KindPeerIndexTable, PeerIndexTable: table}, false, nil

	case subtypeRibIPv4Unicast, subtypeRibIPv6Unicast:
		entry, err := parseRibEntry(payload)
		if err != nil {
			return nil, false, err
		}
		if entry.Prefix.Bits() == 0 {
			return nil, true, nil
		}
		return &Record{Header: header, Kind: KindRibEntry, RibEntry: entry}, false, nil

	default:
		return nil, false, fmt.Errorf("mrtdump: %w: table_dump_v2 subtype %d", ErrUnexpectedRecordType, header.Subtype)
	}
}

func parsePeerIndexTable(data []byte) (*PeerIndexTable, error) {
	if len(data) < 4+2 {
		return nil, fmt.Errorf("mrtdump: %w: peer index table truncated", ErrMalformedMrt)
	}

	offset := 0
	bgpID := netip.AddrFrom4([4]byte(data[offset : offset+4]))
	offset += 4

	viewNameLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+viewNameLen > len(data) {
		return nil, fmt.Errorf("mrtdump: %w: peer index table view name truncated", ErrMalformedMrt)
	}
	viewName := string(data[offset : offset+viewNameLen])
	offset += viewNameLen

	if offset+2 > len(data) {
		return nil, fmt.Errorf("mrtdump: %w: peer index table peer count truncated", ErrMalformedMrt)
	}
	peerCount := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2

	peers := make([]PeerEntry, 0, peerCount)
	for i := 0; i < peerCount; i++ {
		if offset+1 > len(data) {
			return nil, fmt.Errorf("mrtdump: %w: peer entry %d truncated", ErrMalformedMrt, i)
		}
		peerType := data[offset]
		offset++

		if offset+4 > len(data) {
			return nil, fmt.Errorf("mrtdump: %w: peer entry %d bgp id truncated", ErrMalformedMrt, i)
		}
		peerBGPID := netip.AddrFrom4([4]byte(data[offset : offset+4]))
		offset += 4

		var addr netip.Addr
		if peerType&peerTypeIPv6 != 0 {
			if offset+16 > len(data) {
				return nil, fmt.Errorf("mrtdump: %w: peer entry %d ipv6 address truncated", ErrMalformedMrt, i)
			}
			addr = netip.AddrFrom16([16]byte(data[offset : offset+16]))
			offset += 16
		} else {
			if offset+4 > len(data) {
				return nil, fmt.Errorf("mrtdump: %w: peer entry %d ipv4 address truncated", ErrMalformedMrt, i)
			}
			addr = netip.AddrFrom4([4]byte(data[offset : offset+4]))
			offset += 4
		}

		var asn uint32
		if peerType&peerTypeAS4 != 0 {
			if offset+4 > len(data) {
				return nil, fmt.Errorf("mrtdump: %w: peer entry %d as4 truncated", ErrMalformedMrt, i)
			}
			asn = binary.BigEndian.Uint32(data[offset : offset+4])
			offset += 4
		} else {
			if offset+2 > len(data) {
				return nil, fmt.Errorf("mrtdump: %w: peer entry %d as2 truncated", ErrMalformedMrt, i)
			}
			asn = uint32(binary.BigEndian.Uint16(data[offset : offset+2]))
			offset += 2
		}

		peers = append(peers, PeerEntry{BGPID: peerBGPID, Addr: addr, ASN: asn})
	}

	return &PeerIndexTable{CollectorBGPID: bgpID, ViewName: viewName, Peers: peers}, nil
}

func parseRibEntry(data []byte) (*RibEntry, error) {
	if len(data) < 4+1+2 {
		return nil, fmt.Errorf("mrtdump: %w: rib entry truncated", ErrMalformedMrt)
	}

	offset := 0
	seq := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4

	prefixLen := int(data[offset])
	offset++

	byteLen := (prefixLen + 7) / 8
	if offset+byteLen > len(data) {
		return nil, fmt.Errorf("mrtdump: %w: rib entry prefix truncated", ErrMalformedMrt)
	}

	var prefix netip.Prefix
	switch {
	case prefixLen <= 32:
		var raw [4]byte
		copy(raw[:], data[offset:offset+byteLen])
		prefix = netip.PrefixFrom(netip.AddrFrom4(raw), prefixLen)
	case prefixLen <= 128:
		var raw [16]byte
		copy(raw[:], data[offset:offset+byteLen])
		prefix = netip.PrefixFrom(netip.AddrFrom16(raw), prefixLen)
	default:
		return nil, fmt.Errorf("mrtdump: %w: rib entry prefix length %d out of range", ErrMalformedMrt, prefixLen)
	}
	offset += byteLen

	if offset+2 > len(data) {
		return nil, fmt.Errorf("mrtdump: %w: rib entry count truncated", ErrMalformedMrt)
	}
	entryCount := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2

	entries := make([]RibPeerEntry, 0, entryCount)
	for i := 0; i < entryCount; i++ {
		if offset+2+4+2 > len(data) {
			return nil, fmt.Errorf("mrtdump: %w: rib peer entry %d header truncated", ErrMalformedMrt, i)
		}
		peerIndex := binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
		originatedTime := binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
		attrLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2

		if offset+attrLen > len(data) {
			return nil, fmt.Errorf("mrtdump: %w: rib peer entry %d attributes truncated", ErrMalformedMrt, i)
		}
		attrs, err := parsePathAttributes(data[offset : offset+attrLen])
		if err != nil {
			return nil, err
		}
		offset += attrLen

		entries = append(entries, RibPeerEntry{
			PeerIndex:      peerIndex,
			OriginatedTime: time.Unix(int64(originatedTime), 0).UTC(),
			Attributes:     attrs,
		})
	}

	return &RibEntry{SequenceNumber: seq, Prefix: prefix, Entries: entries}, nil
}
