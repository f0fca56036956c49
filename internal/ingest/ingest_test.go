package ingest

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/route-beacon/aspath-miner/internal/mrtdump"
	"github.com/route-beacon/aspath-miner/internal/paths"
)

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeRecord(buf *bytes.Buffer, mrtType, subtype uint16, payload []byte) {
	putU32(buf, 0)
	putU16(buf, mrtType)
	putU16(buf, subtype)
	putU32(buf, uint32(len(payload)))
	buf.Write(payload)
}

func buildPeerIndexTable(asn uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{9, 9, 9, 9})
	putU16(&buf, 0)
	putU16(&buf, 1)

	buf.WriteByte(0x02) // AS4, IPv4
	buf.Write([]byte{8, 8, 8, 8})
	buf.Write([]byte{10, 0, 0, 1})
	putU32(&buf, asn)
	return buf.Bytes()
}

func buildAttr(flags, typeCode byte, data []byte) []byte {
	return append([]byte{flags, typeCode, byte(len(data))}, data...)
}

const (
	asPathSegmentSequence = 2
	asPathSegmentSet      = 1
)

func buildASPathAttr(segType byte, asns ...uint32) []byte {
	var data bytes.Buffer
	data.WriteByte(segType)
	data.WriteByte(byte(len(asns)))
	for _, a := range asns {
		putU32(&data, a)
	}
	return buildAttr(0x40, 2, data.Bytes())
}

func buildRibEntry(prefixBits int, prefixBytes []byte, attrs []byte) []byte {
	var buf bytes.Buffer
	putU32(&buf, 1)
	buf.WriteByte(byte(prefixBits))
	buf.Write(prefixBytes)
	putU16(&buf, 1)

	putU16(&buf, 0)
	putU32(&buf, 0)
	putU16(&buf, uint16(len(attrs)))
	buf.Write(attrs)

	return buf.Bytes()
}

func writeMRTFile(t *testing.T, dir, name string, asn uint32, prefixBits int, prefixBytes []byte, attrs []byte) string {
	t.Helper()
	var stream bytes.Buffer
	writeRecord(&stream, 13, 1, buildPeerIndexTable(asn))
	writeRecord(&stream, 13, 2, buildRibEntry(prefixBits, prefixBytes, attrs))

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, stream.Bytes(), 0o644); err != nil {
		t.Fatalf("write mrt file: %v", err)
	}
	return path
}

func TestParseFile_InsertsRoute(t *testing.T) {
	dir := t.TempDir()
	attrs := append(buildASPathAttr(asPathSegmentSequence, 64496, 64497), buildAttr(0x40, 3, []byte{192, 0, 2, 1})...)
	path := writeMRTFile(t, dir, "rib.mrt", 64500, 24, []byte{198, 51, 100}, attrs)

	pd, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if pd.CountOrigins() != 1 {
		t.Fatalf("expected 1 origin, got %d", pd.CountOrigins())
	}
	oap := pd.OriginAsPathsFor(64497)
	if oap == nil {
		t.Fatalf("expected origin 64497 present")
	}
	if oap.Count() != 1 {
		t.Fatalf("expected 1 as path, got %d", oap.Count())
	}
}

func TestParseFile_MissingASPath(t *testing.T) {
	dir := t.TempDir()
	attrs := buildAttr(0x40, 3, []byte{192, 0, 2, 1}) // next hop only, no AS_PATH
	path := writeMRTFile(t, dir, "rib.mrt", 64500, 24, []byte{198, 51, 100}, attrs)

	if _, err := ParseFile(path); err == nil {
		t.Fatalf("expected error for rib entry with no as_path attribute")
	}
}

func TestParseFile_EmptyASPathSkipsEntry(t *testing.T) {
	dir := t.TempDir()
	// AS_PATH attribute present but zero-length: an iBGP-style empty
	// path. This must skip the one peer entry, not fail the file.
	attrs := append(buildAttr(0x40, 2, nil), buildAttr(0x40, 3, []byte{192, 0, 2, 1})...)
	path := writeMRTFile(t, dir, "rib.mrt", 64500, 24, []byte{198, 51, 100}, attrs)

	pd, err := ParseFile(path)
	if err != nil {
		t.Fatalf("expected empty as_path to be skipped, not errored: %v", err)
	}
	if pd.CountOrigins() != 0 {
		t.Fatalf("expected 0 origins (entry skipped), got %d", pd.CountOrigins())
	}
}

func TestParseFile_MissingNextHop(t *testing.T) {
	dir := t.TempDir()
	attrs := buildASPathAttr(asPathSegmentSequence, 64496, 64497) // as_path only, no next hop
	path := writeMRTFile(t, dir, "rib.mrt", 64500, 24, []byte{198, 51, 100}, attrs)

	if _, err := ParseFile(path); err == nil {
		t.Fatalf("expected error for rib entry with no usable next hop")
	}
}

func TestExpandASPath_SequenceOnly(t *testing.T) {
	segs := []mrtdump.ASPathSegment{{Set: false, ASNs: []paths.ASN{64496, 64497}}}
	variants, err := expandASPath(segs)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(variants))
	}
	if len(variants[0]) != 2 || variants[0][1] != 64497 {
		t.Fatalf("unexpected variant: %v", variants[0])
	}
}

func TestExpandASPath_SetFanOut(t *testing.T) {
	segs := []mrtdump.ASPathSegment{
		{Set: false, ASNs: []paths.ASN{64496}},
		{Set: true, ASNs: []paths.ASN{64497, 64498}},
	}
	variants, err := expandASPath(segs)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants (one per AS_SET member), got %d", len(variants))
	}
	for _, v := range variants {
		if len(v) != 2 || v[0] != 64496 {
			t.Fatalf("unexpected variant: %v", v)
		}
	}
}

func TestExpandASPath_SetWithoutSequenceIsMalformed(t *testing.T) {
	segs := []mrtdump.ASPathSegment{{Set: true, ASNs: []paths.ASN{64497}}}
	if _, err := expandASPath(segs); err == nil {
		t.Fatalf("expected error for as_set with no preceding as_sequence")
	}
}

func TestRun_MergesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	attrs1 := append(buildASPathAttr(asPathSegmentSequence, 64496, 64498), buildAttr(0x40, 3, []byte{192, 0, 2, 1})...)
	attrs2 := append(buildASPathAttr(asPathSegmentSequence, 64497, 64498), buildAttr(0x40, 3, []byte{192, 0, 2, 2})...)

	p1 := writeMRTFile(t, dir, "a.mrt", 64500, 24, []byte{198, 51, 100}, attrs1)
	p2 := writeMRTFile(t, dir, "b.mrt", 64501, 24, []byte{203, 0, 113}, attrs2)

	pd, err := Run(context.Background(), []string{p1, p2}, 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if pd.CountOrigins() != 1 {
		t.Fatalf("expected 1 origin after merge, got %d", pd.CountOrigins())
	}
	oap := pd.OriginAsPathsFor(64498)
	if oap == nil || oap.Count() != 2 {
		t.Fatalf("expected 2 distinct as paths merged under origin 64498")
	}
}

func TestRun_EmptyFileList(t *testing.T) {
	pd, err := Run(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if pd.CountOrigins() != 0 {
		t.Fatalf("expected empty path data, got %d origins", pd.CountOrigins())
	}
}
