package faultmult

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"

	"github.com/ovland/enkit/internal/errors"
)

// Member file format (binary, little-endian):
// - Magic (8 bytes)
// - Version (4 bytes)
// - Kind length (2 bytes) + kind string
// - Segment count (4 bytes)
// - Values (count * 8 bytes, float64, log-space, config order)
// - CRC32 of the value payload (4 bytes)

const (
	ensMagic   = 0x454E4B454E530001 // "ENKENS" + version 1
	ensVersion = 1
)

// WriteFile persists the log-space values to path, overwriting any
// existing file.
func (n *Node) WriteFile(path string) error {
	buf := encodeValues(KindName, n.values)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write member file: %w", err)
	}
	return nil
}

// ReadFile hydrates the log-space values from path. The file's kind tag
// and segment count must match the node's config.
func (n *Node) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("member file %s: %w", path, errors.ErrNotFound)
		}
		return fmt.Errorf("read member file: %w", err)
	}

	values, err := decodeValues(KindName, data)
	if err != nil {
		return fmt.Errorf("member file %s: %w", path, err)
	}
	if len(values) != len(n.values) {
		return fmt.Errorf("%w: member file %s has %d segments, config has %d",
			errors.ErrFormat, path, len(values), len(n.values))
	}

	copy(n.values, values)
	n.stale = true
	return nil
}

// encodeValues encodes a value buffer into the member file format.
func encodeValues(kind string, values []float64) []byte {
	buf := make([]byte, 0, 8+4+2+len(kind)+4+len(values)*8+4)

	buf = binary.LittleEndian.AppendUint64(buf, ensMagic)
	buf = binary.LittleEndian.AppendUint32(buf, ensVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(kind)))
	buf = append(buf, kind...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(values)))

	payloadStart := len(buf)
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	crc := crc32.ChecksumIEEE(buf[payloadStart:])
	buf = binary.LittleEndian.AppendUint32(buf, crc)

	return buf
}

// decodeValues decodes the member file format, verifying magic, version,
// kind tag and checksum.
func decodeValues(kind string, data []byte) ([]float64, error) {
	if len(data) < 8+4+2 {
		return nil, fmt.Errorf("%w: data too short for header", errors.ErrFormat)
	}

	magic := binary.LittleEndian.Uint64(data[0:8])
	if magic != ensMagic {
		return nil, fmt.Errorf("%w: invalid magic %x", errors.ErrFormat, magic)
	}

	version := binary.LittleEndian.Uint32(data[8:12])
	if version != ensVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errors.ErrFormat, version)
	}

	offset := 12
	kindLen := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	if offset+kindLen > len(data) {
		return nil, fmt.Errorf("%w: data too short for kind tag", errors.ErrFormat)
	}
	fileKind := string(data[offset : offset+kindLen])
	offset += kindLen
	if fileKind != kind {
		return nil, fmt.Errorf("%w: kind tag %q, expected %q", errors.ErrFormat, fileKind, kind)
	}

	if offset+4 > len(data) {
		return nil, fmt.Errorf("%w: data too short for segment count", errors.ErrFormat)
	}
	count := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	if offset+count*8+4 > len(data) {
		return nil, fmt.Errorf("%w: data too short for %d values", errors.ErrFormat, count)
	}

	payload := data[offset : offset+count*8]
	crc := binary.LittleEndian.Uint32(data[offset+count*8:])
	if crc32.ChecksumIEEE(payload) != crc {
		return nil, fmt.Errorf("%w: checksum mismatch", errors.ErrFormat)
	}

	values := make([]float64, count)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
	}
	return values, nil
}
