package archive

import (
	"encoding/binary"
	"hash/crc32"
)

const headerLen = 9

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRecord frames header and payload with a uvarint header length and a
// trailing crc32c.
func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	return binary.BigEndian.AppendUint32(out, crc)
}

// Decoded is a record split back into its parts.
type Decoded struct {
	Header  []byte
	Payload []byte
}

// DecodeRecord validates framing and checksum. ok is false for corrupt input.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)) < uint64(n)+hlen+4 {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return Decoded{}, false
	}
	return Decoded{Header: append([]byte(nil), header...), Payload: append([]byte(nil), payload...)}, true
}

func encodeHeader(evictedAtMs int64, reason uint8) []byte {
	h := make([]byte, 0, headerLen)
	h = binary.BigEndian.AppendUint64(h, uint64(evictedAtMs))
	return append(h, reason)
}

func decodeHeader(h []byte) (evictedAtMs int64, reason uint8, ok bool) {
	if len(h) < headerLen {
		return 0, 0, false
	}
	return int64(binary.BigEndian.Uint64(h[:8])), h[8], true
}
