package archive

import "encoding/binary"

var (
	metaKey     = []byte("archive/m")
	entryPrefix = []byte("archive/e/")
)

// KeyEntry builds the record key for seq with a big-endian suffix.
func KeyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	return binary.BigEndian.AppendUint64(k, seq)
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}

// entryBounds returns [lower, upper) covering every record key.
func entryBounds() (lower, upper []byte) {
	lower = KeyEntry(0)
	upper = append(KeyEntry(^uint64(0)), 0x00)
	return lower, upper
}
