package wallet

import (
	"encoding/binary"
	"fmt"
)

// CompactSizeEncode writes the Bitcoin variable-length integer prefix used
// throughout the wire format: 1, 3, 5, or 9 bytes depending on magnitude.
func CompactSizeEncode(n uint64) []byte {
	switch {
	case n <= 0xfc:
		return []byte{byte(n)}
	case n <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		return buf
	case n <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		return buf
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], n)
		return buf
	}
}

// CompactSizeDecode reads a CompactSize prefix from the front of b, returning
// the decoded value and the number of bytes consumed.
func CompactSizeDecode(b []byte) (n uint64, consumed int, err error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("compactsize: empty input")
	}
	switch b[0] {
	case 0xfd:
		if len(b) < 3 {
			return 0, 0, fmt.Errorf("compactsize: short read for 0xfd prefix")
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), 3, nil
	case 0xfe:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("compactsize: short read for 0xfe prefix")
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), 5, nil
	case 0xff:
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("compactsize: short read for 0xff prefix")
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	default:
		return uint64(b[0]), 1, nil
	}
}
