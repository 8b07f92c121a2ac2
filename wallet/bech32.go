package wallet

import (
	"fmt"
	"strings"
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

const (
	bech32Const  = 1          // checksum constant for witness version 0
	bech32mConst = 0x2bc830a3 // checksum constant for witness version >= 1, BIP-350
)

func bech32Polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 != 0 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func bech32HRPExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func bech32CreateChecksum(hrp string, data []byte, constant uint32) []byte {
	values := append(bech32HRPExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := bech32Polymod(values) ^ constant
	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return checksum
}

func bech32VerifyChecksum(hrp string, data []byte, constant uint32) bool {
	return bech32Polymod(append(bech32HRPExpand(hrp), data...)) == constant
}

// bech32Encode builds the full "hrp1data+checksum" string for the given
// constant (bech32Const or bech32mConst selects the variant).
func bech32Encode(hrp string, data []byte, constant uint32) (string, error) {
	for i := 0; i < len(hrp); i++ {
		if hrp[i] < 33 || hrp[i] > 126 {
			return "", fmt.Errorf("bech32: invalid hrp character")
		}
	}
	checksum := bech32CreateChecksum(hrp, data, constant)
	combined := append(append([]byte{}, data...), checksum...)
	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, b := range combined {
		sb.WriteByte(bech32Charset[b])
	}
	return sb.String(), nil
}

// bech32Decode validates and splits a bech32/bech32m string into its HRP and
// 5-bit data payload (checksum stripped), returning which constant matched.
func bech32Decode(s string) (hrp string, data []byte, constant uint32, err error) {
	if len(s) > 90 {
		return "", nil, 0, fmt.Errorf("bech32: string too long")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 33 || s[i] > 126 {
			return "", nil, 0, fmt.Errorf("bech32: invalid character")
		}
	}
	lower := strings.ToLower(s)
	if lower != s && strings.ToUpper(s) != s {
		return "", nil, 0, fmt.Errorf("bech32: mixed case")
	}
	s = lower

	pos := strings.LastIndexByte(s, '1')
	if pos < 1 {
		return "", nil, 0, fmt.Errorf("bech32: missing separator")
	}
	if pos+7 > len(s) {
		return "", nil, 0, fmt.Errorf("bech32: data part too short")
	}

	hrp = s[:pos]
	dataChars := s[pos+1:]
	data = make([]byte, len(dataChars))
	for i := 0; i < len(dataChars); i++ {
		idx := strings.IndexByte(bech32Charset, dataChars[i])
		if idx < 0 {
			return "", nil, 0, fmt.Errorf("bech32: invalid data character %q", dataChars[i])
		}
		data[i] = byte(idx)
	}

	switch {
	case bech32VerifyChecksum(hrp, data, bech32Const):
		constant = bech32Const
	case bech32VerifyChecksum(hrp, data, bech32mConst):
		constant = bech32mConst
	default:
		return "", nil, 0, fmt.Errorf("bech32: checksum mismatch")
	}

	return hrp, data[:len(data)-6], constant, nil
}

// regroupTo5 re-groups 8-bit bytes into 5-bit symbols, MSB-first, zero-padding
// the trailing partial group.
func regroupTo5(data []byte) []byte {
	var acc, bits uint32
	var out []byte
	for _, b := range data {
		acc = (acc << 8) | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out = append(out, byte((acc>>bits)&0x1f))
		}
	}
	if bits > 0 {
		out = append(out, byte((acc<<(5-bits))&0x1f))
	}
	return out
}

// regroupTo8 inverts regroupTo5, rejecting a non-zero or oversized trailing
// partial group per BIP-173.
func regroupTo8(data []byte) ([]byte, error) {
	var acc, bits uint32
	var out []byte
	for _, b := range data {
		if b > 0x1f {
			return nil, fmt.Errorf("bech32: 5-bit symbol out of range")
		}
		acc = (acc << 5) | uint32(b)
		bits += 5
		for bits >= 8 {
			bits -= 8
			out = append(out, byte((acc>>bits)&0xff))
		}
	}
	if bits >= 5 {
		return nil, fmt.Errorf("bech32: excess padding bits")
	}
	if bits > 0 && (acc&((1<<bits)-1)) != 0 {
		return nil, fmt.Errorf("bech32: non-zero padding bits")
	}
	return out, nil
}

// SegwitAddrEncode encodes a witness version + program as a segwit address,
// selecting Bech32 for version 0 and Bech32m for version >= 1 per BIP-350.
func SegwitAddrEncode(hrp string, version int, program []byte) (string, error) {
	if version < 0 || version > 16 {
		return "", fmt.Errorf("bech32: witness version %d out of range", version)
	}
	constant := uint32(bech32Const)
	if version >= 1 {
		constant = bech32mConst
	}
	data := append([]byte{byte(version)}, regroupTo5(program)...)
	return bech32Encode(hrp, data, constant)
}

// SegwitAddrDecode decodes a segwit address, verifying the HRP matches and
// that the checksum variant matches the encoded witness version.
func SegwitAddrDecode(expectHRP, addr string) (version int, program []byte, err error) {
	hrp, data, constant, err := bech32Decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if hrp != expectHRP {
		return 0, nil, fmt.Errorf("bech32: hrp mismatch, got %q want %q", hrp, expectHRP)
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("bech32: empty data")
	}
	version = int(data[0])
	wantConstant := uint32(bech32Const)
	if version >= 1 {
		wantConstant = bech32mConst
	}
	if constant != wantConstant {
		return 0, nil, fmt.Errorf("bech32: checksum variant does not match witness version %d", version)
	}
	program, err = regroupTo8(data[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(program) < 2 || len(program) > 40 {
		return 0, nil, fmt.Errorf("bech32: program length %d out of range", len(program))
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return 0, nil, fmt.Errorf("bech32: v0 program must be 20 or 32 bytes")
	}
	return version, program, nil
}
