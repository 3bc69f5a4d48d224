package matrix

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// HexLen is the encoded length of one frame: four hex digits per row.
const HexLen = Size * 4

var ErrHexLength = errors.New("matrix: frame must be 64 hex characters")

// ParseHex decodes a frame written as 16 big-endian row words, top row first.
func ParseHex(s string) (Image, error) {
	var im Image
	if len(s) != HexLen {
		return im, fmt.Errorf("%w, got %d", ErrHexLength, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return im, fmt.Errorf("matrix: decode frame: %w", err)
	}
	for y := 0; y < Size; y++ {
		im.SetRow(y, uint16(raw[2*y])<<8|uint16(raw[2*y+1]))
	}
	return im, nil
}

// Hex encodes im in the format read by ParseHex, lower case.
func (im Image) Hex() string {
	raw := make([]byte, 2*Size)
	for y := 0; y < Size; y++ {
		r := im.Row(y)
		raw[2*y] = byte(r >> 8)
		raw[2*y+1] = byte(r)
	}
	return hex.EncodeToString(raw)
}

// ParseHexList decodes comma separated frames. Blank input yields no frames.
func ParseHexList(s string) ([]Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]Image, 0, len(parts))
	for i, p := range parts {
		im, err := ParseHex(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out = append(out, im)
	}
	return out, nil
}

// FormatHexList is the inverse of ParseHexList.
func FormatHexList(frames []Image) string {
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = f.Hex()
	}
	return strings.Join(parts, ",")
}
