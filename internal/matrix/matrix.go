package matrix

import (
	"math/bits"
	"strings"
)

// Size is the edge length of the panel in pixels.
const Size = 16

// ValidMask covers the columns that exist on a row.
const ValidMask uint16 = 1<<Size - 1

// BlankWord deselects every row and darkens every column.
const BlankWord = ^uint32(0)

// grid stores one 16-bit word per row. Column x of a row is bit 15-x, so the
// first column leaves the shift register right after the row-select half.
type grid [Size]uint16

func inBounds(x, y int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size
}

func colMask(x int) uint16 { return 1 << uint(Size-1-x) }

// SetPixel lights or clears pixel (x, y). Coordinates off the panel are ignored.
func (g *grid) SetPixel(x, y int, on bool) {
	if !inBounds(x, y) {
		return
	}
	if on {
		g[y] |= colMask(x)
	} else {
		g[y] &^= colMask(x)
	}
}

// Pixel reports whether (x, y) is lit. Off-panel coordinates are never lit.
func (g *grid) Pixel(x, y int) bool {
	if !inBounds(x, y) {
		return false
	}
	return g[y]&colMask(x) != 0
}

// SetRow replaces the column bits of row y.
func (g *grid) SetRow(y int, v uint16) {
	if y < 0 || y >= Size {
		return
	}
	g[y] = v & ValidMask
}

// Row returns the column bits of row y, or 0 off the panel.
func (g *grid) Row(y int) uint16 {
	if y < 0 || y >= Size {
		return 0
	}
	return g[y]
}

// Clear darkens every pixel.
func (g *grid) Clear() { *g = grid{} }

// Count returns the number of lit pixels.
func (g *grid) Count() int {
	n := 0
	for _, r := range g {
		n += bits.OnesCount16(r)
	}
	return n
}

// String renders the grid as 16 lines of '#' and '.'.
func (g *grid) String() string {
	var sb strings.Builder
	sb.Grow(Size * (Size + 1))
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if g.Pixel(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Canvas is the frame handed from the animators to the row scanner. It is a
// value type; assigning it copies all rows.
type Canvas struct {
	grid
}

// RowWord encodes row y for the shift-register chain: the one-hot row select
// in the high half, the column bits in the low half, all complemented because
// both line groups are active-low.
func (c *Canvas) RowWord(y int) uint32 {
	if y < 0 || y >= Size {
		return BlankWord
	}
	sel := uint32(1) << uint(Size-1-y)
	return ^(sel<<16 | uint32(c.grid[y]))
}

// Merge ORs every row of other into c.
func (c *Canvas) Merge(other Canvas) {
	for y := range c.grid {
		c.grid[y] |= other.grid[y]
	}
}

// Equal reports whether both canvases light the same pixels.
func (c Canvas) Equal(other Canvas) bool { return c.grid == other.grid }

// Image is a stored frame of an image sequence.
type Image struct {
	grid
}

// Canvas returns a canvas showing im.
func (im Image) Canvas() Canvas { return Canvas{grid: im.grid} }

// Snapshot captures the current contents of c as an Image.
func Snapshot(c Canvas) Image { return Image{grid: c.grid} }

// Equal reports whether both images light the same pixels.
func (im Image) Equal(other Image) bool { return im.grid == other.grid }
