// SPDX-License-Identifier: MIT

// Package render draws band intensities onto a character-cell canvas. It has no
// terminal dependencies; the TUI turns a Canvas into styled text.
package render

import colorful "github.com/lucasb-eyer/go-colorful"

// Cell is one character cell. A zero Glyph means the cell is empty.
type Cell struct {
	Glyph rune
	Color colorful.Color
}

// Empty reports whether nothing was drawn in the cell.
func (c Cell) Empty() bool {
	return c.Glyph == 0
}

// Canvas is a fixed-size grid of cells, row-major.
type Canvas struct {
	width  int
	height int
	cells  []Cell
}

// NewCanvas returns a cleared canvas. Negative sizes are treated as zero.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.Resize(width, height)
	return c
}

// Resize changes the canvas size and clears it, reusing storage when possible.
func (c *Canvas) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	c.width, c.height = width, height
	if n := width * height; cap(c.cells) >= n {
		c.cells = c.cells[:n]
	} else {
		c.cells = make([]Cell, n)
	}
	c.Clear()
}

// Width returns the number of columns.
func (c *Canvas) Width() int { return c.width }

// Height returns the number of rows.
func (c *Canvas) Height() int { return c.height }

// Clear empties every cell.
func (c *Canvas) Clear() {
	clear(c.cells)
}

// Contains reports whether (x, y) lies on the canvas.
func (c *Canvas) Contains(x, y int) bool {
	return x >= 0 && x < c.width && y >= 0 && y < c.height
}

// Set draws a glyph. Points outside the canvas are ignored.
func (c *Canvas) Set(x, y int, glyph rune, color colorful.Color) {
	if !c.Contains(x, y) {
		return
	}
	c.cells[y*c.width+x] = Cell{Glyph: glyph, Color: color}
}

// At returns the cell at (x, y), or an empty cell outside the canvas.
func (c *Canvas) At(x, y int) Cell {
	if !c.Contains(x, y) {
		return Cell{}
	}
	return c.cells[y*c.width+x]
}

// Row returns the cells of row y. The slice aliases the canvas.
func (c *Canvas) Row(y int) []Cell {
	if y < 0 || y >= c.height {
		return nil
	}
	return c.cells[y*c.width : (y+1)*c.width]
}

// Filled returns the number of non-empty cells.
func (c *Canvas) Filled() int {
	n := 0
	for _, cell := range c.cells {
		if !cell.Empty() {
			n++
		}
	}
	return n
}
