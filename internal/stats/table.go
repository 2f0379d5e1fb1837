package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// textTable lays out plain-text columns by display width. Cells hold
// already formatted values; numbers are right-aligned by marking the column.
type textTable struct {
	titles []string
	right  map[int]bool
	rows   [][]string
}

func newTextTable(titles ...string) *textTable {
	return &textTable{titles: titles, right: map[int]bool{}}
}

// alignRight marks columns whose cells are padded on the left.
func (t *textTable) alignRight(cols ...int) *textTable {
	for _, c := range cols {
		t.right[c] = true
	}
	return t
}

func (t *textTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *textTable) hasHeader() bool {
	for _, title := range t.titles {
		if title != "" {
			return true
		}
	}
	return false
}

func (t *textTable) widths() []int {
	n := len(t.titles)
	for _, row := range t.rows {
		n = max(n, len(row))
	}
	widths := make([]int, n)
	measure := func(cells []string) {
		for i, cell := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	if t.hasHeader() {
		measure(t.titles)
	}
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

// lines renders the header (when any title is set) and every row.
// Trailing padding is trimmed.
func (t *textTable) lines() []string {
	widths := t.widths()
	if len(widths) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.rows)+1)
	if t.hasHeader() {
		out = append(out, t.line(t.titles, widths))
	}
	for _, row := range t.rows {
		out = append(out, t.line(row, widths))
	}
	return out
}

func (t *textTable) line(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if t.right[i] {
			parts[i] = runewidth.FillLeft(cell, w)
		} else {
			parts[i] = runewidth.FillRight(cell, w)
		}
	}
	return strings.TrimRight(strings.Join(parts, " "), " ")
}

func (t *textTable) write(w io.Writer) error {
	for _, line := range t.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
