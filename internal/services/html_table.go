package services

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tableGrid is a parsed table with spans expanded into a rectangular grid.
type tableGrid struct {
	Header [][]string
	Body   [][]string
}

type gridCell struct {
	text    string
	header  bool
	colspan int
	rowspan int
}

type gridRow struct {
	cells   []gridCell
	section atom.Atom
}

// findFirstTable returns the first <table> element in document order.
func findFirstTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findFirstTable(c); t != nil {
			return t
		}
	}
	return nil
}

// parseHTMLTable parses data and returns the grid of its first table, or nil
// when the document holds no table.
func parseHTMLTable(data []byte) (*tableGrid, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	table := findFirstTable(doc)
	if table == nil {
		return nil, nil
	}
	rows := collectRows(table, atom.Tbody)
	return buildGrid(rows), nil
}

// collectRows walks the row groups of table without descending into nested tables.
func collectRows(n *html.Node, section atom.Atom) []gridRow {
	var rows []gridRow
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Thead, atom.Tbody, atom.Tfoot:
			rows = append(rows, collectRows(c, c.DataAtom)...)
		case atom.Tr:
			rows = append(rows, gridRow{cells: collectCells(c), section: section})
		}
	}
	return rows
}

func collectCells(tr *html.Node) []gridCell {
	var cells []gridCell
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		cells = append(cells, gridCell{
			text:    cellText(c),
			header:  c.DataAtom == atom.Th,
			colspan: spanAttr(c, "colspan"),
			rowspan: spanAttr(c, "rowspan"),
		})
	}
	return cells
}

func spanAttr(n *html.Node, name string) int {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			v, err := strconv.Atoi(strings.TrimSpace(a.Val))
			if err != nil || v < 1 {
				return 1
			}
			return v
		}
	}
	return 1
}

// cellText concatenates the text of a cell with whitespace collapsed.
func cellText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// buildGrid expands colspan and rowspan and splits header rows from body rows.
// Header rows are the rows of <thead>; without one, the leading rows made only
// of <th> cells; without those, the first row.
func buildGrid(rows []gridRow) *tableGrid {
	type pending struct {
		text string
		left int
	}
	carry := map[int]*pending{}
	expanded := make([][]string, 0, len(rows))

	for _, row := range rows {
		var out []string
		col := 0
		place := func(text string) {
			for len(out) <= col {
				out = append(out, "")
			}
			out[col] = text
		}
		fillCarried := func() {
			for {
				p, ok := carry[col]
				if !ok {
					return
				}
				place(p.text)
				p.left--
				if p.left == 0 {
					delete(carry, col)
				}
				col++
			}
		}

		for _, cell := range row.cells {
			fillCarried()
			for i := 0; i < cell.colspan; i++ {
				place(cell.text)
				if cell.rowspan > 1 {
					carry[col] = &pending{text: cell.text, left: cell.rowspan - 1}
				}
				col++
			}
		}
		fillCarried()
		// spans reaching past the last explicit cell of this row
		var tail []int
		for c := range carry {
			if c >= col {
				tail = append(tail, c)
			}
		}
		sort.Ints(tail)
		for _, c := range tail {
			p := carry[c]
			col = c
			place(p.text)
			p.left--
			if p.left == 0 {
				delete(carry, c)
			}
		}
		expanded = append(expanded, out)
	}

	headerRows := 0
	for i, row := range rows {
		if row.section == atom.Thead {
			headerRows = i + 1
		}
	}
	if headerRows == 0 {
		for _, row := range rows {
			if !allHeaderCells(row) {
				break
			}
			headerRows++
		}
	}
	if headerRows == 0 && len(expanded) > 0 {
		headerRows = 1
	}

	return &tableGrid{Header: expanded[:headerRows], Body: expanded[headerRows:]}
}

func allHeaderCells(row gridRow) bool {
	if len(row.cells) == 0 {
		return false
	}
	for _, c := range row.cells {
		if !c.header {
			return false
		}
	}
	return true
}
