// Package htmltable turns the outerHTML of a rendered <table> into rows of
// cell text.
package htmltable

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoTable = errors.New("htmltable: no <table> element")

// Row is one body row. Attrs holds the <tr> attributes (e.g. order-id).
type Row struct {
	Cells []string          `json:"cells"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

type Table struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// Parse reads the first table in src. Rows under <thead>, or made only of
// <th> cells, form the header; every other row is a body row. Nested tables
// are treated as cell content.
func Parse(src string) (Table, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return Table{}, err
	}
	tbl := findFirst(doc, atom.Table)
	if tbl == nil {
		return Table{}, ErrNoTable
	}

	var out Table
	for _, tr := range rowsOf(tbl) {
		cells, allHeader := cellsOf(tr)
		if len(cells) == 0 {
			continue
		}
		if (allHeader || inHead(tr, tbl)) && out.Header == nil {
			out.Header = cells
			continue
		}
		row := Row{Cells: cells}
		if len(tr.Attr) > 0 {
			row.Attrs = make(map[string]string, len(tr.Attr))
			for _, a := range tr.Attr {
				row.Attrs[a.Key] = a.Val
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Column returns the index of name in the header, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// rowsOf collects the <tr> elements belonging to tbl, skipping nested tables.
func rowsOf(tbl *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				rows = append(rows, c)
			default:
				walk(c)
			}
		}
	}
	walk(tbl)
	return rows
}

func cellsOf(tr *html.Node) ([]string, bool) {
	var cells []string
	allHeader := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Th:
		case atom.Td:
			allHeader = false
		default:
			continue
		}
		cells = append(cells, text(c))
	}
	return cells, allHeader && len(cells) > 0
}

func inHead(tr, tbl *html.Node) bool {
	for p := tr.Parent; p != nil && p != tbl; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Thead {
			return true
		}
	}
	return false
}

// text returns the node's text content with whitespace collapsed.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
