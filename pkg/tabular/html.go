package tabular

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yair/conference-portal/pkg/domain"
)

// ReadHTML reads the first <table> in an HTML document, as produced by
// "Save as web page" exports. The first row is the header.
func ReadHTML(data []byte) (*Sheet, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", domain.ErrUnsupportedFormat, err)
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, fmt.Errorf("%w: no table found in html", domain.ErrUnsupportedFormat)
	}

	var rows [][]Cell
	walkRows(table, func(tr *html.Node) {
		var row []Cell
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type != html.ElementNode || (td.DataAtom != atom.Td && td.DataAtom != atom.Th) {
				continue
			}
			row = append(row, Cell{Text: textContent(td), Href: firstHref(td)})
		}
		rows = append(rows, row)
	})

	return fromRows(rows), nil
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

// walkRows visits the table's own rows, skipping any nested tables.
func walkRows(n *html.Node, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			visit(c)
		case atom.Thead, atom.Tbody, atom.Tfoot:
			walkRows(c, visit)
		}
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func firstHref(n *html.Node) string {
	a := findFirst(n, atom.A)
	if a == nil {
		return ""
	}
	for _, attr := range a.Attr {
		if attr.Key == "href" {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}
