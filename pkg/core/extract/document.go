package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed report. It is read-only for the duration of one
// extraction call.
type Document struct {
	doc   *goquery.Document
	order map[*html.Node]int // Table node -> document order
}

// NewDocument wraps an already parsed goquery document.
func NewDocument(doc *goquery.Document) *Document {
	d := &Document{doc: doc, order: make(map[*html.Node]int)}
	doc.Find("table").Each(func(i int, t *goquery.Selection) {
		d.order[t.Get(0)] = i
	})
	return d
}

// ParseDocument parses HTML content into a Document.
func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return NewDocument(doc), nil
}

// ParseDocumentBytes parses raw HTML bytes.
func ParseDocumentBytes(content []byte) (*Document, error) {
	return ParseDocument(bytes.NewReader(content))
}

// Selection returns the document root selection.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Tables returns every table of the document in document order.
func (d *Document) Tables() *goquery.Selection {
	return d.doc.Find("table")
}

// TableCount returns the number of tables in the document.
func (d *Document) TableCount() int {
	return len(d.order)
}

// position returns the document order of a table node, or -1.
func (d *Document) position(t *goquery.Selection) int {
	if t.Length() == 0 {
		return -1
	}
	if pos, ok := d.order[t.Get(0)]; ok {
		return pos
	}
	return -1
}
