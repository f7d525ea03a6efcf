package ingest

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// =============================================================================
// BLOCK PAGE DETECTION
// =============================================================================

// blockMarkers appear on anti-automation and error pages served with 200.
var blockMarkers = []string{
	"captcha",
	"access denied",
	"request rejected",
	"the requested url was rejected",
	"unusual traffic",
	"are you a robot",
	"verify you are human",
	"checking your browser",
	"please enable javascript",
}

// minDataCells is the number of digit-bearing table cells above which a
// page counts as a data page and block markers in its text are ignored.
const minDataCells = 8

// Detection describes why a page is unusable.
type Detection struct {
	Blocked bool
	Reason  string
}

// Inspect looks for block-page markers and text-poor shells in a raw page.
// Pages carrying a table are never treated as shells, and markers are only
// trusted on pages with few data cells, so a block page laid out as a table
// is still caught.
func Inspect(page []byte) Detection {
	text, markup := textMarkupRatio(page)
	lowerText := strings.ToLower(text)
	hasTable := bytes.Contains(bytes.ToLower(page), []byte("<table"))

	if !hasTable || dataCells(page) < minDataCells {
		for _, m := range blockMarkers {
			if strings.Contains(lowerText, m) {
				return Detection{Blocked: true, Reason: "block marker: " + m}
			}
		}
	}

	visible := len(strings.Join(strings.Fields(text), ""))
	total := visible + markup
	if !hasTable && (visible < 200 || total == 0 || float64(visible)/float64(total) < 0.10) {
		return Detection{Blocked: true, Reason: "text-poor page shell"}
	}
	return Detection{}
}

// textMarkupRatio returns the visible text of a page and the byte count of
// its markup. Script and style bodies count as markup.
func textMarkupRatio(page []byte) (string, int) {
	var sb strings.Builder
	markup := 0
	skip := 0

	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the scan is over.
			return sb.String(), markup
		case html.TextToken:
			if skip > 0 {
				markup += len(z.Raw())
				continue
			}
			sb.Write(z.Text())
			sb.WriteByte(' ')
		case html.StartTagToken:
			markup += len(z.Raw())
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
		case html.EndTagToken:
			markup += len(z.Raw())
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
		default:
			markup += len(z.Raw())
		}
	}
}

// dataCells counts table cells whose text contains a digit.
func dataCells(page []byte) int {
	count := 0
	inCell, hasDigit := false, false
	closeCell := func() {
		if inCell && hasDigit {
			count++
		}
		inCell, hasDigit = false, false
	}

	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			closeCell()
			return count
		case html.StartTagToken:
			switch name, _ := z.TagName(); string(name) {
			case "td", "th":
				closeCell()
				inCell = true
			case "tr", "table":
				closeCell()
			}
		case html.EndTagToken:
			switch name, _ := z.TagName(); string(name) {
			case "td", "th", "tr", "table":
				closeCell()
			}
		case html.TextToken:
			if inCell && !hasDigit {
				hasDigit = bytes.ContainsAny(z.Text(), "0123456789")
			}
		}
	}
}

func isRawText(name []byte) bool {
	return bytes.Equal(name, []byte("script")) || bytes.Equal(name, []byte("style"))
}
