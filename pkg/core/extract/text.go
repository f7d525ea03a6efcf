package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// LABEL NORMALIZER - Canonical form of label text for comparison
// =============================================================================

var (
	// Parentheses and periods are dropped, "&" spelled out, commas dropped.
	labelReplacer = strings.NewReplacer(
		"\u00a0", " ",
		"(", "",
		")", "",
		".", "",
		"&", "and",
		",", "",
	)

	// Footnote markers trail the label ("General Account1", "Loans 2 3").
	footnoteSuffix = regexp.MustCompile(`[\s\d]+$`)
)

// NormalizeLabel returns the canonical comparison form of a label.
// Examples:
//
//	"U.S. Treasury, General Account1" → "us treasury general account"
//	"Gold & SDR (net)"                → "gold and sdr net"
//	"  Reserve Bank credit "          → "reserve bank credit"
//
// The result of NormalizeLabel is a fixed point: normalizing it again
// returns the same string.
func NormalizeLabel(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = labelReplacer.Replace(s)
	s = footnoteSuffix.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// lowerText lower-cases and collapses whitespace without dropping any
// characters. Header phrases and dates are compared in this form.
func lowerText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// =============================================================================
// NUMERIC PARSER - Cell text to signed number
// =============================================================================

// ErrUnparseable marks cell text that carries digits but is not a number.
var ErrUnparseable = errors.New("unparseable number")

var (
	numberPattern = regexp.MustCompile(`^([+-])?\s*(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?$`)
	signReplacer  = strings.NewReplacer("−", "-", "–", "-", "\u00a0", " ")
)

// ParseNumber converts cell text to a number.
// Handles:
//
//	"12,345"   → 12345
//	"-1,234"   → -1234
//	"+12,000"  → 12000
//	"Coin", "" → nil, nil (no digits: silently no value)
//	"7,23,4"   → nil, ErrUnparseable
func ParseNumber(raw string) (*float64, error) {
	text := strings.TrimSpace(signReplacer.Replace(raw))
	if text == "" || !strings.ContainsAny(text, "0123456789") {
		return nil, nil
	}

	m := numberPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnparseable, raw)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "")+m[3], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnparseable, raw, err)
	}
	if m[1] == "-" {
		value = -value
	}
	return &value, nil
}

// isNumber reports whether the text parses to a value.
func isNumber(text string) bool {
	v, err := ParseNumber(text)
	return err == nil && v != nil
}
