// Package typewriter reveals rich text one visible character at a time.
//
// The supported markup is the small paired-tag subset used by dialogue lines:
// bold, italic, sized and colored text. Every prefix returned by Text.Reveal is
// well-formed: tags still open at the cut are closed in reverse opening order.
package typewriter

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// SymbolKind tells a visible character apart from a zero-width tag marker.
type SymbolKind int

const (
	SymbolChar SymbolKind = iota
	SymbolOpen
	SymbolClose
)

// Symbol is one unit of a tokenized string.
type Symbol struct {
	Kind SymbolKind
	Text string // the character, or the exact tag text that was matched
	Tag  int    // index into the tag table, markers only
}

type tagKind struct {
	open   *regexp.Regexp
	close  *regexp.Regexp
	closer string
}

// Matching order matters: the first kind whose open or close pattern matches wins.
var tags = []tagKind{
	{regexp.MustCompile(`^<b>`), regexp.MustCompile(`^</b>`), "</b>"},
	{regexp.MustCompile(`^<i>`), regexp.MustCompile(`^</i>`), "</i>"},
	{regexp.MustCompile(`^<size=[0-9]+>`), regexp.MustCompile(`^</size>`), "</size>"},
	{regexp.MustCompile(`^<color=#?[a-zA-Z0-9]+>`), regexp.MustCompile(`^</color>`), "</color>"},
}

// Text is a tokenized rich-text string.
type Text struct {
	source  string
	symbols []Symbol
	visible int
}

// New tokenizes src into characters and tag markers.
func New(src string) *Text {
	t := &Text{source: src}
	for i := 0; i < len(src); {
		rest := src[i:]
		if sym, n, ok := matchTag(rest); ok {
			t.symbols = append(t.symbols, sym)
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(rest)
		t.symbols = append(t.symbols, Symbol{Kind: SymbolChar, Text: rest[:size]})
		t.visible++
		i += size
	}
	return t
}

func matchTag(s string) (Symbol, int, bool) {
	if !strings.HasPrefix(s, "<") {
		return Symbol{}, 0, false
	}
	for idx, tag := range tags {
		if m := tag.open.FindString(s); m != "" {
			return Symbol{Kind: SymbolOpen, Text: m, Tag: idx}, len(m), true
		}
		if m := tag.close.FindString(s); m != "" {
			return Symbol{Kind: SymbolClose, Text: m, Tag: idx}, len(m), true
		}
	}
	return Symbol{}, 0, false
}

// Source returns the string the Text was built from.
func (t *Text) Source() string { return t.source }

// Plain returns the visible characters with every tag marker dropped.
func (t *Text) Plain() string {
	var b strings.Builder
	for _, s := range t.symbols {
		if s.Kind == SymbolChar {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// VisibleCount returns the number of visible characters, tag markers excluded.
func (t *Text) VisibleCount() int { return t.visible }

// Reveal returns the markup prefix holding the first n visible characters.
//
// Tag markers never consume the budget. Markers that precede the n-th character
// are included; markers after it are only included once the whole text is
// revealed, so Reveal(VisibleCount()) returns the source verbatim.
func (t *Text) Reveal(n int) string {
	if n < 0 {
		n = 0
	}
	full := n >= t.visible

	var b strings.Builder
	var open []int
	shown := 0
	for _, sym := range t.symbols {
		if sym.Kind == SymbolChar {
			if shown >= n {
				break
			}
			shown++
		} else if !full && shown >= n {
			break
		}

		b.WriteString(sym.Text)
		switch sym.Kind {
		case SymbolOpen:
			open = append(open, sym.Tag)
		case SymbolClose:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString(tags[open[i]].closer)
	}
	return b.String()
}

// Progress returns how many visible characters a reveal running at cps
// characters per second shows after elapsed seconds, capped at total.
func Progress(elapsed, cps float64, total int) int {
	if elapsed <= 0 || cps <= 0 {
		return 0
	}
	n := math.Floor(elapsed * cps)
	if n >= float64(total) {
		return total
	}
	return int(n)
}
