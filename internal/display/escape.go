package display

import "strings"

const hexDigits = "0123456789abcdef"

// Escape makes s safe to embed in the host's markup and in the JSON string
// literal of the status line. &, ", ', < and > become entities; newline, tab
// and carriage return become \n, \t and \r.
//
// Two more classes are rewritten so the envelope stays valid JSON: a
// backslash becomes \\ and any other control byte below 0x20 becomes
// \u00XX. Everything else, including multi-byte UTF-8 sequences, is copied
// unchanged.
func Escape(s string) string {
	// fast path: nothing to escape
	i := 0
	for i < len(s) && !needsEscape(s[i]) {
		i++
	}
	if i == len(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	b.WriteString(s[:i])
	for ; i < len(s); i++ {
		c := s[i]
		switch c {
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
				continue
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func needsEscape(c byte) bool {
	switch c {
	case '&', '"', '\'', '<', '>', '\\':
		return true
	}
	return c < 0x20
}
