package util

import "strings"

// SanitizeText removes bytes Postgres text columns reject (NUL from some PDF
// extractors), other control characters and replacement runes left by broken
// encodings. Line endings are normalized to \n.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch == '\n' || ch == '\t':
			b.WriteRune(ch)
		case ch == '\r':
			b.WriteByte('\n')
		case ch < 0x20, ch == 0x7f, ch == '�':
			continue
		default:
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}
