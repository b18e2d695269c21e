package sanitize

// StripControl returns a copy of s with C0 control bytes and DEL removed.
// Horizontal tab, newline and every byte >= 0x80 pass through unchanged, so
// multi-byte UTF-8 sequences survive intact. Applied to all remote text
// before display to block terminal escape injection.
func StripControl(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\t' || c == '\n' || c >= 0x80 || (c >= 0x20 && c < 0x7f) {
			out = append(out, c)
		}
	}
	return string(out)
}
