package sanitize

import "testing"

func TestStripControl(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"ascii passthrough", "Hello, World!", "Hello, World!"},
		{"keeps tabs and newlines", "line1\n\tindented", "line1\n\tindented"},
		{"removes c0 controls", "a\x01\x02\x03b", "ab"},
		{"removes del", "a\x7fb", "ab"},
		{"removes escape sequence", "a\x1b[31mred", "a[31mred"},
		{"removes carriage return", "a\rb", "ab"},
		{"keeps emoji", "Hello \U0001f44b World \U0001f30d!", "Hello \U0001f44b World \U0001f30d!"},
		{"keeps accented", "café résumé naïve", "café résumé naïve"},
		{"keeps cjk", "你好世界", "你好世界"},
		{"mixed", "\U0001f511\x01key\x7f\U0001f510", "\U0001f511key\U0001f510"},
	}
	for _, tc := range cases {
		if got := StripControl(tc.in); got != tc.want {
			t.Fatalf("%s: StripControl(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestStripControlIdempotent(t *testing.T) {
	inputs := []string{"plain", "a\x01b\nc", "\U0001f511\x1b[2Jkey"}
	for _, in := range inputs {
		once := StripControl(in)
		if twice := StripControl(once); twice != once {
			t.Fatalf("not a fixed point: %q -> %q -> %q", in, once, twice)
		}
	}
}
