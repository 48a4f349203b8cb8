package format

import "testing"

func TestEscapeMarkdown(t *testing.T) {
	cases := []struct {
		in      string
		version int
		want    string
	}{
		{"user_1*x", MarkdownV1, `user\_1\*x`},
		{"[a]", MarkdownV1, `\[a]`},
		{"+57 300.1", MarkdownV2, `\+57 300\.1`},
	}
	for _, tc := range cases {
		got, err := EscapeMarkdown(tc.in, tc.version)
		if err != nil || got != tc.want {
			t.Fatalf("EscapeMarkdown(%q, %d) = %q, %v; want %q", tc.in, tc.version, got, err, tc.want)
		}
	}
	if _, err := EscapeMarkdown("x", 3); err == nil {
		t.Fatal("expected error for unknown version")
	}
}
