package ingest

import (
	"strings"
	"testing"
)

func TestExtractTextStripsChrome(t *testing.T) {
	html := `<html><head>
<script>var tracking = "beacon";</script>
<style>.nav { color: red }</style>
</head><body>
<nav>Home About Publications</nav>
<p>Jane Doe is a professor of computer science whose group studies distributed
systems, consensus protocols, and the verification of concurrent programs at
Example University.</p>
<p>Research interests: distributed systems, formal methods</p>
<footer>Copyright 2026 Example University</footer>
</body></html>`

	text := ExtractText(html, "https://example.edu/~jdoe/")

	if !strings.Contains(text, "professor of computer science") {
		t.Errorf("main content missing:\n%s", text)
	}
	if strings.Contains(text, "tracking") || strings.Contains(text, "color: red") {
		t.Errorf("script or style content leaked:\n%s", text)
	}
}

func TestExtractTextEmpty(t *testing.T) {
	if got := ExtractText("", "https://example.edu/"); got != "" {
		t.Errorf("ExtractText(\"\") = %q, want empty", got)
	}
}

func TestTidyText(t *testing.T) {
	in := "  line one  \n\n\n\n  line two\t\n"
	want := "line one\n\nline two"
	if got := tidyText(in); got != want {
		t.Errorf("tidyText() = %q, want %q", got, want)
	}
}
