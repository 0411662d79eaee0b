package helpers

import "testing"

func TestSanitizeHTMLStrict_RemovesTagsAndScripts(t *testing.T) {
	input := `<p>Hello <strong>world</strong><script>alert('x')</script></p>`
	got := SanitizeHTMLStrict(input)
	want := "Hello world"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlainText_KeepsPunctuation(t *testing.T) {
	input := `What's the <b>price</b> of "Tom & Jerry"?`
	got := PlainText(input)
	want := `What's the price of "Tom & Jerry"?`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlainText_EmptyAfterStrip(t *testing.T) {
	if got := PlainText("  <img src=x>  "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
