package renderer

import "testing"

func TestShouldRenderEmptyShell(t *testing.T) {
	if !ShouldRender(`<html><body><div id="root"></div></body></html>`) {
		t.Fatal("expected react shell to be flagged as needing rendering")
	}
}

func TestShouldRenderRealContent(t *testing.T) {
	html := "<html><body>" + string(make([]byte, 600)) + "<p>hello world</p></body></html>"
	if ShouldRender(html) {
		t.Fatal("expected a long real page not to be flagged")
	}
}

func TestShouldRenderShortBody(t *testing.T) {
	if !ShouldRender("<html></html>") {
		t.Fatal("expected short body to be flagged")
	}
}
