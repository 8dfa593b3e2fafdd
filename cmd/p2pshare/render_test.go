package main

import (
	"strings"
	"testing"

	"tarun-kavipurapu/p2p-share/pkg/protocol"
)

func TestRenderLs(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	out := renderLs(map[string][]string{
		"10.0.0.3": {"b.txt"},
		"10.0.0.2": {"a.txt", "movie.mkv"},
	})
	want := "10.0.0.2 (2 files)\n  a.txt\n  movie.mkv\n10.0.0.3 (1 files)\n  b.txt\n"
	if out != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
	if !strings.Contains(renderLs(nil), "run scan") {
		t.Error("empty listing should hint at scan")
	}
}

func TestRenderStatus(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	out := renderStatus(protocol.StatusResp{
		Sharing:     map[string][]string{"/srv/a": {}, "/srv/b": {"10.0.0.2", "10.0.0.3"}},
		Downloading: map[string][]string{},
	})
	for _, want := range []string{"/srv/a idle", "/srv/b -> 10.0.0.2, 10.0.0.3", "no downloads"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
