package registry

import (
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
)

func TestBaseName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"D:/file.txt", "file.txt"},
		{"D://file.txt", "file.txt"},
		{"D:file.txt", "D:file.txt"},
		{"C:/Documents/work/resume.pdf", "resume.pdf"},
		{"movie.mp4", "movie.mp4"},
		{"/home/user/movie.mkv", "movie.mkv"},
		// backslash is not a separator
		{`C:\Users\me\movie.mkv`, `C:\Users\me\movie.mkv`},
		{`C:\Users/me\movie.mkv`, `me\movie.mkv`},
		{"dir/", ""},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindEligiblePeers(t *testing.T) {
	t.Run("single peer", func(t *testing.T) {
		r := NewDownloadRegistry()
		r.Record("231.0.0.1", []string{"key.txt"})
		peers, ok := r.FindEligiblePeers("key.txt")
		if !ok || !reflect.DeepEqual(peers, []string{"231.0.0.1"}) {
			t.Fatalf("got %v %v", peers, ok)
		}
	})

	t.Run("unknown file", func(t *testing.T) {
		r := NewDownloadRegistry()
		r.Record("231.0.0.1", []string{"key.txt"})
		if _, ok := r.FindEligiblePeers("resume.pdf"); ok {
			t.Fatal("expected no peers")
		}
	})

	t.Run("empty registry", func(t *testing.T) {
		if _, ok := NewDownloadRegistry().FindEligiblePeers("resume.pdf"); ok {
			t.Fatal("expected no peers")
		}
	})

	t.Run("two peers any order", func(t *testing.T) {
		r := NewDownloadRegistry()
		r.Record("231.0.0.1", []string{"Serious_sam.exe", "film.mp4"})
		r.Record("231.0.2.1", []string{"resume.pdf", "film.mp4", "Serious_sam.exe"})
		peers, ok := r.FindEligiblePeers("film.mp4")
		if !ok || len(peers) != 2 {
			t.Fatalf("got %v %v", peers, ok)
		}
		got := map[string]bool{peers[0]: true, peers[1]: true}
		if !got["231.0.0.1"] || !got["231.0.2.1"] {
			t.Errorf("unexpected membership %v", peers)
		}
	})

	t.Run("in flight anywhere", func(t *testing.T) {
		r := NewDownloadRegistry()
		r.Record("231.0.0.1", []string{"Serious_sam.exe", "film.mp4"})
		r.Record("231.0.2.1", []string{"resume.pdf", "film.mp4"})
		if err := r.Mark("231.0.2.1", "film.mp4", true); err != nil {
			t.Fatal(err)
		}
		if peers, ok := r.FindEligiblePeers("film.mp4"); ok {
			t.Fatalf("expected none while downloading, got %v", peers)
		}
		// other files stay eligible
		if _, ok := r.FindEligiblePeers("Serious_sam.exe"); !ok {
			t.Error("unrelated file should stay eligible")
		}
	})
}

func TestMarkUnmarkRoundTrip(t *testing.T) {
	r := NewShareRegistry()
	r.Share("/data/a.txt")
	r.Share("/data/b.txt")
	r.RegisterPeer("10.0.0.1", false)
	r.RegisterPeer("10.0.0.2", false)

	before := r.Snapshot()
	if err := r.Mark("/data/a.txt", "10.0.0.2", true); err != nil {
		t.Fatal(err)
	}

	during := r.Snapshot()
	if !during["/data/a.txt"][1].Active {
		t.Fatal("mark did not set the flag")
	}
	if during["/data/a.txt"][0].Active || during["/data/b.txt"][1].Active {
		t.Fatal("mark touched other entries")
	}

	if err := r.Mark("/data/a.txt", "10.0.0.2", false); err != nil {
		t.Fatal(err)
	}
	if after := r.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("round trip changed state:\nbefore %v\nafter  %v", before, after)
	}
}

func TestMarkMissing(t *testing.T) {
	r := NewDownloadRegistry()
	if err := r.Mark("10.0.0.1", "x", true); !errors.Is(err, ErrNoKey) {
		t.Errorf("missing key: got %v", err)
	}
	r.Record("10.0.0.1", []string{"a"})
	if err := r.Mark("10.0.0.1", "x", true); !errors.Is(err, ErrNoEntry) {
		t.Errorf("missing value: got %v", err)
	}
}

func TestRegisterPeerIncremental(t *testing.T) {
	r := NewShareRegistry()
	r.Share("/videos/movie.mkv")

	if got := r.RegisterPeer("10.0.0.2", false); !reflect.DeepEqual(got, []string{"movie.mkv"}) {
		t.Fatalf("first scan: got %v", got)
	}
	if got := r.RegisterPeer("10.0.0.2", false); len(got) != 0 {
		t.Fatalf("second scan should advertise nothing, got %v", got)
	}

	r.Share("/docs/resume.pdf")
	if got := r.RegisterPeer("10.0.0.2", false); !reflect.DeepEqual(got, []string{"resume.pdf"}) {
		t.Fatalf("only the new file should be advertised, got %v", got)
	}

	got := r.RegisterPeer("10.0.0.2", true)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"movie.mkv", "resume.pdf"}) {
		t.Fatalf("after restart every file is advertised, got %v", got)
	}

	// the peer is recorded exactly once per file
	for path, list := range r.Snapshot() {
		if len(list) != 1 || list[0] != (Entry[string]{Value: "10.0.0.2"}) {
			t.Errorf("%s: %v", path, list)
		}
	}
}

func TestLookupByBaseName(t *testing.T) {
	r := NewShareRegistry()
	r.Share("/home/user/movie.mkv")
	path, ok := r.Lookup("movie.mkv")
	if !ok || path != "/home/user/movie.mkv" {
		t.Fatalf("got %q %v", path, ok)
	}
	if _, ok := r.Lookup("user/movie.mkv"); ok {
		t.Error("lookup must match base names only")
	}
}

func TestRecordDeduplicates(t *testing.T) {
	r := NewDownloadRegistry()
	if n := r.Record("10.0.0.1", []string{"a", "b"}); n != 2 {
		t.Fatalf("added %d", n)
	}
	if n := r.Record("10.0.0.1", []string{"b", "c"}); n != 1 {
		t.Fatalf("added %d", n)
	}
	if got := r.Files()["10.0.0.1"]; !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("files: %v", got)
	}
}

func TestStatusViews(t *testing.T) {
	shares := NewShareRegistry()
	shares.Share("/a/key.txt")
	shares.RegisterPeer("10.0.0.1", false)
	shares.RegisterPeer("10.0.0.2", false)
	_ = shares.Mark("/a/key.txt", "10.0.0.2", true)

	want := map[string][]string{"/a/key.txt": {"10.0.0.2"}}
	if got := shares.Transferring(); !reflect.DeepEqual(got, want) {
		t.Errorf("transferring: got %v want %v", got, want)
	}

	downloads := NewDownloadRegistry()
	downloads.Record("10.0.0.1", []string{"film.mp4", "key.txt"})
	downloads.Record("10.0.0.3", []string{"film.mp4"})
	_ = downloads.Mark("10.0.0.1", "film.mp4", true)
	_ = downloads.Mark("10.0.0.3", "film.mp4", true)

	wantDl := map[string][]string{"film.mp4": {"10.0.0.1", "10.0.0.3"}}
	if got := downloads.Downloading(); !reflect.DeepEqual(got, wantDl) {
		t.Errorf("downloading: got %v want %v", got, wantDl)
	}
}

func TestConcurrentMarks(t *testing.T) {
	r := NewDownloadRegistry()
	peers := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	for _, p := range peers {
		r.Record(p, []string{"f"})
	}

	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				_ = r.Mark(p, "f", true)
				_ = r.Mark(p, "f", false)
			}
		}(p)
	}
	wg.Wait()

	if _, ok := r.FindEligiblePeers("f"); !ok {
		t.Fatal("all entries should be unmarked")
	}
}
