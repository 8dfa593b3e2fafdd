package protocol

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestRequestWireFormat(t *testing.T) {
	tests := []struct {
		req  Request
		wire string
	}{
		{Scan{}, `"Scan"`},
		{ScanAfterRestart{}, `"ScanAfterRestart"`},
		{ScanResponse{Files: []string{"movie.mkv"}}, `{"ScanResponse":["movie.mkv"]}`},
		{ScanResponse{}, `{"ScanResponse":[]}`},
	}
	for _, tt := range tests {
		got, err := EncodeRequest(tt.req)
		if err != nil {
			t.Fatalf("encode %T: %v", tt.req, err)
		}
		if string(got) != tt.wire {
			t.Errorf("encode %T: got %s want %s", tt.req, got, tt.wire)
		}
	}

	req, err := DecodeRequest([]byte(` {"ScanResponse":["a","b"]} `))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(req, ScanResponse{Files: []string{"a", "b"}}) {
		t.Errorf("decode: got %#v", req)
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	for _, in := range []string{``, `{`, `"Hello"`, `{"Scan":1}`, `{"ScanResponse":1}`, `{"a":1,"b":2}`, `"ScanResponse"`} {
		if _, err := DecodeRequest([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
	if _, err := DecodeRequest([]byte(`"Nope"`)); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestCommandWireFormat(t *testing.T) {
	tests := []struct {
		cmd  Command
		wire string
	}{
		{ShareCmd{Path: "/tmp/a.txt"}, `{"Share":"/tmp/a.txt"}`},
		{ScanCmd{}, `"Scan"`},
		{LsCmd{}, `"Ls"`},
		{DownloadCmd{Name: "a.txt", SavePath: "/dl/"}, `{"Download":["a.txt","/dl/"]}`},
		{StatusCmd{}, `"Status"`},
	}
	for _, tt := range tests {
		got, err := EncodeCommand(tt.cmd)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tt.wire {
			t.Errorf("encode %T: got %s want %s", tt.cmd, got, tt.wire)
		}
		back, err := DecodeCommand(got)
		if err != nil {
			t.Fatalf("decode %s: %v", got, err)
		}
		if !reflect.DeepEqual(back, tt.cmd) {
			t.Errorf("decode %s: got %#v", got, back)
		}
	}
}

func TestResponseNestedPayloads(t *testing.T) {
	data, err := EncodeResponse(LsResp{Files: map[string][]string{"10.0.0.1": {"a"}}})
	if err != nil {
		t.Fatal(err)
	}
	// the map travels as a JSON string
	var outer map[string]string
	if err := json.Unmarshal(data, &outer); err != nil {
		t.Fatalf("ls payload should be a string: %v (%s)", err, data)
	}
	if outer["Ls"] != `{"10.0.0.1":["a"]}` {
		t.Errorf("ls inner: %s", outer["Ls"])
	}

	status := StatusResp{
		Sharing:     map[string][]string{"/x/a": {"10.0.0.2"}},
		Downloading: map[string][]string{},
	}
	data, err = EncodeResponse(status)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := DecodeResponse(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(resp, status) {
		t.Errorf("status: got %#v", resp)
	}

	for in, want := range map[string]Response{
		`"ShareScan"`:        ShareScanResp{},
		`{"Download":false}`: DownloadResp{Started: false},
		`{"Error":"boom"}`:   ErrorResp{Message: "boom"},
	} {
		got, err := DecodeResponse([]byte(in))
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %#v", in, got)
		}
	}
}

func TestChunkRequestFields(t *testing.T) {
	data, err := json.Marshal(ChunkRequest{FileName: "movie.mkv", PeerCount: 3, Index: 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"file_name":"movie.mkv","peer_count":3,"index":2}` {
		t.Errorf("got %s", data)
	}
}
