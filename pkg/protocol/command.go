package protocol

import (
	"encoding/json"
	"fmt"
)

// Command is a request on the local command channel.
type Command interface {
	commandTag() string
}

type ShareCmd struct {
	Path string
}

type ScanCmd struct{}

type LsCmd struct{}

type DownloadCmd struct {
	Name     string
	SavePath string
}

type StatusCmd struct{}

func (ShareCmd) commandTag() string    { return "Share" }
func (ScanCmd) commandTag() string     { return "Scan" }
func (LsCmd) commandTag() string       { return "Ls" }
func (DownloadCmd) commandTag() string { return "Download" }
func (StatusCmd) commandTag() string   { return "Status" }

func EncodeCommand(c Command) ([]byte, error) {
	switch v := c.(type) {
	case ShareCmd:
		return encodeTagged(v.commandTag(), v.Path)
	case DownloadCmd:
		return encodeTagged(v.commandTag(), [2]string{v.Name, v.SavePath})
	case ScanCmd, LsCmd, StatusCmd:
		return encodeTagged(v.commandTag(), nil)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, c)
	}
}

func DecodeCommand(data []byte) (Command, error) {
	tag, payload, err := decodeTagged(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode command: %w", err)
	}

	switch tag {
	case "Share":
		var path string
		if err := payloadVariant(tag, payload, &path); err != nil {
			return nil, err
		}
		return ShareCmd{Path: path}, nil
	case "Download":
		var args [2]string
		if err := payloadVariant(tag, payload, &args); err != nil {
			return nil, err
		}
		return DownloadCmd{Name: args[0], SavePath: args[1]}, nil
	case "Scan":
		return ScanCmd{}, unitVariant(tag, payload)
	case "Ls":
		return LsCmd{}, unitVariant(tag, payload)
	case "Status":
		return StatusCmd{}, unitVariant(tag, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
}

// Response answers a Command.
type Response interface {
	responseTag() string
}

// ShareScanResp acknowledges Share and Scan.
type ShareScanResp struct{}

// LsResp lists advertised file names per peer.
type LsResp struct {
	Files map[string][]string
}

// DownloadResp reports whether a download was started.
type DownloadResp struct {
	Started bool
}

// StatusResp holds the files being sent (path -> receiving peers) and the
// files being downloaded (name -> serving peers).
type StatusResp struct {
	Sharing     map[string][]string
	Downloading map[string][]string
}

type ErrorResp struct {
	Message string
}

func (ShareScanResp) responseTag() string { return "ShareScan" }
func (LsResp) responseTag() string        { return "Ls" }
func (DownloadResp) responseTag() string  { return "Download" }
func (StatusResp) responseTag() string    { return "Status" }
func (ErrorResp) responseTag() string     { return "Error" }

// Ls and Status carry their maps serialized into a JSON string.
func EncodeResponse(r Response) ([]byte, error) {
	switch v := r.(type) {
	case ShareScanResp:
		return encodeTagged(v.responseTag(), nil)
	case LsResp:
		inner, err := json.Marshal(nonNil(v.Files))
		if err != nil {
			return nil, err
		}
		return encodeTagged(v.responseTag(), string(inner))
	case DownloadResp:
		return encodeTagged(v.responseTag(), v.Started)
	case StatusResp:
		inner, err := json.Marshal([2]map[string][]string{nonNil(v.Sharing), nonNil(v.Downloading)})
		if err != nil {
			return nil, err
		}
		return encodeTagged(v.responseTag(), string(inner))
	case ErrorResp:
		return encodeTagged(v.responseTag(), v.Message)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, r)
	}
}

func DecodeResponse(data []byte) (Response, error) {
	tag, payload, err := decodeTagged(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch tag {
	case "ShareScan":
		return ShareScanResp{}, unitVariant(tag, payload)
	case "Ls":
		var inner string
		if err := payloadVariant(tag, payload, &inner); err != nil {
			return nil, err
		}
		var files map[string][]string
		if err := json.Unmarshal([]byte(inner), &files); err != nil {
			return nil, fmt.Errorf("failed to decode ls payload: %w", err)
		}
		return LsResp{Files: files}, nil
	case "Download":
		var started bool
		if err := payloadVariant(tag, payload, &started); err != nil {
			return nil, err
		}
		return DownloadResp{Started: started}, nil
	case "Status":
		var inner string
		if err := payloadVariant(tag, payload, &inner); err != nil {
			return nil, err
		}
		var pair [2]map[string][]string
		if err := json.Unmarshal([]byte(inner), &pair); err != nil {
			return nil, fmt.Errorf("failed to decode status payload: %w", err)
		}
		return StatusResp{Sharing: pair[0], Downloading: pair[1]}, nil
	case "Error":
		var msg string
		if err := payloadVariant(tag, payload, &msg); err != nil {
			return nil, err
		}
		return ErrorResp{Message: msg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
}

func nonNil(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}
