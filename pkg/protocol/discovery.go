package protocol

import "fmt"

// Request is a discovery datagram: Scan, ScanAfterRestart or ScanResponse.
type Request interface {
	requestTag() string
}

// Scan asks peers for the shared files they have not advertised to us yet.
type Scan struct{}

// ScanAfterRestart asks peers for all their shared files.
type ScanAfterRestart struct{}

// ScanResponse carries the advertised file names.
type ScanResponse struct {
	Files []string
}

func (Scan) requestTag() string             { return "Scan" }
func (ScanAfterRestart) requestTag() string { return "ScanAfterRestart" }
func (ScanResponse) requestTag() string     { return "ScanResponse" }

// RequestKind names the variant of r as it appears on the wire.
func RequestKind(r Request) string {
	return r.requestTag()
}

func EncodeRequest(r Request) ([]byte, error) {
	switch v := r.(type) {
	case Scan, ScanAfterRestart:
		return encodeTagged(v.requestTag(), nil)
	case ScanResponse:
		files := v.Files
		if files == nil {
			files = []string{}
		}
		return encodeTagged(v.requestTag(), files)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, r)
	}
}

func DecodeRequest(data []byte) (Request, error) {
	tag, payload, err := decodeTagged(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	switch tag {
	case "Scan":
		return Scan{}, unitVariant(tag, payload)
	case "ScanAfterRestart":
		return ScanAfterRestart{}, unitVariant(tag, payload)
	case "ScanResponse":
		var files []string
		if err := payloadVariant(tag, payload, &files); err != nil {
			return nil, err
		}
		return ScanResponse{Files: files}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
}
