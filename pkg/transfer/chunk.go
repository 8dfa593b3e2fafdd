package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// ChunkRange returns the byte range served for the 1-based index of a file
// split across peerCount peers. Every chunk has size/peerCount bytes except
// the last, which also takes the division remainder.
func ChunkRange(size int64, peerCount, index uint64) (offset, length int64) {
	chunk := size / int64(peerCount)
	offset = chunk * int64(index-1)
	if index == peerCount {
		return offset, size - chunk*int64(peerCount-1)
	}
	return offset, chunk
}

// SelectPeers caps candidates to max(1, parallelism-reserved) peers, keeping
// their order.
func SelectPeers(candidates []string, parallelism, reserved int) []string {
	limit := parallelism - reserved
	if limit < 1 {
		limit = 1
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]string, limit)
	copy(out, candidates[:limit])
	return out
}

// ChunkPath is where chunk index of download id is buffered before reassembly.
func ChunkPath(dir, id string, index uint64) string {
	return filepath.Join(dir, fmt.Sprintf("out_%s_%d", id, index))
}

// BuildFile concatenates parts into dst in the given order and removes the
// parts once all of them were copied. On failure dst is removed and the
// parts are left in place.
func BuildFile(dst string, parts []string, buf []byte) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	for _, part := range parts {
		if err := appendPart(out, part, buf); err != nil {
			return multierr.Combine(err, out.Close(), os.Remove(dst))
		}
	}
	if err := out.Close(); err != nil {
		return multierr.Append(fmt.Errorf("failed to close %s: %w", dst, err), os.Remove(dst))
	}

	var rmErr error
	for _, part := range parts {
		rmErr = multierr.Append(rmErr, os.Remove(part))
	}
	if rmErr != nil {
		return fmt.Errorf("failed to remove chunk files: %w", rmErr)
	}
	return nil
}

func appendPart(out io.Writer, part string, buf []byte) error {
	in, err := os.Open(part)
	if err != nil {
		return fmt.Errorf("failed to open chunk %s: %w", part, err)
	}
	defer in.Close()

	if _, err := io.CopyBuffer(struct{ io.Writer }{out}, in, buf); err != nil {
		return fmt.Errorf("failed to copy chunk %s: %w", part, err)
	}
	return nil
}
