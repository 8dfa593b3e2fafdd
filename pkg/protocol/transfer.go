package protocol

// ChunkRequest is the descriptor a downloader sends on the transfer port
// before reading the raw chunk bytes until EOF. Index is 1-based.
type ChunkRequest struct {
	FileName  string `json:"file_name"`
	PeerCount uint64 `json:"peer_count"`
	Index     uint64 `json:"index"`
}
