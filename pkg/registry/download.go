package registry

import "sort"

// DownloadRegistry maps a peer address to the file names it advertised; the
// flag is set while a chunk of that file is being pulled from the peer.
type DownloadRegistry struct {
	*Table[string, string]
}

func NewDownloadRegistry() *DownloadRegistry {
	return &DownloadRegistry{Table: NewTable[string, string]()}
}

// Record stores the files advertised by peer in a scan response.
func (r *DownloadRegistry) Record(peer string, files []string) int {
	return r.Append(peer, files...)
}

// FindEligiblePeers returns the peers that advertised file. It returns false
// when no peer has the file or when the file is already being downloaded from
// any peer.
func (r *DownloadRegistry) FindEligiblePeers(file string) ([]string, bool) {
	var (
		peers []string
		busy  bool
	)
	r.update(func(entries map[string][]Entry[string]) {
		for peer, list := range entries {
			i := indexOf(list, file)
			if i < 0 {
				continue
			}
			if list[i].Active {
				busy = true
				return
			}
			peers = append(peers, peer)
		}
	})
	if busy || len(peers) == 0 {
		return nil, false
	}
	sort.Strings(peers)
	return peers, true
}

// Files lists the advertised file names per peer, without flags.
func (r *DownloadRegistry) Files() map[string][]string {
	out := make(map[string][]string)
	for peer, list := range r.Snapshot() {
		files := make([]string, 0, len(list))
		for _, e := range list {
			files = append(files, e.Value)
		}
		out[peer] = files
	}
	return out
}

// Downloading lists, per file name, the peers it is currently being pulled from.
func (r *DownloadRegistry) Downloading() map[string][]string {
	out := make(map[string][]string)
	for peer, list := range r.Snapshot() {
		for _, e := range list {
			if e.Active {
				out[e.Value] = append(out[e.Value], peer)
			}
		}
	}
	for _, peers := range out {
		sort.Strings(peers)
	}
	return out
}
