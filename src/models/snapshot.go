package models

// Snapshot is the throttled, depth-monotonic analysis summary shown to the
// user. Err is set on the terminal snapshot of a session that failed.
type Snapshot struct {
	Depth int      `json:"depth"`
	Lines []string `json:"lines"`
	Err   string   `json:"error,omitempty"`
}

// Equal reports whether two snapshots would render identically.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Depth != o.Depth || s.Err != o.Err || len(s.Lines) != len(o.Lines) {
		return false
	}
	for i := range s.Lines {
		if s.Lines[i] != o.Lines[i] {
			return false
		}
	}
	return true
}
