package store

import (
	"context"
	"os"
	"sort"
	"strings"
)

// Stats holds keyed-store statistics.
type Stats struct {
	DBPath      string           `json:"db_path,omitempty"`
	DBSizeBytes int64            `json:"db_size_bytes,omitempty"`
	TotalKeys   int              `json:"total_keys"`
	TotalBytes  int              `json:"total_bytes"`
	Namespaces  []NamespaceStats `json:"namespaces"`
}

// NamespaceStats holds per-namespace counts. The namespace of a key is the
// segment before its first ':' after the reserved prefix.
type NamespaceStats struct {
	NS    string `json:"ns"`
	Keys  int    `json:"keys"`
	Bytes int    `json:"bytes"`
}

// CollectStats summarizes every key under prefix.
func CollectStats(ctx context.Context, s Store, prefix string) (*Stats, error) {
	st := &Stats{}
	if sq, ok := s.(*SQLiteStore); ok {
		st.DBPath = sq.Path()
		if info, err := os.Stat(sq.Path()); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}

	entries, err := s.List(ctx, prefix)
	if err != nil {
		return st, err
	}

	byNS := map[string]*NamespaceStats{}
	for _, e := range entries {
		ns := NamespaceOf(strings.TrimPrefix(e.Key, prefix))
		n, ok := byNS[ns]
		if !ok {
			n = &NamespaceStats{NS: ns}
			byNS[ns] = n
		}
		n.Keys++
		n.Bytes += len(e.Value)
		st.TotalKeys++
		st.TotalBytes += len(e.Value)
	}
	for _, n := range byNS {
		st.Namespaces = append(st.Namespaces, *n)
	}
	sort.Slice(st.Namespaces, func(i, j int) bool {
		if st.Namespaces[i].Keys != st.Namespaces[j].Keys {
			return st.Namespaces[i].Keys > st.Namespaces[j].Keys
		}
		return st.Namespaces[i].NS < st.Namespaces[j].NS
	})
	return st, nil
}

// NamespaceOf returns the leading segment of a relative key.
func NamespaceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
