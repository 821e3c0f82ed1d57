package store

import "context"

// ExportAll returns every entry under prefix with fully qualified keys.
func ExportAll(ctx context.Context, s Store, prefix string) ([]Entry, error) {
	entries, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Import stores entries from an export, overwriting existing keys.
func Import(ctx context.Context, s Store, entries []Entry) (int, error) {
	imported := 0
	for _, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
