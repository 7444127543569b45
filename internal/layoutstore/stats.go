package layoutstore

import (
	"context"

	"github.com/amanthanvi/dashkeep/internal/storage"
)

type Stats struct {
	Path              string
	SchemaVersion     int
	CodeSchemaVersion int
	Dashboards        int
	Layouts           int
}

// Stats opens the store if needed and reports where it lives, which schema it
// carries and how many rows each collection holds.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	backend, release, err := s.conn(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer release()
	raw, err := backend.Stats(ctx)
	if err != nil {
		return Stats{}, storageErr("stats", err)
	}
	return Stats{
		Path:              backend.Path(),
		SchemaVersion:     raw.SchemaVersion,
		CodeSchemaVersion: storage.CurrentSchemaVersion(),
		Dashboards:        raw.Dashboards,
		Layouts:           raw.Layouts,
	}, nil
}
