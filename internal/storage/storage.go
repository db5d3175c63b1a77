package storage

import "oracleScope/internal/model"

// Storage defines a sink for committed snapshot records.
type Storage interface {
	PutSnapshotBatch(records []model.SnapshotRecord) error
}

// Multi fans each batch out to every sink in order, stopping at the first
// error.
func Multi(sinks ...Storage) Storage {
	return multi(sinks)
}

type multi []Storage

func (m multi) PutSnapshotBatch(records []model.SnapshotRecord) error {
	for _, sink := range m {
		if err := sink.PutSnapshotBatch(records); err != nil {
			return err
		}
	}
	return nil
}
