package wipe

import (
	"context"

	"github.com/tripzi/functions/store"
)

type opKind int

const (
	opDelete opKind = iota + 1
	opUpdate
)

// session wraps the bulk-write batch with per-document bookkeeping so one
// document never carries two queued operations: deletes are deduplicated,
// updates for the same document are merged, and an update aimed at a
// document already queued for deletion is dropped. Deletes are pushed to
// the batch immediately; merged updates are pushed on flush.
type session struct {
	batch   store.Batch
	ops     map[string]opKind
	order   []string
	updates map[string][]store.Update
	err     error
}

func newSession(batch store.Batch) *session {
	return &session{
		batch:   batch,
		ops:     map[string]opKind{},
		updates: map[string][]store.Update{},
	}
}

// delete queues a document deletion. Returns false if the document already
// has a queued delete. A pending update for the document is discarded, the
// delete wins.
func (s *session) delete(path string) bool {
	switch s.ops[path] {
	case opDelete:
		return false
	case opUpdate:
		delete(s.updates, path)
	}
	s.ops[path] = opDelete
	if err := s.batch.Delete(path); err != nil && s.err == nil {
		s.err = err
	}
	return true
}

// update queues field updates for a document, merging with any updates
// already queued for it. Returns false if the document is queued for
// deletion or was already queued for update.
func (s *session) update(path string, updates []store.Update) bool {
	switch s.ops[path] {
	case opDelete:
		return false
	case opUpdate:
		s.updates[path] = append(s.updates[path], updates...)
		return false
	}
	s.ops[path] = opUpdate
	s.order = append(s.order, path)
	s.updates[path] = updates
	return true
}

// flush pushes the merged updates into the batch and flushes it. Must be
// the last store operation of a wipe.
func (s *session) flush(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	for _, path := range s.order {
		if s.ops[path] != opUpdate {
			continue
		}
		if err := s.batch.Update(path, s.updates[path]); err != nil {
			return err
		}
	}
	return s.batch.Flush(ctx)
}
