// Package store persists the relay's RunState between invocations.
//
// The state is a single JSON document, indented so it diffs cleanly, that is
// read once at the start of a run and overwritten wholesale at the end of a
// successful one. There is no locking: overlapping runs are last-write-wins.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
)

// Driver identifies a state backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local file (default)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests, dry runs)
)

// ErrNotFound is returned by a Backend when no state document exists yet.
var ErrNotFound = errors.New("state: not found")

// Backend reads and writes the raw state document.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Driver() Driver
}

// Store loads and saves RunState through a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a Store on the given backend.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Load returns the persisted state. A missing or unparseable document yields
// the first-run defaults; only backend I/O failures are returned as errors.
func (s *Store) Load(ctx context.Context) (domain.RunState, error) {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info("no run state found, starting fresh", "driver", s.backend.Driver())
		return domain.NewRunState(), nil
	}
	if err != nil {
		return domain.RunState{}, fmt.Errorf("read run state: %w", err)
	}

	state, err := Decode(data)
	if err != nil {
		s.logger.Warn("run state unreadable, starting fresh", "driver", s.backend.Driver(), "error", err)
		return domain.NewRunState(), nil
	}
	return state, nil
}

// Save overwrites the persisted state.
func (s *Store) Save(ctx context.Context, state domain.RunState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}
	return nil
}

// Encode serializes state as indented JSON with a trailing newline.
func Encode(state domain.RunState) ([]byte, error) {
	data, err := json.MarshalIndent(state.Normalize(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode run state: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a state document. Blank documents are treated as corrupt.
func Decode(data []byte) (domain.RunState, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.RunState{}, errors.New("decode run state: empty document")
	}
	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.RunState{}, fmt.Errorf("decode run state: %w", err)
	}
	return state.Normalize(), nil
}
