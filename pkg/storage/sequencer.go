package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	cfg "github.com/1F47E/go-albumsign/pkg/config"
)

var ErrNoFreeSlot = errors.New("no free output slot")

// Slot is a reserved output name.
type Slot struct {
	Time  time.Time
	Index int
	Path  string
}

// Sequencer hands out album paths. The album sorts by the timestamp in the
// name, so files are packed backwards in time: up to 100 per second, then
// one second earlier. It is safe for concurrent use, the mutex being the
// only point where parallel signing has to serialize.
type Sequencer struct {
	mu       sync.Mutex
	root     string
	identity string
	ts       time.Time
	taken    map[string]struct{}
}

func NewSequencer(root string, start time.Time, identity string) *Sequencer {
	return &Sequencer{
		root:     root,
		identity: identity,
		ts:       start.Truncate(time.Second),
		taken:    make(map[string]struct{}),
	}
}

// Dir is the date directory for t.
func Dir(root string, t time.Time) string {
	return filepath.Join(root, t.Format("2006"), t.Format("01"), t.Format("02"))
}

// Name is the file name for t, index and identity.
func Name(t time.Time, index int, identity string) string {
	return fmt.Sprintf("%s%02d-%s.jpg", t.Format(cfg.DateArgFormat), index, identity)
}

func (s *Sequencer) path(t time.Time, index int) string {
	return filepath.Join(Dir(s.root, t), Name(t, index, s.identity))
}

// Time is the current timestamp.
func (s *Sequencer) Time() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ts
}

// Next reserves the first free slot at or before the current timestamp. A
// slot is free when no file exists at its path and it was not reserved
// earlier in this run. Exhausting the 100 indexes of a second moves the
// timestamp back by one second.
func (s *Sequencer) Next() (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for back := 0; back <= cfg.SequenceMaxBack; back++ {
		for idx := 0; idx <= cfg.MaxSequence; idx++ {
			p := s.path(s.ts, idx)
			if _, ok := s.taken[p]; ok {
				continue
			}
			if _, err := os.Stat(p); err == nil {
				continue
			} else if !errors.Is(err, os.ErrNotExist) {
				return Slot{}, err
			}
			s.taken[p] = struct{}{}
			return Slot{Time: s.ts, Index: idx, Path: p}, nil
		}
		s.ts = s.ts.Add(-time.Second)
	}
	return Slot{}, ErrNoFreeSlot
}

// Advance moves the timestamp one second back. Called once per written file.
func (s *Sequencer) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ts = s.ts.Add(-time.Second)
}

// Release gives back a slot whose file was never written.
func (s *Sequencer) Release(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.taken, slot.Path)
}
