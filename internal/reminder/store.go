package reminder

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coopco/remindbot/internal/schedule"
)

// Store is whole-collection CRUD over each owner's reminders.
type Store interface {
	// ListDue yields every owner collection holding at least one reminder
	// due at asOf. Unreadable collections yield an error and iteration
	// continues.
	ListDue(ctx context.Context, asOf time.Time) iter.Seq2[*Collection, error]
	List(ctx context.Context, ownerID string) (*Collection, error)
	CreateOrReplace(ctx context.Context, r Reminder) error
	Delete(ctx context.Context, ownerID, name string) error
	ApplyUpdate(ctx context.Context, ownerID, name string, u Update) error
}

const fileExt = ".json"

// FileStore keeps one JSON file per owner under dir.
type FileStore struct {
	dir   string
	now   func() time.Time
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir. now supplies the clock used
// for first-fire computation; nil means time.Now.
func NewFileStore(dir string, now func() time.Time) *FileStore {
	if now == nil {
		now = time.Now
	}
	return &FileStore{
		dir:   dir,
		now:   now,
		locks: make(map[string]*sync.Mutex),
	}
}

// Init creates the store directory if needed.
func (s *FileStore) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create reminder directory: %w", err)
	}
	return nil
}

func (s *FileStore) path(ownerID string) string {
	return filepath.Join(s.dir, ownerID+fileExt)
}

// lock serializes read-modify-write cycles on one owner's file.
func (s *FileStore) lock(ownerID string) func() {
	s.mu.Lock()
	l, ok := s.locks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ownerID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func validOwnerID(ownerID string) error {
	if ownerID == "" || strings.ContainsAny(ownerID, `/\.`) {
		return fmt.Errorf("invalid owner id %q", ownerID)
	}
	return nil
}

// load reads an owner file. A missing file yields an empty collection and
// exists=false.
func (s *FileStore) load(ownerID string) (c *Collection, exists bool, err error) {
	data, err := os.ReadFile(s.path(ownerID))
	if errors.Is(err, os.ErrNotExist) {
		return newCollection(ownerID), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: owner %s: %v", ErrCollectionUnreadable, ownerID, err)
	}
	c, err = decodeCollection(ownerID, data)
	if err != nil {
		return nil, true, fmt.Errorf("%w: owner %s: %v", ErrCollectionUnreadable, ownerID, err)
	}
	return c, true, nil
}

// save overwrites the owner file with c via a temp file and rename.
func (s *FileStore) save(c *Collection) error {
	data, err := encodeCollection(c)
	if err != nil {
		return fmt.Errorf("%w: owner %s: %v", ErrIOFailure, c.OwnerID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+c.OwnerID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: owner %s: %v", ErrIOFailure, c.OwnerID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: owner %s: %v", ErrIOFailure, c.OwnerID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: owner %s: %v", ErrIOFailure, c.OwnerID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(c.OwnerID)); err != nil {
		return fmt.Errorf("%w: owner %s: %v", ErrIOFailure, c.OwnerID, err)
	}
	return nil
}

// owners lists the owner ids that have a file under dir, sorted.
func (s *FileStore) owners() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reminder directory %s: %w", s.dir, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) ListDue(ctx context.Context, asOf time.Time) iter.Seq2[*Collection, error] {
	return func(yield func(*Collection, error) bool) {
		ids, err := s.owners()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			unlock := s.lock(id)
			c, _, err := s.load(id)
			unlock()
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if len(c.Due(asOf)) == 0 && len(c.invalidErr) == 0 {
				continue
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (s *FileStore) List(_ context.Context, ownerID string) (*Collection, error) {
	if err := validOwnerID(ownerID); err != nil {
		return nil, err
	}
	unlock := s.lock(ownerID)
	defer unlock()
	c, _, err := s.load(ownerID)
	return c, err
}

// Get returns the named reminder of ownerID.
func (s *FileStore) Get(ctx context.Context, ownerID, name string) (Reminder, bool, error) {
	c, err := s.List(ctx, ownerID)
	if err != nil {
		return Reminder{}, false, err
	}
	r, ok := c.Reminders[name]
	return r, ok, nil
}

func (s *FileStore) CreateOrReplace(_ context.Context, r Reminder) error {
	if err := validOwnerID(r.OwnerID); err != nil {
		return err
	}
	if r.NextFireAt.IsZero() {
		next, err := schedule.FirstFire(r.Cadence, r.TimeOfDay, s.now())
		if err != nil {
			return err
		}
		r.NextFireAt = next
	}

	unlock := s.lock(r.OwnerID)
	defer unlock()

	c, _, err := s.load(r.OwnerID)
	if err != nil {
		return err
	}
	c.put(r)
	if err := s.save(c); err != nil {
		return err
	}
	slog.Debug("reminder: saved", "owner", r.OwnerID, "name", r.Name, "next", r.NextFireAt.Format(TimestampLayout))
	return nil
}

func (s *FileStore) Delete(_ context.Context, ownerID, name string) error {
	if err := validOwnerID(ownerID); err != nil {
		return err
	}
	unlock := s.lock(ownerID)
	defer unlock()

	c, exists, err := s.load(ownerID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	c.remove(name)
	return s.save(c)
}

func (s *FileStore) ApplyUpdate(_ context.Context, ownerID, name string, u Update) error {
	if err := validOwnerID(ownerID); err != nil {
		return err
	}
	unlock := s.lock(ownerID)
	defer unlock()

	c, exists, err := s.load(ownerID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	r, ok := c.Reminders[name]
	if !ok {
		return nil
	}
	u.apply(&r)
	if r.Name != name {
		c.remove(name)
	}
	c.put(r)
	return s.save(c)
}
