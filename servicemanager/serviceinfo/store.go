package serviceinfo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a service has no record.
	ErrNotFound = errors.New("service information not found")
	// ErrActionExists is returned by AddAction for a duplicate action.
	ErrActionExists = errors.New("action already exists")
	// ErrLockedElsewhere is returned by Lock if another supervisor holds the
	// instance lock.
	ErrLockedElsewhere = errors.New("service is locked elsewhere")
)

// Store is a directory of service-info records, one file per service.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir. An empty dir uses DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{Dir: dir}
}

// Path returns the record path of the named service.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// DefaultPIDFile returns the pid file used when install is given none.
func (s *Store) DefaultPIDFile(name string) string {
	return s.Path(name) + ".pid"
}

func (s *Store) editLock(name string) *flock.Flock {
	return flock.New(s.Path(name) + ".lock")
}

// Exists reports whether the named service has a record.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Record reads the raw record of the named service.
func (s *Store) Record(name string) (*Record, error) {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "service %q", name)
		}
		return nil, errors.Wrap(err, "failed to open service information")
	}
	defer f.Close()

	return Parse(f)
}

// Load reads and decodes the record of the named service.
func (s *Store) Load(name string) (Config, error) {
	rec, err := s.Record(name)
	if err != nil {
		return Config{}, err
	}

	cfg, err := Decode(rec)
	if err != nil {
		return cfg, errors.Wrapf(err, "service %q", name)
	}

	return cfg, nil
}

// Create writes a new record for the named service, replacing any existing
// one.
func (s *Store) Create(name string, cfg Config) error {
	if err := validName(name); err != nil {
		return err
	}

	rec := Encode(cfg)
	if err := rec.Validate(); err != nil {
		return errors.Wrapf(err, "service %q", name)
	}

	if err := os.MkdirAll(s.Dir, 0775); err != nil {
		return errors.Wrap(err, "failed to create storage directory")
	}

	lock := s.editLock(name)
	if err := lock.Lock(); err != nil {
		return errors.Wrap(err, "failed to lock service information")
	}
	defer lock.Unlock()

	f, err := os.OpenFile(s.Path(name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create service information")
	}

	if _, err := rec.WriteTo(f); err != nil {
		f.Close()
		return err
	}

	return errors.Wrap(f.Close(), "failed to close service information")
}

// AddAction appends a custom action to the named service's record. The
// record is never rewritten; the new lines are appended under the edit lock.
func (s *Store) AddAction(name string, action Action) error {
	if action.Name == "" || strings.ContainsAny(action.Name, "=\r\n") {
		return errors.Errorf("invalid action name %q", action.Name)
	}

	var lines Record
	addAction(&lines, action)

	if err := lines.Validate(); err != nil {
		return errors.Wrapf(err, "action %q", action.Name)
	}

	if !s.Exists(name) {
		return errors.Wrapf(ErrNotFound, "service %q", name)
	}

	lock := s.editLock(name)
	if err := lock.Lock(); err != nil {
		return errors.Wrap(err, "failed to lock service information")
	}
	defer lock.Unlock()

	rec, err := s.Record(name)
	if err != nil {
		return err
	}

	if _, ok := rec.Get(actionPrefix + action.Name); ok {
		return errors.Wrapf(ErrActionExists, "action %q", action.Name)
	}

	f, err := os.OpenFile(s.Path(name), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to open service information")
	}

	if _, err := lines.WriteTo(f); err != nil {
		f.Close()
		return err
	}

	return errors.Wrap(f.Close(), "failed to close service information")
}

// Remove deletes the named service's record. A missing record is not an
// error.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove service information")
	}

	os.Remove(s.Path(name) + ".lock")
	return nil
}

// InstanceLock is held by a running supervisor for its whole lifetime.
type InstanceLock struct {
	f *flock.Flock
}

// Lock takes the instance lock of the named service without blocking. It
// returns ErrLockedElsewhere if another supervisor already holds it.
func (s *Store) Lock(name string) (*InstanceLock, error) {
	if err := os.MkdirAll(s.Dir, 0775); err != nil {
		return nil, errors.Wrap(err, "failed to create storage directory")
	}

	f := flock.New(s.Path(name) + ".run.lock")

	ok, err := f.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire instance lock")
	}
	if !ok {
		return nil, errors.Wrapf(ErrLockedElsewhere, "service %q", name)
	}

	return &InstanceLock{f}, nil
}

// Unlock releases the instance lock.
func (l *InstanceLock) Unlock() error {
	return errors.Wrap(l.f.Unlock(), "failed to release instance lock")
}

func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return errors.Errorf("invalid service name %q", name)
	case strings.ContainsAny(name, `/\`):
		return errors.Errorf("service name %q must not contain path separators", name)
	}
	return nil
}
