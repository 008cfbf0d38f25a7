package dynamock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Snapshot owns the on-disk copy of the route table. The file is a JSON array
// of mock definitions and is rewritten wholesale on every mutation.
type Snapshot struct {
	path string
}

func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Load reads the snapshot file and returns its mocks, normalized exactly as
// new registrations are. A missing file means no prior state. An unreadable
// or malformed file is logged and also treated as no prior state, so a
// corrupt snapshot never prevents startup.
func (s *Snapshot) Load() []Mock {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warnf("unable to read snapshot %s, starting empty", s.path)
		}
		return nil
	}

	var records []mockRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.WithError(err).Warnf("snapshot %s is not valid JSON, starting empty", s.path)
		return nil
	}

	mocks := make([]Mock, 0, len(records))
	for _, r := range records {
		mocks = append(mocks, r.toMock())
	}
	return mocks
}

// Save atomically replaces the snapshot file with the given table contents.
// The mocks are written to a uniquely named temp file in the target directory
// and renamed over the target, so a reader or a restart never observes a
// partially written snapshot. Errors propagate to the caller; a failed save
// must fail the registration that triggered it.
func (s *Snapshot) Save(mocks []Mock) error {
	if mocks == nil {
		mocks = []Mock{}
	}

	data, err := json.MarshalIndent(mocks, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	dir := filepath.Dir(s.path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(s.path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write snapshot temp file %s", tmp)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			log.WithError(removeErr).Warnf("unable to clean up snapshot temp file %s", tmp)
		}
		return errors.Wrapf(err, "replace snapshot %s", s.path)
	}
	return nil
}
