package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/skumatch/internal/domain"
)

// MappingRepository stores confirmed query to product-name associations.
type MappingRepository interface {
	Upsert(ctx context.Context, mapping domain.Mapping) error
	List(ctx context.Context) ([]*domain.MappingEntry, error)
}

// MappingService persists confirmed mappings.
type MappingService struct {
	repo  MappingRepository
	store ObjectStore
	file  string
	now   func() time.Time
}

// NewMappingService creates a MappingService. An empty file disables the
// JSON file copy and a nil store disables snapshots.
func NewMappingService(repo MappingRepository, store ObjectStore, file string) *MappingService {
	return &MappingService{
		repo:  repo,
		store: store,
		file:  file,
		now:   time.Now,
	}
}

// Save stores every pair of the mapping. The database is the record; the
// file and the object-store snapshot mirror the submitted mapping as a whole.
func (s *MappingService) Save(ctx context.Context, mapping domain.Mapping) error {
	if len(mapping) == 0 {
		return domain.ErrNoMappings
	}

	if err := s.repo.Upsert(ctx, mapping); err != nil {
		return storageFailure("failed to store mappings", err)
	}

	data, err := encodeMapping(mapping)
	if err != nil {
		return err
	}

	if s.file != "" {
		if err := writeFileAtomic(s.file, data); err != nil {
			return storageFailure("failed to write "+s.file, err)
		}
	}

	if s.store != nil {
		key := "mappings/" + s.now().UTC().Format("20060102T150405.000000000Z") + ".json"
		if err := s.store.PutObject(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
			log.Printf("mapping: snapshot %s failed: %v", key, err)
		}
	}

	log.Printf("mapping: saved %d mappings", len(mapping))
	return nil
}

// List returns the stored mappings ordered by query.
func (s *MappingService) List(ctx context.Context) ([]*domain.MappingEntry, error) {
	return s.repo.List(ctx)
}

// storageFailure marks err as a storage failure so callers can match
// domain.ErrStorageOperationFail.
func storageFailure(what string, err error) error {
	return fmt.Errorf("%s: %w", what, domain.NewDomainErrorWithCause(
		domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err))
}

// encodeMapping renders the mapping as four-space indented JSON with
// non-ASCII text kept as is.
func encodeMapping(mapping domain.Mapping) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("failed to encode mappings: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".mappings-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
