package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/meshflow/artifact"
)

// ErrRecordNotFound is returned when a record id is unknown.
var ErrRecordNotFound = errors.New("record not found")

// RecordStore keeps record snapshots. Implementations must be safe for
// concurrent use and must not retain the records passed to Save.
type RecordStore interface {
	Save(rec *Record) error
	Get(id string) (*Record, error)
	List() ([]*Record, error)
}

// InMemoryRecordStore is a volatile RecordStore holding clones in a map.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRecordStore constructs an empty store.
func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[string]*Record)}
}

// Save stores a clone of rec.
func (s *InMemoryRecordStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec.Clone()
	return nil
}

// Get returns a clone of the stored record.
func (s *InMemoryRecordStore) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return rec.Clone(), nil
}

// List returns clones of every record ordered by creation time.
func (s *InMemoryRecordStore) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sortRecords(out)
	return out, nil
}

// RecordNamespace is the artifact namespace used by ArtifactRecordStore.
const RecordNamespace = "records"

// ArtifactRecordStore persists records as JSON blobs in an artifact.Store.
// Decoded records keep error text only, and carry no Descriptor.
type ArtifactRecordStore struct {
	store artifact.Store
}

// NewArtifactRecordStore wraps store.
func NewArtifactRecordStore(store artifact.Store) *ArtifactRecordStore {
	return &ArtifactRecordStore{store: store}
}

// Save encodes rec as JSON.
func (s *ArtifactRecordStore) Save(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return s.store.Save(RecordNamespace, rec.ID, data)
}

// Get decodes the record stored under id.
func (s *ArtifactRecordStore) Get(id string) (*Record, error) {
	data, err := s.store.Get(RecordNamespace, id)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}

// List decodes every stored record ordered by creation time.
func (s *ArtifactRecordStore) List() ([]*Record, error) {
	names, err := s.store.List(RecordNamespace)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(names))
	for _, name := range names {
		rec, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
