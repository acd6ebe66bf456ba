package clinical

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/chart-console/internal/fhir"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// Status is the lifecycle state of one cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Key addresses one cache entry.
type Key struct {
	PatientID string
	Category  Category
}

func (k Key) String() string { return k.PatientID + "/" + string(k.Category) }

// Entry is a snapshot of a cache entry. Data is set only on success and Error
// only on error. StatusCode carries the remote status when the failure had one.
type Entry struct {
	Status     Status    `json:"status"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Payload extracts typed data from a successful entry.
func Payload[T any](e Entry) (T, bool) {
	var zero T
	if e.Status != StatusSuccess {
		return zero, false
	}
	v, ok := e.Data.(T)
	return v, ok
}

// Loader fetches the payload of one category for a patient.
type Loader func(ctx context.Context, patientID string) (any, error)

// StoreConfig wires a Store.
type StoreConfig struct {
	Gateway Gateway
	// Summary loads the summary category; without it summary loads fail with
	// ErrSummaryUnavailable.
	Summary *SummaryPipeline
	Logger  *logging.Logger
	Metrics Metrics
}

// Store is the per-session section cache. Entries are created on first load
// and never evicted. Only the store's loaders and the Coordinator write entries.
type Store struct {
	gateway Gateway
	loaders map[Category]Loader
	logger  *logging.Logger
	metrics Metrics

	mu      sync.Mutex
	entries map[Key]*slot
	wg      sync.WaitGroup
}

type slot struct {
	entry Entry
	done  chan struct{} // closed when the in-flight load completes

	// pending holds appointments written while the list was loading; they
	// are applied over the loaded bundle before it is published.
	pending []*Appointment
}

// NewStore builds a section cache over the gateway.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("clinical: gateway is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	s := &Store{
		gateway: cfg.Gateway,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		entries: make(map[Key]*slot),
	}
	s.loaders = map[Category]Loader{
		CategoryImmunization: s.listLoader(CategoryImmunization),
		CategoryMedication:   s.listLoader(CategoryMedication),
		CategoryAllergy:      s.listLoader(CategoryAllergy),
		CategoryProcedure:    s.listLoader(CategoryProcedure),
		CategoryCondition:    s.listLoader(CategoryCondition),
		CategoryAppointment:  s.loadAppointments,
		CategorySummary:      summaryLoader(cfg.Summary),
	}
	return s, nil
}

// EnsureLoaded starts a fetch for key unless one is in flight or has succeeded.
// It reports whether a fetch was started. The fetch is detached from ctx
// cancellation and runs to completion; there are no timeouts at this layer.
func (s *Store) EnsureLoaded(ctx context.Context, key Key) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	loader := s.loaders[key.Category]

	s.mu.Lock()
	sl, ok := s.entries[key]
	if ok && (sl.entry.Status == StatusLoading || sl.entry.Status == StatusSuccess) {
		s.mu.Unlock()
		return false, nil
	}
	if !ok {
		sl = &slot{}
		s.entries[key] = sl
	}
	// Error entries drop their message; loading never carries stale data.
	sl.entry = Entry{Status: StatusLoading, UpdatedAt: time.Now()}
	sl.done = make(chan struct{})
	done := sl.done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(context.WithoutCancel(ctx), key, loader, done)
	}()
	return true, nil
}

func (s *Store) run(ctx context.Context, key Key, loader Loader, done chan struct{}) {
	start := time.Now()
	data, err := loader(ctx, key.PatientID)
	s.metrics.ObserveSectionLoad(string(key.Category), outcomeOf(err), time.Since(start).Seconds())

	next := Entry{Status: StatusSuccess, Data: data, UpdatedAt: time.Now()}
	if err != nil {
		next = Entry{Status: StatusError, Error: err.Error(), StatusCode: fhir.StatusCode(err), UpdatedAt: time.Now()}
		s.logger.Warn("section load failed",
			"patient_id", key.PatientID,
			"category", string(key.Category),
			"error", err,
		)
	} else {
		s.logger.Debug("section loaded",
			"patient_id", key.PatientID,
			"category", string(key.Category),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	s.mu.Lock()
	sl := s.entries[key]
	if bundle, ok := next.Data.(*AppointmentBundle); ok {
		for _, a := range sl.pending {
			bundle = bundle.applied(a)
		}
		next.Data = bundle
	}
	sl.pending = nil
	sl.entry = next
	close(done)
	s.mu.Unlock()
}

// Get returns a snapshot of the entry; unknown keys read as idle.
func (s *Store) Get(key Key) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.entries[key]; ok {
		return sl.entry
	}
	return Entry{Status: StatusIdle}
}

// Wait blocks until key is no longer loading or ctx ends, then returns the entry.
func (s *Store) Wait(ctx context.Context, key Key) (Entry, error) {
	s.mu.Lock()
	sl, ok := s.entries[key]
	if !ok || sl.entry.Status != StatusLoading {
		entry := Entry{Status: StatusIdle}
		if ok {
			entry = sl.entry
		}
		s.mu.Unlock()
		return entry, nil
	}
	done := sl.done
	s.mu.Unlock()

	select {
	case <-done:
		return s.Get(key), nil
	case <-ctx.Done():
		return s.Get(key), ctx.Err()
	}
}

// Load is EnsureLoaded followed by Wait.
func (s *Store) Load(ctx context.Context, key Key) (Entry, error) {
	if _, err := s.EnsureLoaded(ctx, key); err != nil {
		return Entry{}, err
	}
	return s.Wait(ctx, key)
}

// Drain waits for every in-flight load to finish.
func (s *Store) Drain() { s.wg.Wait() }

// replaceAppointment swaps one appointment inside a loaded appointment bundle.
// While the list is loading the write is queued and applied when the load
// succeeds, since that fetch may predate it. It reports false when the
// patient's appointments are neither loaded nor loading, or do not contain the id.
func (s *Store) replaceAppointment(patientID string, updated *Appointment) bool {
	key := Key{PatientID: patientID, Category: CategoryAppointment}

	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.entries[key]
	if !ok {
		return false
	}
	switch sl.entry.Status {
	case StatusLoading:
		sl.pending = append(sl.pending, updated)
		return true
	case StatusSuccess:
	default:
		return false
	}
	bundle, ok := sl.entry.Data.(*AppointmentBundle)
	if !ok {
		return false
	}
	next, replaced := bundle.withReplaced(bundle.named(updated))
	if replaced {
		sl.entry.Data = next
		sl.entry.UpdatedAt = time.Now()
	}
	return replaced
}

func validateKey(key Key) error {
	if key.PatientID == "" {
		return ErrPatientRequired
	}
	if !key.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(key.Category))
	}
	return nil
}

func (s *Store) listLoader(category Category) Loader {
	return func(ctx context.Context, patientID string) (any, error) {
		resources, err := s.gateway.ListByCategory(ctx, patientID, category)
		if err != nil {
			return nil, err
		}
		return normalizeList(category, resources), nil
	}
}

// loadAppointments joins appointments with their practitioners. Practitioners
// the store did not return through _include are read one by one; a failed
// read leaves the participant display name in place.
func (s *Store) loadAppointments(ctx context.Context, patientID string) (any, error) {
	resources, err := s.gateway.ListByCategory(ctx, patientID, CategoryAppointment)
	if err != nil {
		return nil, err
	}
	bundle := JoinAppointments(resources)
	for _, id := range bundle.MissingPractitioners() {
		r, err := s.gateway.GetByID(ctx, "Practitioner", id)
		if err != nil {
			s.logger.Warn("practitioner lookup failed", "practitioner_id", id, "error", err)
			continue
		}
		bundle.Practitioners[id] = NormalizePractitioner(r)
	}
	for _, a := range bundle.Appointments {
		if p := bundle.Practitioners[a.PractitionerID]; p != nil {
			a.PractitionerName = p.Name
		}
	}
	return bundle, nil
}

func summaryLoader(p *SummaryPipeline) Loader {
	return func(ctx context.Context, patientID string) (any, error) {
		if p == nil {
			return nil, ErrSummaryUnavailable
		}
		return p.Load(ctx, patientID)
	}
}
