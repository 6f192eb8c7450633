package turno

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/locker"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// collection names the appointments snapshot for cross-process locking.
const collection = "turnos"

// Store holds booked appointments in memory and persists the full set after
// every change. Each change reloads the persisted set under the collection
// lock first, so processes sharing one repository never overwrite each
// other. It does not enforce uniqueness; the engine does.
type Store struct {
	mu    sync.RWMutex
	items []Appointment

	repo   Repository
	locks  locker.Locker
	logger zerolog.Logger
}

func NewStore(repo Repository, locks locker.Locker, logger zerolog.Logger) *Store {
	return &Store{
		repo:   repo,
		locks:  locks,
		logger: logger.With().Str("component", "turnos").Logger(),
	}
}

// Init loads the persisted appointments. A missing snapshot starts empty and
// writes an empty one.
func (s *Store) Init(ctx context.Context) error {
	loaded, err := s.repo.Load(ctx)
	if errors.Is(err, snapshot.ErrAbsent) {
		s.logger.Info().Msg("no appointments persisted, starting empty")
		if err := s.repo.Save(ctx, nil); err != nil {
			return fmt.Errorf("create appointments snapshot: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}
	s.mu.Lock()
	s.items = loaded
	s.mu.Unlock()
	s.logger.Info().Int("appointments", len(loaded)).Msg("appointments loaded")
	return nil
}

func (s *Store) load(ctx context.Context) ([]Appointment, error) {
	loaded, err := s.repo.Load(ctx)
	if errors.Is(err, snapshot.ErrAbsent) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	return loaded, nil
}

// Reload replaces the in-memory set with what is persisted.
func (s *Store) Reload(ctx context.Context) error {
	release, err := s.locks.Acquire(ctx, locker.CollectionKey(collection))
	if err != nil {
		return err
	}
	defer release()

	loaded, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = loaded
	s.mu.Unlock()
	return nil
}

// mutate reloads the set, applies fn to a copy and, when fn reports a
// change, persists the copy and swaps it in. fn sees the freshest set any
// process has saved.
func (s *Store) mutate(ctx context.Context, fn func([]Appointment) ([]Appointment, bool, error)) error {
	release, err := s.locks.Acquire(ctx, locker.CollectionKey(collection))
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.items = current

	next, changed, err := fn(append([]Appointment(nil), current...))
	if err != nil || !changed {
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error().Err(err).Msg("persist appointments failed")
		return fmt.Errorf("persist appointments: %w", err)
	}
	s.items = next
	return nil
}

// Add appends the appointment unconditionally.
func (s *Store) Add(ctx context.Context, a Appointment) error {
	return s.mutate(ctx, func(items []Appointment) ([]Appointment, bool, error) {
		return append(items, a), true, nil
	})
}

// Book runs decide against the persisted appointments and stores what it
// returns. Nothing is stored when decide fails.
func (s *Store) Book(ctx context.Context, decide func(booked Set) (Appointment, error)) (Appointment, error) {
	var appt Appointment
	err := s.mutate(ctx, func(items []Appointment) ([]Appointment, bool, error) {
		var err error
		appt, err = decide(Set(items))
		if err != nil {
			return nil, false, err
		}
		return append(items, appt), true, nil
	})
	if err != nil {
		return Appointment{}, err
	}
	return appt, nil
}

// Remove deletes every appointment between the doctor and the patient and
// reports whether any existed.
func (s *Store) Remove(ctx context.Context, doctorID, patientID int) (bool, error) {
	removed := false
	err := s.mutate(ctx, func(items []Appointment) ([]Appointment, bool, error) {
		removed = false
		kept := items[:0]
		for _, a := range items {
			if a.DoctorID == doctorID && a.PatientID == patientID {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		return kept, removed, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// view returns the live set. The slice is replaced on every change and
// never written in place, so it can be read after the lock is released.
func (s *Store) view() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Set(s.items)
}

func (s *Store) ListByDoctor(doctorID int) []Appointment {
	return s.view().ByDoctor(doctorID)
}

// ListPendingByDoctor returns the doctor's appointments still ahead of now.
func (s *Store) ListPendingByDoctor(doctorID int, now time.Time) []Appointment {
	return s.view().filter(func(a Appointment) bool { return a.DoctorID == doctorID && a.PendingAt(now) })
}

func (s *Store) ListByPatient(patientID int) []Appointment {
	return s.view().filter(func(a Appointment) bool { return a.PatientID == patientID })
}

// HasPatient reports whether the patient holds any appointment at all.
func (s *Store) HasPatient(patientID int) bool {
	return len(s.ListByPatient(patientID)) > 0
}

func (s *Store) ExistsExact(doctorID int, date calendar.Date, t calendar.TimeOfDay) bool {
	return s.view().ExistsExact(doctorID, date, t)
}

func (s *Store) FindPendingForPair(doctorID, patientID int, now time.Time) (Appointment, bool) {
	return s.view().FindPendingForPair(doctorID, patientID, now)
}

// All returns every appointment in insertion order.
func (s *Store) All() []Appointment {
	return s.view().filter(func(Appointment) bool { return true })
}

// Set is a read-only view over booked appointments.
type Set []Appointment

func (set Set) filter(keep func(Appointment) bool) []Appointment {
	out := []Appointment{}
	for _, a := range set {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (set Set) ByDoctor(doctorID int) []Appointment {
	return set.filter(func(a Appointment) bool { return a.DoctorID == doctorID })
}

// ExistsExact reports whether the doctor has any appointment at date and t.
func (set Set) ExistsExact(doctorID int, date calendar.Date, t calendar.TimeOfDay) bool {
	for _, a := range set {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == t {
			return true
		}
	}
	return false
}

// FindPendingForPair returns the first appointment between the doctor and
// the patient that is still open by now's clock. The requested slot plays no
// part in the check.
func (set Set) FindPendingForPair(doctorID, patientID int, now time.Time) (Appointment, bool) {
	for _, a := range set {
		if a.DoctorID == doctorID && a.PatientID == patientID && a.OpenAt(now) {
			return a, true
		}
	}
	return Appointment{}, false
}
