package agenda

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/apperr"
	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/locker"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// Store holds every doctor's weekly windows. Reads are served from memory.
// A mutation reloads the persisted set under the doctor's lock and the
// collection lock, runs on a copy, is persisted, and only then replaces the
// live set, so a failed save leaves the store as it was and processes
// sharing one repository never overwrite each other.
// collection names the agenda snapshot for cross-process locking.
const collection = "agenda"

type Store struct {
	mu      sync.RWMutex
	windows []Window

	repo   Repository
	locks  locker.Locker
	now    func() time.Time
	logger zerolog.Logger
}

// NewStore builds an empty store. now may be nil to use the wall clock.
func NewStore(repo Repository, locks locker.Locker, now func() time.Time, logger zerolog.Logger) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		repo:   repo,
		locks:  locks,
		now:    now,
		logger: logger.With().Str("component", "agenda").Logger(),
	}
}

// Init loads the persisted agenda. When nothing was persisted yet it gives
// every enabled doctor the default week and saves it.
func (s *Store) Init(ctx context.Context, enabledDoctors []int) error {
	loaded, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		s.mu.Lock()
		s.windows = loaded
		s.mu.Unlock()
		s.logger.Info().Int("windows", len(loaded)).Msg("agenda loaded")
		return nil
	case !errors.Is(err, snapshot.ErrAbsent):
		return fmt.Errorf("load agenda: %w", err)
	}

	today := calendar.DateOf(s.now())
	var seeded []Window
	for _, id := range enabledDoctors {
		seeded = append(seeded, defaultWeek(id, today, nil)...)
	}
	if err := s.repo.Save(ctx, seeded); err != nil {
		return fmt.Errorf("save seeded agenda: %w", err)
	}
	s.mu.Lock()
	s.windows = seeded
	s.mu.Unlock()
	s.logger.Info().Int("doctors", len(enabledDoctors)).Int("windows", len(seeded)).Msg("agenda seeded")
	return nil
}

func defaultWeek(doctorID int, today calendar.Date, skip map[int]bool) []Window {
	var out []Window
	for day := 0; day <= 6; day++ {
		if skip[day] {
			continue
		}
		out = append(out, Window{
			DoctorID:    doctorID,
			Weekday:     day,
			Start:       DefaultStart,
			End:         DefaultEnd,
			LastUpdated: today,
		})
	}
	return out
}

func (s *Store) load(ctx context.Context) ([]Window, error) {
	loaded, err := s.repo.Load(ctx)
	if errors.Is(err, snapshot.ErrAbsent) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load agenda: %w", err)
	}
	return loaded, nil
}

// Reload replaces the in-memory windows with what is persisted.
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
	s.windows = loaded
	s.mu.Unlock()
	return nil
}

func (s *Store) mutate(ctx context.Context, doctorID int, fn func(ws []Window) ([]Window, error)) error {
	release, err := s.locks.Acquire(ctx, locker.DoctorKey(doctorID))
	if err != nil {
		return err
	}
	defer release()

	releaseAll, err := s.locks.Acquire(ctx, locker.CollectionKey(collection))
	if err != nil {
		return err
	}
	defer releaseAll()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.windows = current

	next, err := fn(append([]Window(nil), current...))
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error().Err(err).Int("doctor_id", doctorID).Msg("persist agenda failed")
		return fmt.Errorf("persist agenda: %w", err)
	}
	s.windows = next
	return nil
}

func indexOf(ws []Window, doctorID, weekday int) int {
	for i, w := range ws {
		if w.DoctorID == doctorID && w.Weekday == weekday {
			return i
		}
	}
	return -1
}

// Add creates the window for (doctorID, weekday).
func (s *Store) Add(ctx context.Context, doctorID, weekday int, start, end calendar.TimeOfDay) (Window, error) {
	if !ValidWeekday(weekday) {
		return Window{}, apperr.Validation("El valor de 'dia_numero' debe estar entre 0 y 6")
	}
	w := Window{
		DoctorID:    doctorID,
		Weekday:     weekday,
		Start:       start,
		End:         end,
		LastUpdated: calendar.DateOf(s.now()),
	}
	err := s.mutate(ctx, doctorID, func(ws []Window) ([]Window, error) {
		if indexOf(ws, doctorID, weekday) >= 0 {
			return nil, apperr.Conflict("El día indicado ya está agendado")
		}
		if start >= end {
			return nil, apperr.Validation("La hora de inicio debe ser menor a la hora de fin")
		}
		return append(ws, w), nil
	})
	if err != nil {
		return Window{}, err
	}
	return w, nil
}

// Update changes the hours of an existing window, stamps it with today's
// date and returns all of the doctor's windows.
func (s *Store) Update(ctx context.Context, doctorID, weekday int, start, end calendar.TimeOfDay) ([]Window, error) {
	var result []Window
	err := s.mutate(ctx, doctorID, func(ws []Window) ([]Window, error) {
		i := indexOf(ws, doctorID, weekday)
		if i < 0 {
			return nil, apperr.NotFound("Día %d no encontrado en la Agenda del Médico %d", weekday, doctorID)
		}
		if start >= end {
			return nil, apperr.Validation("La hora de inicio debe ser menor a la hora de fin")
		}
		ws[i].Start = start
		ws[i].End = end
		ws[i].LastUpdated = calendar.DateOf(s.now())
		result = byDoctor(ws, doctorID)
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Remove deletes the window for (doctorID, weekday) and reports whether it existed.
func (s *Store) Remove(ctx context.Context, doctorID, weekday int) (bool, error) {
	found := false
	err := s.mutate(ctx, doctorID, func(ws []Window) ([]Window, error) {
		i := indexOf(ws, doctorID, weekday)
		if i < 0 {
			return ws, nil
		}
		found = true
		return append(ws[:i], ws[i+1:]...), nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Onboard gives a doctor the default hours on every weekday not yet scheduled.
func (s *Store) Onboard(ctx context.Context, doctorID int) ([]Window, error) {
	var added []Window
	err := s.mutate(ctx, doctorID, func(ws []Window) ([]Window, error) {
		have := make(map[int]bool)
		for _, w := range ws {
			if w.DoctorID == doctorID {
				have[w.Weekday] = true
			}
		}
		added = defaultWeek(doctorID, calendar.DateOf(s.now()), have)
		return append(ws, added...), nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// FindByDoctor returns the doctor's windows ordered by weekday.
func (s *Store) FindByDoctor(doctorID int) []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return byDoctor(s.windows, doctorID)
}

func byDoctor(ws []Window, doctorID int) []Window {
	out := []Window{}
	for _, w := range ws {
		if w.DoctorID == doctorID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out
}

// FindWindowCovering returns the doctor's window for the exact weekday.
func (s *Store) FindWindowCovering(doctorID, weekday int) (Window, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.windows, doctorID, weekday); i >= 0 {
		return s.windows[i], true
	}
	return Window{}, false
}

// FindWindowContainingTime returns the first of the doctor's windows, on any
// weekday, that strictly contains t.
func (s *Store) FindWindowContainingTime(doctorID int, t calendar.TimeOfDay) (Window, bool) {
	return s.findFirst(doctorID, func(w Window) bool { return w.Contains(t) })
}

// FindWindowContainingText is FindWindowContainingTime for an unparsed clock
// string.
func (s *Store) FindWindowContainingText(doctorID int, hhmm string) (Window, bool) {
	return s.findFirst(doctorID, func(w Window) bool { return w.ContainsText(hhmm) })
}

func (s *Store) findFirst(doctorID int, match func(Window) bool) (Window, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.windows {
		if w.DoctorID == doctorID && match(w) {
			return w, true
		}
	}
	return Window{}, false
}

// AllSorted returns every window ordered by doctor, then weekday.
func (s *Store) AllSorted() []Window {
	s.mu.RLock()
	out := append([]Window{}, s.windows...)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DoctorID != out[j].DoctorID {
			return out[i].DoctorID < out[j].DoctorID
		}
		return out[i].Weekday < out[j].Weekday
	})
	return out
}
