package doctor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/domain/agenda"
	"github.com/consultorio/turnos/internal/platform/apperr"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// Source produces the initial doctors when nothing is persisted yet.
type Source func(ctx context.Context) ([]Doctor, error)

// Onboarder gives a new doctor a default agenda.
type Onboarder interface {
	Onboard(ctx context.Context, doctorID int) ([]agenda.Window, error)
}

type Service struct {
	mu      sync.RWMutex
	doctors []Doctor

	repo   Repository
	agenda Onboarder
	logger zerolog.Logger
}

func NewService(repo Repository, onboard Onboarder, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		agenda: onboard,
		logger: logger.With().Str("component", "medicos").Logger(),
	}
}

// Init loads the registry. When nothing was persisted it asks source for
// doctors; a failing source leaves the registry empty.
func (s *Service) Init(ctx context.Context, source Source) error {
	loaded, err := s.repo.Load(ctx)
	if err == nil {
		s.mu.Lock()
		s.doctors = loaded
		s.mu.Unlock()
		s.logger.Info().Int("doctors", len(loaded)).Msg("doctors loaded")
		return nil
	}
	if !errors.Is(err, snapshot.ErrAbsent) {
		return fmt.Errorf("load doctors: %w", err)
	}

	var seeded []Doctor
	if source != nil {
		seeded, err = source(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("doctor seed source failed, starting empty")
			seeded = nil
		}
	}
	return s.Import(ctx, seeded)
}

// Import replaces the registry with ds, numbering them from 1.
func (s *Service) Import(ctx context.Context, ds []Doctor) error {
	next := make([]Doctor, len(ds))
	for i, d := range ds {
		d.ID = i + 1
		next[i] = d
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save doctors: %w", err)
	}
	s.doctors = next
	s.logger.Info().Int("doctors", len(next)).Msg("doctors imported")
	return nil
}

func (s *Service) List() []Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Doctor{}, s.doctors...)
}

func (s *Service) Get(id int) (Doctor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.doctors {
		if d.ID == id {
			return d, true
		}
	}
	return Doctor{}, false
}

func (s *Service) Exists(id int) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Service) Enabled(id int) bool {
	d, ok := s.Get(id)
	return ok && d.Enabled
}

// EnabledIDs lists the ids of every enabled doctor in registry order.
func (s *Service) EnabledIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int
	for _, d := range s.doctors {
		if d.Enabled {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func nextID(ds []Doctor) int {
	if len(ds) == 0 {
		return 1
	}
	return ds[len(ds)-1].ID + 1
}

func duplicate(ds []Doctor, cand Doctor) bool {
	for _, d := range ds {
		if d.ID != cand.ID && d.clashes(cand) {
			return true
		}
	}
	return false
}

// Create registers a doctor. An enabled doctor also gets the default agenda.
func (s *Service) Create(ctx context.Context, in Input) (Doctor, error) {
	s.mu.Lock()
	d := Doctor{}
	in.apply(&d)
	d.ID = nextID(s.doctors)
	if duplicate(s.doctors, d) {
		s.mu.Unlock()
		return Doctor{}, apperr.Conflict("Ya existe un médico con el mismo DNI, matrícula, nombre o apellido")
	}
	next := append(append([]Doctor(nil), s.doctors...), d)
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return Doctor{}, fmt.Errorf("save doctors: %w", err)
	}
	s.doctors = next
	s.mu.Unlock()

	s.logger.Info().Int("doctor_id", d.ID).Msg("doctor created")
	if d.Enabled && s.agenda != nil {
		if _, err := s.agenda.Onboard(ctx, d.ID); err != nil {
			s.logger.Error().Err(err).Int("doctor_id", d.ID).Msg("default agenda not created")
		}
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, id int, in Input) (Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, d := range s.doctors {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Doctor{}, apperr.NotFound("Médico no encontrado")
	}

	next := append([]Doctor(nil), s.doctors...)
	in.apply(&next[idx])
	if duplicate(next, next[idx]) {
		return Doctor{}, apperr.Conflict("Ya existe un médico con el mismo DNI, matrícula, nombre o apellido")
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return Doctor{}, fmt.Errorf("save doctors: %w", err)
	}
	s.doctors = next
	return next[idx], nil
}
