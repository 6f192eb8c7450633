package patient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/apperr"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// Source produces the initial patients when nothing is persisted yet.
type Source func(ctx context.Context) ([]Patient, error)

// Appointments answers whether a patient still has bookings.
type Appointments interface {
	HasPatient(patientID int) bool
}

type Service struct {
	mu       sync.RWMutex
	patients []Patient

	repo   Repository
	turnos Appointments
	logger zerolog.Logger
}

func NewService(repo Repository, turnos Appointments, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		turnos: turnos,
		logger: logger.With().Str("component", "pacientes").Logger(),
	}
}

// Init loads the registry, falling back to source when nothing is persisted.
func (s *Service) Init(ctx context.Context, source Source) error {
	loaded, err := s.repo.Load(ctx)
	if err == nil {
		s.mu.Lock()
		s.patients = loaded
		s.mu.Unlock()
		s.logger.Info().Int("patients", len(loaded)).Msg("patients loaded")
		return nil
	}
	if !errors.Is(err, snapshot.ErrAbsent) {
		return fmt.Errorf("load patients: %w", err)
	}

	var seeded []Patient
	if source != nil {
		if seeded, err = source(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("patient seed source failed, starting empty")
			seeded = nil
		}
	}
	return s.Import(ctx, seeded)
}

// Import replaces the registry with ps, numbering them from 1.
func (s *Service) Import(ctx context.Context, ps []Patient) error {
	next := make([]Patient, len(ps))
	for i, p := range ps {
		p.ID = i + 1
		next[i] = p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save patients: %w", err)
	}
	s.patients = next
	s.logger.Info().Int("patients", len(next)).Msg("patients imported")
	return nil
}

func (s *Service) List() []Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Patient{}, s.patients...)
}

func (s *Service) Get(id int) (Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.patients, id); i >= 0 {
		return s.patients[i], true
	}
	return Patient{}, false
}

func (s *Service) Exists(id int) bool {
	_, ok := s.Get(id)
	return ok
}

func indexOf(ps []Patient, id int) int {
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func dniTaken(ps []Patient, dni string, self int) bool {
	for _, p := range ps {
		if p.DNI == dni && p.ID != self {
			return true
		}
	}
	return false
}

// save persists next and swaps it in. Callers hold s.mu.
func (s *Service) save(ctx context.Context, next []Patient) error {
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save patients: %w", err)
	}
	s.patients = next
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dniTaken(s.patients, in.DNI, 0) {
		return Patient{}, apperr.Conflict("Ya existe un paciente con este DNI")
	}
	p := Patient{ID: 1}
	if n := len(s.patients); n > 0 {
		p.ID = s.patients[n-1].ID + 1
	}
	in.apply(&p)
	if err := s.save(ctx, append(append([]Patient(nil), s.patients...), p)); err != nil {
		return Patient{}, err
	}
	s.logger.Info().Int("patient_id", p.ID).Msg("patient created")
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int, in Input) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.patients, id)
	if i < 0 {
		return Patient{}, apperr.NotFound("Paciente no encontrado")
	}
	if dniTaken(s.patients, in.DNI, id) {
		return Patient{}, apperr.Conflict("Ya existe un paciente con este DNI")
	}
	next := append([]Patient(nil), s.patients...)
	in.apply(&next[i])
	if err := s.save(ctx, next); err != nil {
		return Patient{}, err
	}
	return next[i], nil
}

// Delete removes a patient who holds no appointments.
func (s *Service) Delete(ctx context.Context, id int) error {
	if s.turnos != nil && s.turnos.HasPatient(id) {
		return apperr.Conflict("Paciente tiene un turno asignado")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.patients, id)
	if i < 0 {
		return apperr.NotFound("Paciente no encontrado")
	}
	next := append(append([]Patient(nil), s.patients[:i]...), s.patients[i+1:]...)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.logger.Info().Int("patient_id", id).Msg("patient deleted")
	return nil
}
