package turno

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/domain/agenda"
	"github.com/consultorio/turnos/internal/platform/apperr"
	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/events"
	"github.com/consultorio/turnos/internal/platform/locker"
)

// Availability is the part of the agenda the engine consults.
type Availability interface {
	Reload(ctx context.Context) error
	FindWindowCovering(doctorID, weekday int) (agenda.Window, bool)
	FindWindowContainingTime(doctorID int, t calendar.TimeOfDay) (agenda.Window, bool)
	FindWindowContainingText(doctorID int, hhmm string) (agenda.Window, bool)
}

// Engine decides whether a booking is legal and commits it.
type Engine struct {
	agenda Availability
	store  *Store
	locks  locker.Locker
	events events.Publisher
	logger zerolog.Logger
}

func NewEngine(avail Availability, store *Store, locks locker.Locker, pub events.Publisher, logger zerolog.Logger) *Engine {
	return &Engine{
		agenda: avail,
		store:  store,
		locks:  locks,
		events: pub,
		logger: logger.With().Str("component", "booking").Logger(),
	}
}

// RequestBooking runs every check in order and stores the appointment when
// all pass. The first failing check decides the returned error kind. The
// whole sequence holds the doctor's lock and checks against the agenda and
// appointments as persisted, not as this process last saw them.
func (e *Engine) RequestBooking(ctx context.Context, req Request, now time.Time) (Appointment, error) {
	release, err := e.locks.Acquire(ctx, locker.DoctorKey(req.DoctorID))
	if err != nil {
		return Appointment{}, err
	}
	defer release()

	if err := e.agenda.Reload(ctx); err != nil {
		return Appointment{}, err
	}
	appt, err := e.store.Book(ctx, func(booked Set) (Appointment, error) {
		return e.check(req, now, booked)
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			e.logger.Debug().
				Int("doctor_id", req.DoctorID).
				Int("patient_id", req.PatientID).
				Str("reason", apperr.KindOf(err).String()).
				Msg("booking rejected")
		}
		return Appointment{}, err
	}
	e.logger.Info().
		Int("doctor_id", appt.DoctorID).
		Int("patient_id", appt.PatientID).
		Str("fecha", appt.Date.String()).
		Str("hora", appt.Time.String()).
		Msg("appointment booked")

	if err := e.events.Publish(ctx, events.New(events.TurnoCreated, now, appt)); err != nil {
		e.logger.Warn().Err(err).Msg("publish booking event failed")
	}
	return appt, nil
}

func (e *Engine) check(req Request, now time.Time, booked Set) (Appointment, error) {
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		return Appointment{}, apperr.Parse("Formato de fecha inválido. Debe ser 'día-mes-año'")
	}

	today := calendar.DateOf(now)
	if date.Before(today) {
		return Appointment{}, apperr.New(apperr.KindPastDate, "No se puede ingresar una fecha anterior al día de hoy")
	}

	if _, ok := e.agenda.FindWindowCovering(req.DoctorID, date.Weekday()); !ok {
		return Appointment{}, apperr.New(apperr.KindNoServiceThatDay, "El médico no atiende ese día")
	}

	// Any of the doctor's windows counts here, not only the one for the
	// requested weekday. The time is not parsed yet, so a malformed value is
	// compared as text.
	at, parseErr := calendar.ParseTime(req.Time)
	var inHours bool
	if parseErr == nil {
		_, inHours = e.agenda.FindWindowContainingTime(req.DoctorID, at)
	} else {
		_, inHours = e.agenda.FindWindowContainingText(req.DoctorID, req.Time)
	}
	if !inHours {
		return Appointment{}, apperr.New(apperr.KindNoServiceThatHour, "El médico no atiende esa hora")
	}

	if parseErr != nil {
		return Appointment{}, apperr.Parse("Formato de hora inválido. Debe ser 'Horas:Minutos'")
	}

	if at.Minute()%SlotMinutes != 0 {
		return Appointment{}, apperr.New(apperr.KindGranularity, "La hora del turno debe estar en intervalos de %d minutos", SlotMinutes)
	}

	if today.DaysUntil(date) > MaxDaysAhead {
		return Appointment{}, apperr.New(apperr.KindHorizon, "Fecha inválida, el turno debe estar dentro de los próximos %d días", MaxDaysAhead)
	}

	if booked.ExistsExact(req.DoctorID, date, at) {
		return Appointment{}, apperr.New(apperr.KindSlotTaken, "El medico ya tiene un turno a esa hora")
	}

	if _, ok := booked.FindPendingForPair(req.DoctorID, req.PatientID, now); ok {
		return Appointment{}, apperr.New(apperr.KindDuplicatePending, "El paciente ya tiene un turno pendiente")
	}

	for _, a := range booked.ByDoctor(req.DoctorID) {
		if a.PatientID == req.PatientID {
			return Appointment{}, apperr.New(apperr.KindDuplicatePair, "El paciente ya tiene un turno con el médico")
		}
	}

	return Appointment{DoctorID: req.DoctorID, PatientID: req.PatientID, Date: date, Time: at}, nil
}
