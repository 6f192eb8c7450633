package turno

import (
	"time"

	"github.com/consultorio/turnos/internal/platform/calendar"
)

// MaxDaysAhead is how far into the future an appointment may be booked.
const MaxDaysAhead = 30

// SlotMinutes is the booking grid.
const SlotMinutes = 15

// Appointment is one confirmed booking.
type Appointment struct {
	DoctorID  int                `json:"id_medico"`
	PatientID int                `json:"id_paciente"`
	Date      calendar.Date      `json:"fecha_solicitud"`
	Time      calendar.TimeOfDay `json:"hora_turno"`
}

// PendingAt reports whether the appointment is still ahead of now: a later
// date, or today at a later clock time.
func (a Appointment) PendingAt(now time.Time) bool {
	today := calendar.DateOf(now)
	if a.Date.After(today) {
		return true
	}
	return a.Date.Equal(today) && a.Time.AfterClock(now)
}

// OpenAt is the looser test used when checking a patient's standing
// appointments with a doctor: a later date, or a later clock time on any date.
func (a Appointment) OpenAt(now time.Time) bool {
	return a.Date.After(calendar.DateOf(now)) || a.Time.AfterClock(now)
}

// BookingRequest is the body of POST /turnos/:doctorId/:patientId. Both
// fields stay raw strings; the engine parses them in its own order.
type BookingRequest struct {
	Date *string `json:"fecha_turno"`
	Time *string `json:"hora_turno"`
}

// Request is a booking attempt handed to the engine.
type Request struct {
	DoctorID  int
	PatientID int
	Date      string
	Time      string
}
