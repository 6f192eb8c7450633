package agenda

import (
	"github.com/consultorio/turnos/internal/platform/calendar"
)

// Default working hours given to every weekday of a newly enabled doctor.
var (
	DefaultStart = calendar.NewTimeOfDay(8, 0)
	DefaultEnd   = calendar.NewTimeOfDay(17, 0)
)

// Window is a doctor's recurring working hours on one weekday
// (0 = Sunday ... 6 = Saturday).
type Window struct {
	DoctorID    int                `json:"id_medico"`
	Weekday     int                `json:"dia_numero"`
	Start       calendar.TimeOfDay `json:"hora_inicio"`
	End         calendar.TimeOfDay `json:"hora_fin"`
	LastUpdated calendar.Date      `json:"fecha_actualizacion"`
}

// Contains reports whether t is strictly between Start and End. A time equal
// to either bound is outside the window.
func (w Window) Contains(t calendar.TimeOfDay) bool {
	return w.Start < t && t < w.End
}

// ContainsText is Contains for a raw clock string, compared against the
// window bounds written as HH:MM. For well-formed input it agrees with
// Contains.
func (w Window) ContainsText(hhmm string) bool {
	return w.Start.String() < hhmm && hhmm < w.End.String()
}

// WindowRequest is the body of POST /agenda/:doctorId and one item of the
// PUT list.
type WindowRequest struct {
	Weekday *int   `json:"dia_numero" validate:"required,min=0,max=6"`
	Start   string `json:"hora_inicio" validate:"required,hhmm"`
	End     string `json:"hora_fin" validate:"required,hhmm"`
}

// Times returns the parsed bounds. Call it after validation.
func (r WindowRequest) Times() (calendar.TimeOfDay, calendar.TimeOfDay, error) {
	start, err := calendar.ParseTime(r.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := calendar.ParseTime(r.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func ValidWeekday(d int) bool { return d >= 0 && d <= 6 }
