package turno

import (
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/db"
)

// NewRepoPG stores appointments in the turnos table.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &db.SnapshotTable[Appointment]{
		Pool:    pool,
		Table:   "turnos",
		Columns: []string{"id_medico", "id_paciente", "hora_turno", "fecha_solicitud"},
		OrderBy: "fecha_solicitud, hora_turno, id_medico",
		Scan:    scanAppointment,
		Values: func(a Appointment) []interface{} {
			return []interface{}{a.DoctorID, a.PatientID, db.PGTime(a.Time), a.Date.Time()}
		},
	}
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a    Appointment
		at   pgtype.Time
		date time.Time
	)
	if err := row.Scan(&a.DoctorID, &a.PatientID, &at, &date); err != nil {
		return Appointment{}, err
	}
	a.Time = db.TimeOfDay(at)
	a.Date = calendar.DateOf(date)
	return a, nil
}
