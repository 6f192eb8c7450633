package turno

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/flatfile"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// FileName is the CSV snapshot of the appointments inside the data directory.
const FileName = "turnos.csv"

// Repository persists every appointment.
type Repository interface {
	snapshot.Store[Appointment]
}

func NewFileRepo(dataDir string) Repository {
	return flatfile.NewTable[Appointment](filepath.Join(dataDir, FileName), Codec{})
}

// Codec maps an Appointment to a CSV record.
type Codec struct{}

func (Codec) Header() []string {
	return []string{"id_medico", "id_paciente", "hora_turno", "fecha_solicitud"}
}

func (Codec) Encode(a Appointment) []string {
	return []string{
		strconv.Itoa(a.DoctorID),
		strconv.Itoa(a.PatientID),
		a.Time.String(),
		a.Date.String(),
	}
}

func (Codec) Decode(rec []string) (Appointment, error) {
	if len(rec) != 4 {
		return Appointment{}, fmt.Errorf("expected 4 fields, got %d", len(rec))
	}
	var (
		a   Appointment
		err error
	)
	if a.DoctorID, err = strconv.Atoi(rec[0]); err != nil {
		return Appointment{}, fmt.Errorf("id_medico: %w", err)
	}
	if a.PatientID, err = strconv.Atoi(rec[1]); err != nil {
		return Appointment{}, fmt.Errorf("id_paciente: %w", err)
	}
	if a.Time, err = calendar.ParseTime(rec[2]); err != nil {
		return Appointment{}, fmt.Errorf("hora_turno: %w", err)
	}
	if a.Date, err = calendar.ParseDate(rec[3]); err != nil {
		return Appointment{}, fmt.Errorf("fecha_solicitud: %w", err)
	}
	return a, nil
}
