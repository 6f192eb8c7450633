package agenda

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/flatfile"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

// FileName is the CSV snapshot of the agenda inside the data directory.
const FileName = "agenda_medicos.csv"

// Repository persists the whole agenda.
type Repository interface {
	snapshot.Store[Window]
}

// NewFileRepo stores the agenda as CSV in dataDir.
func NewFileRepo(dataDir string) Repository {
	return flatfile.NewTable[Window](filepath.Join(dataDir, FileName), Codec{})
}

// Codec maps a Window to a CSV record.
type Codec struct{}

func (Codec) Header() []string {
	return []string{"id_medico", "dia_numero", "hora_inicio", "hora_fin", "fecha_actualizacion"}
}

func (Codec) Encode(w Window) []string {
	return []string{
		strconv.Itoa(w.DoctorID),
		strconv.Itoa(w.Weekday),
		w.Start.String(),
		w.End.String(),
		w.LastUpdated.String(),
	}
}

func (Codec) Decode(rec []string) (Window, error) {
	if len(rec) != 5 {
		return Window{}, fmt.Errorf("expected 5 fields, got %d", len(rec))
	}
	var (
		w   Window
		err error
	)
	if w.DoctorID, err = strconv.Atoi(rec[0]); err != nil {
		return Window{}, fmt.Errorf("id_medico: %w", err)
	}
	if w.Weekday, err = strconv.Atoi(rec[1]); err != nil {
		return Window{}, fmt.Errorf("dia_numero: %w", err)
	}
	if w.Start, err = calendar.ParseTime(rec[2]); err != nil {
		return Window{}, fmt.Errorf("hora_inicio: %w", err)
	}
	if w.End, err = calendar.ParseTime(rec[3]); err != nil {
		return Window{}, fmt.Errorf("hora_fin: %w", err)
	}
	if w.LastUpdated, err = calendar.ParseDate(rec[4]); err != nil {
		return Window{}, fmt.Errorf("fecha_actualizacion: %w", err)
	}
	return w, nil
}
