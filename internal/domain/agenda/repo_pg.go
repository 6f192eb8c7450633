package agenda

import (
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/db"
)

// NewRepoPG stores the agenda in the agenda table.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &db.SnapshotTable[Window]{
		Pool:    pool,
		Table:   "agenda",
		Columns: []string{"id_medico", "dia_numero", "hora_inicio", "hora_fin", "fecha_actualizacion"},
		OrderBy: "id_medico, dia_numero",
		Scan:    scanWindow,
		Values: func(w Window) []interface{} {
			return []interface{}{
				w.DoctorID, w.Weekday,
				db.PGTime(w.Start), db.PGTime(w.End),
				w.LastUpdated.Time(),
			}
		},
	}
}

func scanWindow(row pgx.Row) (Window, error) {
	var (
		w          Window
		start, end pgtype.Time
		updated    time.Time
	)
	if err := row.Scan(&w.DoctorID, &w.Weekday, &start, &end, &updated); err != nil {
		return Window{}, err
	}
	w.Start = db.TimeOfDay(start)
	w.End = db.TimeOfDay(end)
	w.LastUpdated = calendar.DateOf(updated)
	return w, nil
}
