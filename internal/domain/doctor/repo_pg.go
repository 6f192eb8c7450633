package doctor

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/turnos/internal/platform/db"
)

// NewRepoPG stores doctors in the medicos table.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &db.SnapshotTable[Doctor]{
		Pool:    pool,
		Table:   "medicos",
		Columns: []string{"id", "dni", "nombre", "apellido", "matricula", "telefono", "email", "habilitado"},
		OrderBy: "id",
		Scan: func(row pgx.Row) (Doctor, error) {
			var d Doctor
			err := row.Scan(&d.ID, &d.DNI, &d.FirstName, &d.LastName, &d.License, &d.Phone, &d.Email, &d.Enabled)
			return d, err
		},
		Values: func(d Doctor) []interface{} {
			return []interface{}{d.ID, d.DNI, d.FirstName, d.LastName, d.License, d.Phone, d.Email, d.Enabled}
		},
	}
}
