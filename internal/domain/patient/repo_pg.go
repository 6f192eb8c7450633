package patient

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/turnos/internal/platform/db"
)

// NewRepoPG stores patients in the pacientes table.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &db.SnapshotTable[Patient]{
		Pool:    pool,
		Table:   "pacientes",
		Columns: []string{"id", "dni", "nombre", "apellido", "telefono", "email", "dir_calle", "dir_numero"},
		OrderBy: "id",
		Scan: func(row pgx.Row) (Patient, error) {
			var p Patient
			err := row.Scan(&p.ID, &p.DNI, &p.FirstName, &p.LastName, &p.Phone, &p.Email, &p.Street, &p.StreetNumber)
			return p, err
		},
		Values: func(p Patient) []interface{} {
			return []interface{}{p.ID, p.DNI, p.FirstName, p.LastName, p.Phone, p.Email, p.Street, p.StreetNumber}
		},
	}
}
