package doctor

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/consultorio/turnos/internal/platform/flatfile"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

const FileName = "medicos.csv"

// Repository persists the doctor registry.
type Repository interface {
	snapshot.Store[Doctor]
}

func NewFileRepo(dataDir string) Repository {
	return flatfile.NewTable[Doctor](filepath.Join(dataDir, FileName), Codec{})
}

type Codec struct{}

func (Codec) Header() []string {
	return []string{"id", "dni", "nombre", "apellido", "matricula", "telefono", "email", "habilitado"}
}

func (Codec) Encode(d Doctor) []string {
	return []string{
		strconv.Itoa(d.ID), d.DNI, d.FirstName, d.LastName,
		d.License, d.Phone, d.Email, strconv.FormatBool(d.Enabled),
	}
}

func (Codec) Decode(rec []string) (Doctor, error) {
	if len(rec) != 8 {
		return Doctor{}, fmt.Errorf("expected 8 fields, got %d", len(rec))
	}
	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return Doctor{}, fmt.Errorf("id: %w", err)
	}
	// Older files carry Python-style True/False.
	enabled, err := strconv.ParseBool(rec[7])
	if err != nil {
		return Doctor{}, fmt.Errorf("habilitado: %w", err)
	}
	return Doctor{
		ID:        id,
		DNI:       rec[1],
		FirstName: rec[2],
		LastName:  rec[3],
		License:   rec[4],
		Phone:     rec[5],
		Email:     rec[6],
		Enabled:   enabled,
	}, nil
}
