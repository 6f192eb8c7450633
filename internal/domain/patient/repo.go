package patient

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/consultorio/turnos/internal/platform/flatfile"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

const FileName = "pacientes.csv"

type Repository interface {
	snapshot.Store[Patient]
}

func NewFileRepo(dataDir string) Repository {
	return flatfile.NewTable[Patient](filepath.Join(dataDir, FileName), Codec{})
}

type Codec struct{}

func (Codec) Header() []string {
	return []string{"id", "dni", "nombre", "apellido", "telefono", "email", "dir_calle", "dir_numero"}
}

func (Codec) Encode(p Patient) []string {
	return []string{
		strconv.Itoa(p.ID), p.DNI, p.FirstName, p.LastName,
		p.Phone, p.Email, p.Street, strconv.Itoa(p.StreetNumber),
	}
}

func (Codec) Decode(rec []string) (Patient, error) {
	if len(rec) != 8 {
		return Patient{}, fmt.Errorf("expected 8 fields, got %d", len(rec))
	}
	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return Patient{}, fmt.Errorf("id: %w", err)
	}
	number := 0
	if rec[7] != "" {
		if number, err = strconv.Atoi(rec[7]); err != nil {
			return Patient{}, fmt.Errorf("dir_numero: %w", err)
		}
	}
	return Patient{
		ID:           id,
		DNI:          rec[1],
		FirstName:    rec[2],
		LastName:     rec[3],
		Phone:        rec[4],
		Email:        rec[5],
		Street:       rec[6],
		StreetNumber: number,
	}, nil
}
