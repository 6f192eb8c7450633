package flatfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/consultorio/turnos/internal/platform/snapshot"
)

type row struct {
	ID   int
	Name string
}

type rowCodec struct{}

func (rowCodec) Header() []string { return []string{"id", "nombre"} }

func (rowCodec) Encode(r row) []string { return []string{strconv.Itoa(r.ID), r.Name} }

func (rowCodec) Decode(rec []string) (row, error) {
	if len(rec) != 2 {
		return row{}, fmt.Errorf("expected 2 fields, got %d", len(rec))
	}
	id, err := strconv.Atoi(rec[0])
	if err != nil {
		return row{}, fmt.Errorf("id: %w", err)
	}
	return row{ID: id, Name: rec[1]}, nil
}

func TestTable_LoadMissing(t *testing.T) {
	tbl := NewTable[row](filepath.Join(t.TempDir(), "rows.csv"), rowCodec{})
	_, err := tbl.Load(context.Background())
	if !errors.Is(err, snapshot.ErrAbsent) {
		t.Fatalf("expected ErrAbsent, got %v", err)
	}
}

func TestTable_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rows.csv")
	tbl := NewTable[row](path, rowCodec{})
	ctx := context.Background()

	in := []row{{1, "Ana"}, {2, "Peña, Luis"}, {3, `con "comillas"`}}
	if err := tbl.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := tbl.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d rows, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("row %d: got %+v, want %+v", i, out[i], in[i])
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the data file to remain, found %d entries", len(entries))
	}
}

func TestTable_SaveEmptyKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	tbl := NewTable[row](path, rowCodec{})
	if err := tbl.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "id,nombre\n" {
		t.Errorf("unexpected content %q", b)
	}
	out, err := tbl.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no rows, got %d", len(out))
	}
}

func TestTable_HeaderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte("id,apellido\n1,Gomez\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewTable[row](path, rowCodec{}).Load(context.Background())
	if err == nil {
		t.Fatal("expected header mismatch error")
	}
}

func TestTable_DecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte("id,nombre\nx,Ana\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewTable[row](path, rowCodec{}).Load(context.Background())
	if err == nil {
		t.Fatal("expected decode error")
	}
}
