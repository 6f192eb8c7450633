package turno

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/locker"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

func newTestStore(t *testing.T, items ...Appointment) (*Store, *snapshot.Memory[Appointment]) {
	t.Helper()
	repo := snapshot.NewMemory(items...)
	s := NewStore(repo, locker.NewLocal(), zerolog.Nop())
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s, repo
}

func TestStore_ListPendingByDoctor(t *testing.T) {
	today := calendar.DateOf(testNow)
	s, _ := newTestStore(t,
		Appointment{DoctorID: 1, PatientID: 1, Date: today.AddDays(-1), Time: hm(16, 0)},
		Appointment{DoctorID: 1, PatientID: 2, Date: today, Time: hm(10, 0)},
		Appointment{DoctorID: 1, PatientID: 3, Date: today, Time: hm(11, 0)},
		Appointment{DoctorID: 1, PatientID: 4, Date: today.AddDays(2), Time: hm(8, 15)},
		Appointment{DoctorID: 2, PatientID: 5, Date: today.AddDays(2), Time: hm(8, 15)},
	)

	got := s.ListPendingByDoctor(1, testNow)
	if len(got) != 2 || got[0].PatientID != 3 || got[1].PatientID != 4 {
		t.Errorf("expected patients 3 and 4 pending, got %+v", got)
	}
}

func TestStore_PendingUsesSeconds(t *testing.T) {
	today := calendar.DateOf(testNow)
	s, _ := newTestStore(t, Appointment{DoctorID: 1, PatientID: 1, Date: today, Time: hm(10, 30)})

	if got := s.ListPendingByDoctor(1, testNow.Add(-time.Second)); len(got) != 1 {
		t.Errorf("expected pending one second before, got %d", len(got))
	}
	if got := s.ListPendingByDoctor(1, testNow); len(got) != 0 {
		t.Errorf("expected nothing pending at the same minute, got %d", len(got))
	}
}

func TestStore_RemoveDeletesEveryMatch(t *testing.T) {
	today := calendar.DateOf(testNow)
	s, repo := newTestStore(t,
		Appointment{DoctorID: 1, PatientID: 7, Date: today, Time: hm(9, 0)},
		Appointment{DoctorID: 1, PatientID: 8, Date: today, Time: hm(9, 15)},
		Appointment{DoctorID: 1, PatientID: 7, Date: today.AddDays(1), Time: hm(9, 0)},
	)
	ctx := context.Background()

	removed, err := s.Remove(ctx, 1, 7)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}
	if got := s.All(); len(got) != 1 || got[0].PatientID != 8 {
		t.Errorf("expected only patient 8 left, got %+v", got)
	}
	if len(repo.Items()) != 1 {
		t.Errorf("expected persisted set of 1, got %d", len(repo.Items()))
	}

	saves := repo.Saves
	removed, err = s.Remove(ctx, 1, 7)
	if err != nil || removed {
		t.Fatalf("expected nothing removed, got %v %v", removed, err)
	}
	if repo.Saves != saves {
		t.Error("no-op removal should not save")
	}
}

func TestStore_FailedSaveKeepsState(t *testing.T) {
	today := calendar.DateOf(testNow)
	s, repo := newTestStore(t, Appointment{DoctorID: 1, PatientID: 7, Date: today, Time: hm(9, 0)})
	repo.SaveErr = errors.New("read-only")

	if err := s.Add(context.Background(), Appointment{DoctorID: 2, PatientID: 8, Date: today, Time: hm(9, 0)}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.Remove(context.Background(), 1, 7); err == nil {
		t.Fatal("expected error")
	}
	if got := s.All(); len(got) != 1 || got[0].PatientID != 7 {
		t.Errorf("store changed: %+v", got)
	}
}

func TestStore_Queries(t *testing.T) {
	today := calendar.DateOf(testNow)
	s, _ := newTestStore(t,
		Appointment{DoctorID: 1, PatientID: 7, Date: today, Time: hm(9, 0)},
		Appointment{DoctorID: 2, PatientID: 7, Date: today, Time: hm(9, 0)},
	)

	if !s.ExistsExact(1, today, hm(9, 0)) {
		t.Error("expected exact match")
	}
	if s.ExistsExact(1, today, hm(9, 15)) || s.ExistsExact(3, today, hm(9, 0)) {
		t.Error("unexpected exact match")
	}
	if n := len(s.ListByPatient(7)); n != 2 {
		t.Errorf("expected 2 appointments for patient 7, got %d", n)
	}
	if !s.HasPatient(7) || s.HasPatient(8) {
		t.Error("HasPatient mismatch")
	}
	if got := s.ListByDoctor(3); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestFileRepo_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepo(dir)
	ctx := context.Background()
	want := []Appointment{
		{DoctorID: 1, PatientID: 7, Date: calendar.NewDate(2026, time.October, 16), Time: hm(9, 0)},
		{DoctorID: 3, PatientID: 12, Date: calendar.NewDate(2026, time.November, 2), Time: hm(16, 45)},
	}

	if _, err := repo.Load(ctx); !errors.Is(err, snapshot.ErrAbsent) {
		t.Fatalf("expected absent snapshot, got %v", err)
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if lines[0] != "id_medico,id_paciente,hora_turno,fecha_solicitud" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "1,7,09:00,16-10-2026" {
		t.Errorf("unexpected record %q", lines[1])
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d appointments, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("appointment %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestStore_SharedRepositoryMerges(t *testing.T) {
	today := calendar.DateOf(testNow)
	repo := snapshot.NewMemory(Appointment{DoctorID: 1, PatientID: 7, Date: today, Time: hm(9, 0)})
	locks := locker.NewLocal()
	ctx := context.Background()

	a := NewStore(repo, locks, zerolog.Nop())
	b := NewStore(repo, locks, zerolog.Nop())
	for _, s := range []*Store{a, b} {
		if err := s.Init(ctx); err != nil {
			t.Fatalf("init: %v", err)
		}
	}

	if err := a.Add(ctx, Appointment{DoctorID: 2, PatientID: 8, Date: today, Time: hm(9, 0)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	removed, err := b.Remove(ctx, 1, 7)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}

	saved := repo.Items()
	if len(saved) != 1 || saved[0].PatientID != 8 {
		t.Errorf("expected the other store's appointment to survive, got %+v", saved)
	}
	if got := b.All(); len(got) != 1 || got[0].PatientID != 8 {
		t.Errorf("expected b to hold the merged set, got %+v", got)
	}
}

func TestStore_BookRejectionSavesNothing(t *testing.T) {
	s, repo := newTestStore(t)
	saves := repo.Saves

	_, err := s.Book(context.Background(), func(Set) (Appointment, error) {
		return Appointment{}, errors.New("refused")
	})
	if err == nil {
		t.Fatal("expected the decision error")
	}
	if repo.Saves != saves || len(s.All()) != 0 {
		t.Error("rejected booking was stored")
	}
}
