package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/domain/agenda"
	"github.com/consultorio/turnos/internal/platform/apperr"
	"github.com/consultorio/turnos/internal/platform/snapshot"
)

type recordingOnboarder struct {
	ids []int
	err error
}

func (r *recordingOnboarder) Onboard(_ context.Context, doctorID int) ([]agenda.Window, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.ids = append(r.ids, doctorID)
	return nil, nil
}

func boolPtr(b bool) *bool { return &b }

func validInput() Input {
	return Input{
		DNI:       "30111222",
		FirstName: "Ana",
		LastName:  "Pérez",
		License:   "123456",
		Phone:     "351555123",
		Email:     "ana@consultorio.ar",
		Enabled:   boolPtr(true),
	}
}

func newTestService(t *testing.T, ds ...Doctor) (*Service, *snapshot.Memory[Doctor], *recordingOnboarder) {
	t.Helper()
	repo := snapshot.NewMemory(ds...)
	onb := &recordingOnboarder{}
	svc := NewService(repo, onb, zerolog.Nop())
	if err := svc.Init(context.Background(), nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	return svc, repo, onb
}

func TestService_InitSeedsFromSource(t *testing.T) {
	repo := snapshot.NewMemory[Doctor]()
	svc := NewService(repo, nil, zerolog.Nop())
	source := func(context.Context) ([]Doctor, error) {
		return []Doctor{
			{DNI: "11111111", FirstName: "A", LastName: "B", Enabled: true},
			{DNI: "22222222", FirstName: "C", LastName: "D", Enabled: false},
		}, nil
	}

	if err := svc.Init(context.Background(), source); err != nil {
		t.Fatalf("init: %v", err)
	}
	ds := svc.List()
	if len(ds) != 2 || ds[0].ID != 1 || ds[1].ID != 2 {
		t.Errorf("expected ids 1 and 2, got %+v", ds)
	}
	if ids := svc.EnabledIDs(); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("expected only doctor 1 enabled, got %v", ids)
	}
	if len(repo.Items()) != 2 {
		t.Error("seeded doctors not persisted")
	}
}

func TestService_InitSourceFailureStartsEmpty(t *testing.T) {
	svc := NewService(snapshot.NewMemory[Doctor](), nil, zerolog.Nop())
	source := func(context.Context) ([]Doctor, error) { return nil, errors.New("offline") }

	if err := svc.Init(context.Background(), source); err != nil {
		t.Fatalf("init: %v", err)
	}
	if len(svc.List()) != 0 {
		t.Error("expected empty registry")
	}
}

func TestService_CreateAssignsNextIDAndOnboards(t *testing.T) {
	svc, _, onb := newTestService(t, Doctor{ID: 4, DNI: "99999999", FirstName: "Luis", LastName: "Gómez", License: "654321"})

	d, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID != 5 {
		t.Errorf("expected id 5, got %d", d.ID)
	}
	if len(onb.ids) != 1 || onb.ids[0] != 5 {
		t.Errorf("expected doctor 5 onboarded, got %v", onb.ids)
	}

	in := validInput()
	in.DNI, in.License, in.FirstName = "30111223", "123457", "Eva"
	in.Enabled = boolPtr(false)
	d, err = svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID != 6 || len(onb.ids) != 1 {
		t.Errorf("disabled doctor should not be onboarded: id %d, onboarded %v", d.ID, onb.ids)
	}
}

func TestService_CreateFirstDoctorGetsID1(t *testing.T) {
	svc, _, _ := newTestService(t)
	d, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID != 1 {
		t.Errorf("expected id 1, got %d", d.ID)
	}
}

func TestService_CreateRejectsDuplicates(t *testing.T) {
	existing := Doctor{ID: 1, DNI: "30111222", FirstName: "Ana", LastName: "Pérez", License: "123456"}
	tests := []struct {
		name   string
		modify func(*Input)
	}{
		{"same dni", func(in *Input) { in.License, in.FirstName = "000001", "Otra" }},
		{"same license", func(in *Input) { in.DNI, in.FirstName = "40111222", "Otra" }},
		{"same name any case", func(in *Input) { in.DNI, in.License, in.FirstName, in.LastName = "40111222", "000001", "ANA", "pérez" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t, existing)
			in := validInput()
			tt.modify(&in)

			_, err := svc.Create(context.Background(), in)
			if !apperr.Is(err, apperr.KindConflict) {
				t.Errorf("expected conflict, got %v", err)
			}
			if repo.Saves != 0 {
				t.Error("rejected doctor was saved")
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	svc, _, _ := newTestService(t,
		Doctor{ID: 1, DNI: "30111222", FirstName: "Ana", LastName: "Pérez", License: "123456"},
		Doctor{ID: 2, DNI: "40111222", FirstName: "Luis", LastName: "Gómez", License: "654321"},
	)
	ctx := context.Background()

	in := validInput()
	in.Phone = "351000000"
	d, err := svc.Update(ctx, 1, in)
	if err != nil {
		t.Fatalf("update own record: %v", err)
	}
	if d.Phone != "351000000" {
		t.Errorf("phone not updated: %+v", d)
	}

	in.DNI = "40111222"
	if _, err := svc.Update(ctx, 1, in); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict with doctor 2, got %v", err)
	}
	if got, _ := svc.Get(1); got.DNI != "30111222" {
		t.Errorf("failed update changed the record: %+v", got)
	}

	if _, err := svc.Update(ctx, 9, validInput()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_Lookups(t *testing.T) {
	svc, _, _ := newTestService(t,
		Doctor{ID: 1, DNI: "30111222", Enabled: true},
		Doctor{ID: 2, DNI: "40111222", Enabled: false},
	)
	if !svc.Exists(2) || svc.Exists(3) {
		t.Error("Exists mismatch")
	}
	if !svc.Enabled(1) || svc.Enabled(2) || svc.Enabled(3) {
		t.Error("Enabled mismatch")
	}
}

func TestCodec_AcceptsPythonBooleans(t *testing.T) {
	d, err := Codec{}.Decode([]string{"3", "30111222", "Ana", "Pérez", "123456", "351555123", "a@b.c", "True"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !d.Enabled || d.ID != 3 {
		t.Errorf("unexpected doctor %+v", d)
	}
	if rec := (Codec{}).Encode(d); rec[7] != "true" {
		t.Errorf("expected habilitado encoded as true, got %q", rec[7])
	}
}
