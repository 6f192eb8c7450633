package turno

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/calendar"
	"github.com/consultorio/turnos/internal/platform/events"
	"github.com/consultorio/turnos/internal/platform/middleware"
	"github.com/consultorio/turnos/internal/platform/validation"
)

type fakeDoctors struct {
	known    map[int]bool
	disabled map[int]bool
}

func (d fakeDoctors) Exists(id int) bool  { return d.known[id] }
func (d fakeDoctors) Enabled(id int) bool { return d.known[id] && !d.disabled[id] }

type fakePatients map[int]bool

func (p fakePatients) Exists(id int) bool { return p[id] }

func newTestHandler(t *testing.T, booked ...Appointment) (*Handler, *fixture) {
	t.Helper()
	f := newFixture(t, fullWeek(1, hm(8, 0), hm(17, 0)), booked...)
	doctors := fakeDoctors{known: map[int]bool{1: true, 2: true}, disabled: map[int]bool{2: true}}
	h := NewHandler(f.engine, f.store, doctors, fakePatients{7: true, 8: true}, f.events,
		func() time.Time { return testNow }, zerolog.Nop())
	return h, f
}

func newContext(method, target, body string, names []string, values []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validation.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func TestHandler_Create(t *testing.T) {
	h, f := newTestHandler(t)
	body := `{"fecha_turno":"` + daysFromNow(1) + `","hora_turno":"09:00"}`
	c, rec := newContext(http.MethodPost, "/turnos/1/7", body, []string{"doctorId", "patientId"}, []string{"1", "7"})

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp struct {
		Message string                 `json:"message"`
		Turno   map[string]interface{} `json:"turno"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Turno creado correctamente" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.Turno["fecha_solicitud"] != daysFromNow(1) || resp.Turno["hora_turno"] != "09:00" {
		t.Errorf("unexpected turno %v", resp.Turno)
	}
	if len(f.store.All()) != 1 {
		t.Error("appointment not stored")
	}
}

func TestHandler_CreateErrors(t *testing.T) {
	tomorrow := daysFromNow(1)
	tests := []struct {
		name     string
		doctor   string
		patient  string
		body     string
		want     int
		contains string
	}{
		{"missing date", "1", "7", `{"hora_turno":"09:00"}`, http.StatusBadRequest, "Falta el campo 'fecha_turno'"},
		{"missing time", "1", "7", `{"fecha_turno":"` + tomorrow + `"}`, http.StatusBadRequest, "Falta el campo 'hora_turno'"},
		{"unknown doctor", "5", "7", `{"fecha_turno":"` + tomorrow + `","hora_turno":"09:00"}`, http.StatusNotFound, "Médico no encontrado"},
		{"disabled doctor", "2", "7", `{"fecha_turno":"` + tomorrow + `","hora_turno":"09:00"}`, http.StatusNotFound, "Médico no habilitado"},
		{"unknown patient", "1", "99", `{"fecha_turno":"` + tomorrow + `","hora_turno":"09:00"}`, http.StatusNotFound, "Paciente no encontrado"},
		{"bad doctor id", "x", "7", `{"fecha_turno":"` + tomorrow + `","hora_turno":"09:00"}`, http.StatusBadRequest, "invalid doctorId"},
		{"off grid", "1", "7", `{"fecha_turno":"` + tomorrow + `","hora_turno":"09:20"}`, http.StatusBadRequest, "15 minutos"},
		{"past date", "1", "7", `{"fecha_turno":"` + daysFromNow(-2) + `","hora_turno":"09:00"}`, http.StatusBadRequest, "anterior al día de hoy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			c, _ := newContext(http.MethodPost, "/turnos/"+tt.doctor+"/"+tt.patient, tt.body,
				[]string{"doctorId", "patientId"}, []string{tt.doctor, tt.patient})

			err := h.Create(c)
			if got := middleware.StatusOf(err); got != tt.want {
				t.Errorf("expected %d, got %d (%v)", tt.want, got, err)
			}
			if err == nil || !strings.Contains(errorText(err), tt.contains) {
				t.Errorf("expected message containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func errorText(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if s, ok := he.Message.(string); ok {
			return s
		}
	}
	return err.Error()
}

func TestHandler_CreateSlotTakenIsConflict(t *testing.T) {
	tomorrow := calendar.DateOf(testNow).AddDays(1)
	h, _ := newTestHandler(t, Appointment{DoctorID: 1, PatientID: 8, Date: tomorrow, Time: hm(9, 0)})
	body := `{"fecha_turno":"` + tomorrow.String() + `","hora_turno":"09:00"}`
	c, _ := newContext(http.MethodPost, "/turnos/1/7", body, []string{"doctorId", "patientId"}, []string{"1", "7"})

	err := h.Create(c)
	if middleware.StatusOf(err) != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_ListByDoctor(t *testing.T) {
	today := calendar.DateOf(testNow)
	h, _ := newTestHandler(t, Appointment{DoctorID: 1, PatientID: 7, Date: today.AddDays(-3), Time: hm(9, 0)})

	c, rec := newContext(http.MethodGet, "/turnos/1", "", []string{"doctorId"}, []string{"1"})
	if err := h.ListByDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodGet, "/turnos/2", "", []string{"doctorId"}, []string{"2"})
	if err := h.ListByDoctor(c); middleware.StatusOf(err) != http.StatusNotFound {
		t.Errorf("expected 404 for doctor without appointments, got %v", err)
	}

	c, _ = newContext(http.MethodGet, "/turnos/9", "", []string{"doctorId"}, []string{"9"})
	if err := h.ListByDoctor(c); middleware.StatusOf(err) != http.StatusNotFound {
		t.Errorf("expected 404 for unknown doctor, got %v", err)
	}
}

func TestHandler_ListPending(t *testing.T) {
	today := calendar.DateOf(testNow)
	h, _ := newTestHandler(t,
		Appointment{DoctorID: 1, PatientID: 7, Date: today.AddDays(-3), Time: hm(9, 0)},
		Appointment{DoctorID: 1, PatientID: 8, Date: today.AddDays(2), Time: hm(9, 0)},
	)

	c, rec := newContext(http.MethodGet, "/turnos/pendientes/1", "", []string{"doctorId"}, []string{"1"})
	if err := h.ListPending(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].PatientID != 8 {
		t.Errorf("expected only patient 8 pending, got %+v", got)
	}
}

func TestHandler_Delete(t *testing.T) {
	today := calendar.DateOf(testNow)
	h, f := newTestHandler(t, Appointment{DoctorID: 1, PatientID: 7, Date: today.AddDays(1), Time: hm(9, 0)})

	c, rec := newContext(http.MethodDelete, "/turnos/1/7", "", []string{"doctorId", "patientId"}, []string{"1", "7"})
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Turno eliminado correctamente") {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if types := f.events.Types(); len(types) != 1 || types[0] != events.TurnoDeleted {
		t.Errorf("expected one deleted event, got %v", types)
	}

	c, _ = newContext(http.MethodDelete, "/turnos/1/7", "", []string{"doctorId", "patientId"}, []string{"1", "7"})
	if err := h.Delete(c); middleware.StatusOf(err) != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %v", err)
	}

	c, _ = newContext(http.MethodDelete, "/turnos/1/99", "", []string{"doctorId", "patientId"}, []string{"1", "99"})
	if err := h.Delete(c); middleware.StatusOf(err) != http.StatusNotFound {
		t.Errorf("expected 404 for unknown patient, got %v", err)
	}
}
