package turno

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/events"
)

// Doctors looks up doctors for the booking routes.
type Doctors interface {
	Exists(id int) bool
	Enabled(id int) bool
}

// Patients looks up patients for the booking routes.
type Patients interface {
	Exists(id int) bool
}

type Handler struct {
	engine   *Engine
	store    *Store
	doctors  Doctors
	patients Patients
	events   events.Publisher
	now      func() time.Time
	logger   zerolog.Logger
}

// NewHandler wires the appointment routes. now may be nil to use the wall clock.
func NewHandler(engine *Engine, store *Store, doctors Doctors, patients Patients, pub events.Publisher, now func() time.Time, logger zerolog.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		engine:   engine,
		store:    store,
		doctors:  doctors,
		patients: patients,
		events:   pub,
		now:      now,
		logger:   logger.With().Str("component", "turnos").Logger(),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/turnos/:doctorId", h.ListByDoctor)
	g.GET("/turnos/pendientes/:doctorId", h.ListPending)
	g.POST("/turnos/:doctorId/:patientId", h.Create)
	g.DELETE("/turnos/:doctorId/:patientId", h.Delete)
}

func intParam(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return v, nil
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	if !h.doctors.Exists(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}
	if err := h.store.Reload(c.Request().Context()); err != nil {
		return err
	}
	list := h.store.ListByDoctor(doctorID)
	if len(list) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No hay turnos para este médico")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) ListPending(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	if !h.doctors.Exists(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}
	if err := h.store.Reload(c.Request().Context()); err != nil {
		return err
	}
	list := h.store.ListPendingByDoctor(doctorID, h.now())
	if len(list) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No hay turnos pendientes para este médico")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Create(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	patientID, err := intParam(c, "patientId")
	if err != nil {
		return err
	}

	var body BookingRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}
	if body.Date == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Falta el campo 'fecha_turno'")
	}
	if body.Time == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Falta el campo 'hora_turno'")
	}

	if !h.doctors.Exists(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}
	if !h.doctors.Enabled(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no habilitado")
	}
	if !h.patients.Exists(patientID) {
		return echo.NewHTTPError(http.StatusNotFound, "Paciente no encontrado")
	}

	appt, err := h.engine.RequestBooking(c.Request().Context(), Request{
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      *body.Date,
		Time:      *body.Time,
	}, h.now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Turno creado correctamente",
		"turno":   appt,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	patientID, err := intParam(c, "patientId")
	if err != nil {
		return err
	}
	if !h.doctors.Exists(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}
	if !h.patients.Exists(patientID) {
		return echo.NewHTTPError(http.StatusNotFound, "Paciente no encontrado")
	}

	removed, err := h.store.Remove(c.Request().Context(), doctorID, patientID)
	if err != nil {
		return err
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "Turno no encontrado")
	}

	evt := events.New(events.TurnoDeleted, h.now(), map[string]int{
		"id_medico":   doctorID,
		"id_paciente": patientID,
	})
	if err := h.events.Publish(c.Request().Context(), evt); err != nil {
		h.logger.Warn().Err(err).Msg("publish cancellation event failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Turno eliminado correctamente"})
}
