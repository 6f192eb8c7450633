package agenda

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/apperr"
	"github.com/consultorio/turnos/internal/platform/events"
)

// DoctorDirectory answers whether a doctor id is known.
type DoctorDirectory interface {
	Exists(id int) bool
}

type Handler struct {
	store   *Store
	doctors DoctorDirectory
	events  events.Publisher
	logger  zerolog.Logger
}

func NewHandler(store *Store, doctors DoctorDirectory, pub events.Publisher, logger zerolog.Logger) *Handler {
	return &Handler{
		store:   store,
		doctors: doctors,
		events:  pub,
		logger:  logger.With().Str("component", "agenda").Logger(),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/agenda", h.ListAll)
	g.GET("/agenda/:doctorId", h.ListByDoctor)
	g.POST("/agenda/:doctorId", h.Create)
	g.PUT("/agenda/:doctorId", h.Update)
	g.DELETE("/agenda/:doctorId/:weekday", h.Delete)
}

func intParam(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return v, nil
}

func (h *Handler) ListAll(c echo.Context) error {
	all := h.store.AllSorted()
	if len(all) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No hay agendas medicas")
	}
	return c.JSON(http.StatusOK, all)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	ws := h.store.FindByDoctor(doctorID)
	if len(ws) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Medico no encontrado")
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *Handler) Create(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	if !h.doctors.Exists(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}

	var req WindowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Faltan datos")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	start, end, err := req.Times()
	if err != nil {
		return err
	}

	w, err := h.store.Add(c.Request().Context(), doctorID, *req.Weekday, start, end)
	if err != nil {
		return err
	}
	h.publish(c.Request().Context(), doctorID, []int{w.Weekday})
	return c.JSON(http.StatusCreated, w)
}

// Update applies a list of weekday changes. Every item is validated before
// any is applied; application stops at the first failing item.
func (h *Handler) Update(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	if !h.doctors.Exists(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}

	var items []WindowRequest
	if err := c.Bind(&items); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Se esperaba una lista de horarios")
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Se esperaba una lista de horarios")
	}

	var problems []string
	for i := range items {
		if err := c.Validate(&items[i]); err != nil {
			problems = append(problems, fmt.Sprintf("item %d: %s", i, err.Error()))
		}
	}
	if len(problems) > 0 {
		return apperr.Validation("%s", strings.Join(problems, "; "))
	}

	ctx := c.Request().Context()
	var days []int
	for _, item := range items {
		start, end, err := item.Times()
		if err != nil {
			return err
		}
		if _, err := h.store.Update(ctx, doctorID, *item.Weekday, start, end); err != nil {
			if len(days) > 0 {
				h.publish(ctx, doctorID, days)
			}
			return err
		}
		days = append(days, *item.Weekday)
	}
	h.publish(ctx, doctorID, days)
	return c.JSON(http.StatusOK, h.store.FindByDoctor(doctorID))
}

func (h *Handler) Delete(c echo.Context) error {
	doctorID, err := intParam(c, "doctorId")
	if err != nil {
		return err
	}
	weekday, err := intParam(c, "weekday")
	if err != nil {
		return err
	}
	if !h.doctors.Exists(doctorID) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}
	if !ValidWeekday(weekday) {
		return apperr.Validation("El valor de 'dia_numero' debe estar entre 0 y 6")
	}

	removed, err := h.store.Remove(c.Request().Context(), doctorID, weekday)
	if err != nil {
		return err
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("Día %d no encontrado en la Agenda del Médico %d", weekday, doctorID))
	}
	h.publish(c.Request().Context(), doctorID, []int{weekday})
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Día %d eliminado correctamente de la Agenda del Médico %d", weekday, doctorID),
	})
}

func (h *Handler) publish(ctx context.Context, doctorID int, weekdays []int) {
	evt := events.New(events.AgendaChanged, time.Now(), map[string]interface{}{
		"id_medico": doctorID,
		"dias":      weekdays,
	})
	if err := h.events.Publish(ctx, evt); err != nil {
		h.logger.Warn().Err(err).Int("doctor_id", doctorID).Msg("publish agenda event failed")
	}
}
