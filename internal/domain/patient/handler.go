package patient

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/pacientes", h.List)
	g.GET("/pacientes/:id", h.Get)
	g.POST("/pacientes", h.Create)
	g.PUT("/pacientes/:id", h.Update)
	g.DELETE("/pacientes/:id", h.Delete)
}

func idParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	ps := h.svc.List()
	if len(ps) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No hay pacientes disponibles")
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, ok := h.svc.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No existe un paciente con ese ID")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) bindInput(c echo.Context) (Input, error) {
	var in Input
	if err := c.Bind(&in); err != nil {
		return Input{}, echo.NewHTTPError(http.StatusBadRequest, "Faltan datos")
	}
	if err := c.Validate(&in); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (h *Handler) Create(c echo.Context) error {
	in, err := h.bindInput(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if !h.svc.Exists(id) {
		return echo.NewHTTPError(http.StatusNotFound, "Paciente no encontrado")
	}
	in, err := h.bindInput(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Paciente eliminado correctamente"})
}
