package doctor

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
	g.GET("/medicos", h.List)
	g.GET("/medicos/:id", h.Get)
	g.POST("/medicos", h.Create)
	g.PUT("/medicos/:id", h.Update)
}

func (h *Handler) List(c echo.Context) error {
	ds := h.svc.List()
	if len(ds) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "No hay médicos disponibles")
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, ok := h.svc.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No existe un médico con ese ID")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Faltan datos")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !h.svc.Exists(id) {
		return echo.NewHTTPError(http.StatusNotFound, "Médico no encontrado")
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Faltan datos")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	d, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}
