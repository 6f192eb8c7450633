package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/config"
	"github.com/consultorio/turnos/internal/domain/agenda"
	"github.com/consultorio/turnos/internal/domain/doctor"
	"github.com/consultorio/turnos/internal/domain/patient"
	"github.com/consultorio/turnos/internal/domain/turno"
	"github.com/consultorio/turnos/internal/platform/db"
	"github.com/consultorio/turnos/internal/platform/events"
	"github.com/consultorio/turnos/internal/platform/locker"
	"github.com/consultorio/turnos/internal/platform/middleware"
	"github.com/consultorio/turnos/internal/platform/seed"
	"github.com/consultorio/turnos/internal/platform/snapshot"
	"github.com/consultorio/turnos/internal/platform/validation"
)

// newLogger builds the root logger: JSON on stdout, human readable in
// development.
func newLogger(env, level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

type repos struct {
	doctors  doctor.Repository
	patients patient.Repository
	agenda   agenda.Repository
	turnos   turno.Repository
}

func fileRepos(dir string) repos {
	return repos{
		doctors:  doctor.NewFileRepo(dir),
		patients: patient.NewFileRepo(dir),
		agenda:   agenda.NewFileRepo(dir),
		turnos:   turno.NewFileRepo(dir),
	}
}

func pgRepos(pool *pgxpool.Pool) repos {
	return repos{
		doctors:  doctor.NewRepoPG(pool),
		patients: patient.NewRepoPG(pool),
		agenda:   agenda.NewRepoPG(pool),
		turnos:   turno.NewRepoPG(pool),
	}
}

// app holds the wired components of one server process.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time

	pool   *pgxpool.Pool
	repos  repos
	locks  locker.Locker
	events events.Publisher

	agenda   *agenda.Store
	doctors  *doctor.Service
	patients *patient.Service
	turnos   *turno.Store
	engine   *turno.Engine

	closers []func()
}

func poolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		AppName:           "turnos-server",
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    5 * time.Second,
	}
}

// newApp connects the configured infrastructure and builds the components.
// Nothing is loaded until init.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, now: time.Now}

	if cfg.UsePostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, pool.Close)
		a.repos = pgRepos(pool)
	} else {
		a.repos = fileRepos(cfg.DataDir)
		logger.Info().Str("dir", cfg.DataDir).Msg("using csv storage")
	}

	if cfg.RedisURL != "" {
		client, err := locker.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		a.locks = locker.NewRedis(client, locker.RedisOptions{TTL: cfg.LockTTL}, logger)
		logger.Info().Msg("using redis booking locks")
	} else {
		a.locks = locker.NewLocal()
	}

	if cfg.AMQPURL != "" {
		pub, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing amqp publisher")
			}
		})
		a.events = pub
		logger.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing events to amqp")
	} else {
		a.events = events.Noop{}
	}

	a.agenda = agenda.NewStore(a.repos.agenda, a.locks, a.now, logger)
	a.turnos = turno.NewStore(a.repos.turnos, a.locks, logger)
	a.doctors = doctor.NewService(a.repos.doctors, a.agenda, logger)
	a.patients = patient.NewService(a.repos.patients, a.turnos, logger)
	a.engine = turno.NewEngine(a.agenda, a.turnos, a.locks, a.events, logger)
	return a, nil
}

// init loads every snapshot. Doctors come first so that a freshly seeded
// registry also gets its default agenda.
func (a *app) init(ctx context.Context, seeds *seed.Client) error {
	var doctorSource doctor.Source
	var patientSource patient.Source
	if seeds != nil {
		doctorSource = seeds.DoctorSource(a.cfg.SeedDoctors)
		patientSource = seeds.PatientSource(a.cfg.SeedPatients)
	}

	if err := a.doctors.Init(ctx, doctorSource); err != nil {
		return err
	}
	if err := a.agenda.Init(ctx, a.doctors.EnabledIDs()); err != nil {
		return err
	}
	if err := a.turnos.Init(ctx); err != nil {
		return err
	}
	return a.patients.Init(ctx, patientSource)
}

// hasSnapshots reports whether doctors were already persisted.
func (a *app) hasSnapshots(ctx context.Context) (bool, error) {
	_, err := a.repos.doctors.Load(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, snapshot.ErrAbsent):
		return false, nil
	default:
		return false, err
	}
}

// reseed replaces doctors and patients, clears appointments and gives every
// enabled doctor the default agenda.
func (a *app) reseed(ctx context.Context, ds []doctor.Doctor, ps []patient.Patient) error {
	if err := a.repos.turnos.Save(ctx, nil); err != nil {
		return fmt.Errorf("clear turnos: %w", err)
	}
	if err := a.repos.agenda.Save(ctx, nil); err != nil {
		return fmt.Errorf("clear agenda: %w", err)
	}
	if err := a.turnos.Reload(ctx); err != nil {
		return err
	}
	if err := a.doctors.Import(ctx, ds); err != nil {
		return err
	}
	if err := a.patients.Import(ctx, ps); err != nil {
		return err
	}
	if err := a.agenda.Init(ctx, nil); err != nil {
		return err
	}
	for _, id := range a.doctors.EnabledIDs() {
		if _, err := a.agenda.Onboard(ctx, id); err != nil {
			return fmt.Errorf("default agenda for doctor %d: %w", id, err)
		}
	}
	return nil
}

// server builds the HTTP server with the middleware chain and every route.
func (a *app) server() *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(a.logger)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"storage": cfg.StorageBackend,
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	}

	api := e.Group("")
	doctor.NewHandler(a.doctors).RegisterRoutes(api)
	patient.NewHandler(a.patients).RegisterRoutes(api)
	agenda.NewHandler(a.agenda, a.doctors, a.events, a.logger).RegisterRoutes(api)
	turno.NewHandler(a.engine, a.turnos, a.doctors, a.patients, a.events, a.now, a.logger).RegisterRoutes(api)

	return e
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
