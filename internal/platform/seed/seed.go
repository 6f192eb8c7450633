// Package seed fills empty doctor and patient registries with generated
// people from a randomuser.me compatible API.
package seed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/domain/doctor"
	"github.com/consultorio/turnos/internal/domain/patient"
)

const (
	doctorFields  = "id,name,login,phone,email,password,nat,value"
	patientFields = "id,name,login,phone,email,location,password,nat,value"
)

// Client fetches generated people.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "seed").Logger(),
	}
}

type person struct {
	ID struct {
		Value *string `json:"value"`
	} `json:"id"`
	Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Login struct {
		Password string `json:"password"`
	} `json:"login"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Location struct {
		Street struct {
			Number int    `json:"number"`
			Name   string `json:"name"`
		} `json:"street"`
	} `json:"location"`
}

type response struct {
	Results []person `json:"results"`
	Error   string   `json:"error"`
}

func (c *Client) fetch(ctx context.Context, n int, fields string) ([]person, error) {
	q := url.Values{}
	q.Set("results", strconv.Itoa(n))
	q.Set("inc", fields)
	q.Set("password", "number,6")
	q.Set("nat", "es")
	q.Set("value", "number,8")
	q.Set("phone", "number,10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build seed request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch seed data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch seed data: status %d", resp.StatusCode)
	}
	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("seed source: %s", body.Error)
	}
	c.logger.Info().Int("requested", n).Int("received", len(body.Results)).Msg("seed data fetched")
	return body.Results, nil
}

// Doctors returns n generated doctors, all enabled. IDs are left for the
// registry to assign.
func (c *Client) Doctors(ctx context.Context, n int) ([]doctor.Doctor, error) {
	people, err := c.fetch(ctx, n, doctorFields)
	if err != nil {
		return nil, err
	}
	out := make([]doctor.Doctor, 0, len(people))
	for _, p := range people {
		out = append(out, doctor.Doctor{
			DNI:       dni(p.ID.Value),
			FirstName: p.Name.First,
			LastName:  p.Name.Last,
			License:   p.Login.Password,
			Phone:     phone(p.Phone),
			Email:     p.Email,
			Enabled:   true,
		})
	}
	return out, nil
}

// Patients returns n generated patients with a street address.
func (c *Client) Patients(ctx context.Context, n int) ([]patient.Patient, error) {
	people, err := c.fetch(ctx, n, patientFields)
	if err != nil {
		return nil, err
	}
	out := make([]patient.Patient, 0, len(people))
	for _, p := range people {
		out = append(out, patient.Patient{
			DNI:          dni(p.ID.Value),
			FirstName:    p.Name.First,
			LastName:     p.Name.Last,
			Phone:        phone(p.Phone),
			Email:        p.Email,
			Street:       p.Location.Street.Name,
			StreetNumber: p.Location.Street.Number,
		})
	}
	return out, nil
}

// DoctorSource adapts Doctors to the registry's seed hook.
func (c *Client) DoctorSource(n int) doctor.Source {
	return func(ctx context.Context) ([]doctor.Doctor, error) { return c.Doctors(ctx, n) }
}

// PatientSource adapts Patients to the registry's seed hook.
func (c *Client) PatientSource(n int) patient.Source {
	return func(ctx context.Context) ([]patient.Patient, error) { return c.Patients(ctx, n) }
}

// dni turns a national id such as "12345678-Z" into its leading digits.
func dni(value *string) string {
	if value == nil {
		return ""
	}
	s := strings.ReplaceAll(*value, "-", "")
	s = strings.TrimRight(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

func phone(s string) string {
	return strings.NewReplacer("-", "", " ", "", "(", "", ")", "").Replace(s)
}
