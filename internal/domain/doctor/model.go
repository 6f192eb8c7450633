package doctor

import "strings"

// Doctor is a practitioner who can be given an agenda and appointments.
type Doctor struct {
	ID        int    `json:"id"`
	DNI       string `json:"dni"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	License   string `json:"matricula"`
	Phone     string `json:"telefono"`
	Email     string `json:"email"`
	Enabled   bool   `json:"habilitado"`
}

// Input is the body of POST /medicos and PUT /medicos/:id.
type Input struct {
	DNI       string `json:"dni" validate:"required,len=8,digits"`
	FirstName string `json:"nombre" validate:"required,alphaunicode"`
	LastName  string `json:"apellido" validate:"required,alphaunicode"`
	License   string `json:"matricula" validate:"required,len=6,digits"`
	Phone     string `json:"telefono" validate:"required,len=9,digits"`
	Email     string `json:"email" validate:"required,contains=@"`
	Enabled   *bool  `json:"habilitado" validate:"required"`
}

func (in Input) apply(d *Doctor) {
	d.DNI = in.DNI
	d.FirstName = in.FirstName
	d.LastName = in.LastName
	d.License = in.License
	d.Phone = in.Phone
	d.Email = in.Email
	d.Enabled = *in.Enabled
}

// clashes reports whether d and o share a DNI, a license or a full name.
func (d Doctor) clashes(o Doctor) bool {
	return d.DNI == o.DNI ||
		d.License == o.License ||
		(strings.EqualFold(d.FirstName, o.FirstName) && strings.EqualFold(d.LastName, o.LastName))
}
