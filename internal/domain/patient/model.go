package patient

// Patient is a person who can book appointments.
type Patient struct {
	ID           int    `json:"id"`
	DNI          string `json:"dni"`
	FirstName    string `json:"nombre"`
	LastName     string `json:"apellido"`
	Phone        string `json:"telefono"`
	Email        string `json:"email"`
	Street       string `json:"dir_calle"`
	StreetNumber int    `json:"dir_numero"`
}

// Input is the body of POST /pacientes and PUT /pacientes/:id.
type Input struct {
	DNI          string `json:"dni" validate:"required,len=8,digits"`
	FirstName    string `json:"nombre" validate:"required,alphaunicode"`
	LastName     string `json:"apellido" validate:"required,alphaunicode"`
	Phone        string `json:"telefono" validate:"required,len=9,digits"`
	Email        string `json:"email" validate:"required,contains=@"`
	Street       string `json:"dir_calle" validate:"required"`
	StreetNumber *int   `json:"dir_numero" validate:"required,gt=0"`
}

func (in Input) apply(p *Patient) {
	p.DNI = in.DNI
	p.FirstName = in.FirstName
	p.LastName = in.LastName
	p.Phone = in.Phone
	p.Email = in.Email
	p.Street = in.Street
	p.StreetNumber = *in.StreetNumber
}
