// api/schemas/person.go
package schemas

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var personValidator = validator.New()

// PersonRecord holds the employee attributes pulled from the HR database.
// It is immutable once fetched; the form filler consumes it read-only.
type PersonRecord struct {
	Name       string `json:"name" validate:"required"`
	CPF        string `json:"cpf" validate:"required,len=11,numeric"`
	FatherName string `json:"father_name"`
	MotherName string `json:"mother_name"`

	Sex           string    `json:"sex"`
	BirthCity     string    `json:"birth_city"`
	BirthState    string    `json:"birth_state"`
	BirthDate     time.Time `json:"birth_date"`
	EducationCode string    `json:"education_code"`
	MaritalCode   string    `json:"marital_code"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`

	// Identity documents.
	RGNumber    string    `json:"rg_number"`
	RGIssuer    string    `json:"rg_issuer"`
	RGState     string    `json:"rg_state"`
	RGIssueDate time.Time `json:"rg_issue_date"`
	CTPSNumber  string    `json:"ctps_number"`
	CTPSSeries  string    `json:"ctps_series"`
	CTPSState   string    `json:"ctps_state"`
	CTPSDate    time.Time `json:"ctps_date"`
	PIS         string    `json:"pis"`

	// Address.
	CEP          string `json:"cep"`
	State        string `json:"state"`
	Neighborhood string `json:"neighborhood"`
	Street       string `json:"street"`
	HouseNumber  string `json:"house_number"`

	// Professional data.
	JobTitle      string    `json:"job_title" validate:"required"`
	AdmissionDate time.Time `json:"admission_date"`
	Salary        string    `json:"salary"`
	CostCenter    string    `json:"cost_center"`
}

// Validate checks the fields the form filler cannot do without. A record
// failing here never reaches the portal.
func (p PersonRecord) Validate() error {
	return personValidator.Struct(p)
}

// PhotoAsset is the optional ID photo resolved for a person before the form
// filler runs. An empty Path means registration proceeds without a photo.
type PhotoAsset struct {
	CPF  string `json:"cpf"`
	Path string `json:"path"`
}

// HasPhoto reports whether a usable photo path was resolved.
func (p PhotoAsset) HasPhoto() bool { return p.Path != "" }
