package domain

import (
	"context"
	"time"
)

// Sex is used for the BMR equation only.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ActivityLevel scales the basal metabolic rate into a daily calorie target.
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// Patient is a practitioner's client record. Measurements are stored metric.
type Patient struct {
	ID             string        `json:"id"`
	PractitionerID string        `json:"practitionerId"`
	Name           string        `json:"name"`
	Age            int           `json:"age"`
	Sex            Sex           `json:"sex"`
	HeightCm       float64       `json:"heightCm"`
	WeightKg       float64       `json:"weightKg"`
	Activity       ActivityLevel `json:"activity"`
	Prakriti       string        `json:"prakriti"`
	Conditions     []string      `json:"conditions"`
	Notes          string        `json:"notes"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// PatientRepository is the port for patient persistence. Every call is scoped
// to the owning practitioner; records of other practitioners are invisible.
type PatientRepository interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, practitionerID, id string) (*Patient, error)
	ListPatients(ctx context.Context, practitionerID string, limit int) ([]Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) error
	DeletePatient(ctx context.Context, practitionerID, id string) error
}
