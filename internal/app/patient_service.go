package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ahaarwise/internal/domain"

	"github.com/google/uuid"
)

const maxPatientAge = 130

var prakritiTypes = map[string]bool{
	"":            true,
	"vata":        true,
	"pitta":       true,
	"kapha":       true,
	"vata-pitta":  true,
	"pitta-kapha": true,
	"vata-kapha":  true,
	"tridosha":    true,
}

// PatientInput is a patient record as entered by a practitioner. Height and
// weight may be given in imperial units and are stored metric.
type PatientInput struct {
	Name       string               `json:"name"`
	Age        int                  `json:"age"`
	Sex        domain.Sex           `json:"sex"`
	Height     float64              `json:"height"`
	HeightUnit string               `json:"heightUnit"`
	Weight     float64              `json:"weight"`
	WeightUnit string               `json:"weightUnit"`
	Activity   domain.ActivityLevel `json:"activity"`
	Prakriti   string               `json:"prakriti"`
	Conditions []string             `json:"conditions"`
	Notes      string               `json:"notes"`
}

// PatientService encapsulates patient-record use cases.
type PatientService struct {
	repo domain.PatientRepository
	now  func() time.Time
}

// NewPatientService creates a PatientService backed by the given repository.
func NewPatientService(repo domain.PatientRepository) *PatientService {
	return &PatientService{repo: repo, now: time.Now}
}

// Create validates in and stores it as a new patient of practitionerID.
func (s *PatientService) Create(ctx context.Context, practitionerID string, in PatientInput) (*domain.Patient, error) {
	p := &domain.Patient{
		ID:             uuid.NewString(),
		PractitionerID: practitionerID,
	}
	if err := applyPatientInput(p, in); err != nil {
		return nil, err
	}
	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = p.CreatedAt
	if err := s.repo.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns one patient of practitionerID.
func (s *PatientService) Get(ctx context.Context, practitionerID, id string) (*domain.Patient, error) {
	return s.repo.GetPatient(ctx, practitionerID, id)
}

// List returns up to limit patients, most recently updated first.
func (s *PatientService) List(ctx context.Context, practitionerID string, limit int) ([]domain.Patient, error) {
	return s.repo.ListPatients(ctx, practitionerID, limit)
}

// Update replaces the editable fields of a patient.
func (s *PatientService) Update(ctx context.Context, practitionerID, id string, in PatientInput) (*domain.Patient, error) {
	p, err := s.repo.GetPatient(ctx, practitionerID, id)
	if err != nil {
		return nil, err
	}
	if err := applyPatientInput(p, in); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a patient.
func (s *PatientService) Delete(ctx context.Context, practitionerID, id string) error {
	return s.repo.DeletePatient(ctx, practitionerID, id)
}

func applyPatientInput(p *domain.Patient, in PatientInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if in.Age <= 0 || in.Age > maxPatientAge {
		return fmt.Errorf("%w: age must be between 1 and %d", domain.ErrInvalidInput, maxPatientAge)
	}
	if in.Sex != domain.SexMale && in.Sex != domain.SexFemale {
		return fmt.Errorf("%w: sex must be \"male\" or \"female\"", domain.ErrInvalidInput)
	}

	heightUnit := orDefault(in.HeightUnit, "cm")
	if heightUnit != "cm" && heightUnit != "in" {
		return fmt.Errorf("%w: heightUnit must be \"cm\" or \"in\"", domain.ErrInvalidInput)
	}
	weightUnit := orDefault(in.WeightUnit, "kg")
	if weightUnit != "kg" && weightUnit != "lb" {
		return fmt.Errorf("%w: weightUnit must be \"kg\" or \"lb\"", domain.ErrInvalidInput)
	}
	if in.Height <= 0 || in.Weight <= 0 {
		return fmt.Errorf("%w: height and weight must be > 0", domain.ErrInvalidInput)
	}

	activity := in.Activity
	if activity == "" {
		activity = domain.ActivitySedentary
	}
	if _, ok := activityFactors[activity]; !ok {
		return fmt.Errorf("%w: unknown activity level %q", domain.ErrInvalidInput, activity)
	}

	prakriti := strings.ToLower(strings.TrimSpace(in.Prakriti))
	if !prakritiTypes[prakriti] {
		return fmt.Errorf("%w: unknown prakriti %q", domain.ErrInvalidInput, in.Prakriti)
	}

	conditions := make([]string, 0, len(in.Conditions))
	for _, c := range in.Conditions {
		if c = strings.TrimSpace(c); c != "" {
			conditions = append(conditions, c)
		}
	}

	p.Name = name
	p.Age = in.Age
	p.Sex = in.Sex
	p.HeightCm = domain.ConvertHeight(in.Height, heightUnit, "cm")
	p.WeightKg = domain.ConvertWeight(in.Weight, weightUnit, "kg")
	p.Activity = activity
	p.Prakriti = prakriti
	p.Conditions = conditions
	p.Notes = strings.TrimSpace(in.Notes)
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
