package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ahaarwise/internal/domain"

	"github.com/lib/pq"
)

const patientColumns = "id, practitioner_id, name, age, sex, height_cm, weight_kg, activity, prakriti, conditions, notes, created_at, updated_at"

var _ domain.PatientRepository = (*DB)(nil)

func scanPatient(row interface{ Scan(...any) error }) (*domain.Patient, error) {
	var p domain.Patient
	var sex, activity string
	err := row.Scan(&p.ID, &p.PractitionerID, &p.Name, &p.Age, &sex, &p.HeightCm, &p.WeightKg,
		&activity, &p.Prakriti, pq.Array(&p.Conditions), &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Sex = domain.Sex(sex)
	p.Activity = domain.ActivityLevel(activity)
	return &p, nil
}

// CreatePatient inserts a new patient.
func (d *DB) CreatePatient(ctx context.Context, p *domain.Patient) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO patients ("+patientColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		p.ID, p.PractitionerID, p.Name, p.Age, string(p.Sex), p.HeightCm, p.WeightKg,
		string(p.Activity), p.Prakriti, pq.Array(p.Conditions), p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPatient retrieves a patient owned by practitionerID.
func (d *DB) GetPatient(ctx context.Context, practitionerID, id string) (*domain.Patient, error) {
	return scanPatient(d.sql.QueryRowContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE id = $1 AND practitioner_id = $2",
		id, practitionerID,
	))
}

// ListPatients lists a practitioner's patients, most recently updated first.
func (d *DB) ListPatients(ctx context.Context, practitionerID string, limit int) ([]domain.Patient, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE practitioner_id = $1 ORDER BY updated_at DESC LIMIT $2",
		practitionerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Patient, 0, limit)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePatient replaces the editable fields of a patient.
func (d *DB) UpdatePatient(ctx context.Context, p *domain.Patient) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE patients SET name = $3, age = $4, sex = $5, height_cm = $6, weight_kg = $7,
			activity = $8, prakriti = $9, conditions = $10, notes = $11, updated_at = $12
		WHERE id = $1 AND practitioner_id = $2`,
		p.ID, p.PractitionerID, p.Name, p.Age, string(p.Sex), p.HeightCm, p.WeightKg,
		string(p.Activity), p.Prakriti, pq.Array(p.Conditions), p.Notes, p.UpdatedAt,
	)
	return expectOneRow(res, err)
}

// DeletePatient removes a patient.
func (d *DB) DeletePatient(ctx context.Context, practitionerID, id string) error {
	res, err := d.sql.ExecContext(ctx,
		"DELETE FROM patients WHERE id = $1 AND practitioner_id = $2", id, practitionerID)
	return expectOneRow(res, err)
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}
