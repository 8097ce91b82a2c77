package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"ahaarwise/internal/adapter/memory"
	"ahaarwise/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPatientInput() PatientInput {
	return PatientInput{
		Name:       "Asha Rao",
		Age:        34,
		Sex:        domain.SexFemale,
		Height:     160,
		Weight:     58,
		Activity:   domain.ActivityLight,
		Prakriti:   "Pitta",
		Conditions: []string{" acidity ", "", "migraine"},
		Notes:      "prefers warm meals",
	}
}

func TestPatientService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	svc := NewPatientService(memory.New())
	svc.now = clock.Now

	p, err := svc.Create(ctx, "doc-1", validPatientInput())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "pitta", p.Prakriti)
	assert.Equal(t, []string{"acidity", "migraine"}, p.Conditions)
	assert.Equal(t, clock.Now(), p.CreatedAt)

	got, err := svc.Get(ctx, "doc-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	_, err = svc.Get(ctx, "doc-2", p.ID)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
}

func TestPatientService_ImperialUnits(t *testing.T) {
	svc := NewPatientService(memory.New())
	in := validPatientInput()
	in.Height, in.HeightUnit = 63, "in"
	in.Weight, in.WeightUnit = 132, "lb"

	p, err := svc.Create(context.Background(), "doc-1", in)
	require.NoError(t, err)
	assert.InDelta(t, 160.02, p.HeightCm, 0.01)
	assert.InDelta(t, 59.87, p.WeightKg, 0.01)
}

func TestPatientService_Validation(t *testing.T) {
	svc := NewPatientService(memory.New())

	tests := []struct {
		name   string
		mutate func(in *PatientInput)
	}{
		{"blank name", func(in *PatientInput) { in.Name = "  " }},
		{"zero age", func(in *PatientInput) { in.Age = 0 }},
		{"too old", func(in *PatientInput) { in.Age = 131 }},
		{"unknown sex", func(in *PatientInput) { in.Sex = "x" }},
		{"bad height unit", func(in *PatientInput) { in.HeightUnit = "ft" }},
		{"bad weight unit", func(in *PatientInput) { in.WeightUnit = "st" }},
		{"zero height", func(in *PatientInput) { in.Height = 0 }},
		{"negative weight", func(in *PatientInput) { in.Weight = -1 }},
		{"unknown activity", func(in *PatientInput) { in.Activity = "athlete" }},
		{"unknown prakriti", func(in *PatientInput) { in.Prakriti = "fire" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validPatientInput()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), "doc-1", in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestPatientService_DefaultActivity(t *testing.T) {
	svc := NewPatientService(memory.New())
	in := validPatientInput()
	in.Activity = ""

	p, err := svc.Create(context.Background(), "doc-1", in)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivitySedentary, p.Activity)
}

func TestPatientService_UpdateListDelete(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	svc := NewPatientService(memory.New())
	svc.now = clock.Now

	first, err := svc.Create(ctx, "doc-1", validPatientInput())
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := svc.Create(ctx, "doc-1", validPatientInput())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	in := validPatientInput()
	in.Name = "Asha R."
	updated, err := svc.Update(ctx, "doc-1", first.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Asha R.", updated.Name)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	list, err := svc.List(ctx, "doc-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	_, err = svc.Update(ctx, "doc-2", first.ID, in)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)

	require.NoError(t, svc.Delete(ctx, "doc-1", first.ID))
	err = svc.Delete(ctx, "doc-1", first.ID)
	assert.True(t, errors.Is(err, domain.ErrPatientNotFound))
}
