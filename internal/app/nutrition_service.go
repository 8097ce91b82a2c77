package app

import (
	"context"
	"math"
	"strings"

	"ahaarwise/internal/domain"
)

var activityFactors = map[domain.ActivityLevel]float64{
	domain.ActivitySedentary:  1.2,
	domain.ActivityLight:      1.375,
	domain.ActivityModerate:   1.55,
	domain.ActivityActive:     1.725,
	domain.ActivityVeryActive: 1.9,
}

// conditionCategories is matched in order; the first category with a keyword
// contained in the condition wins.
var conditionCategories = []struct {
	name     string
	keywords []string
}{
	{"digestive", []string{"acid", "gastr", "constipat", "ibs", "bloat", "indigest", "ulcer", "diarrh", "colitis"}},
	{"metabolic", []string{"diabet", "thyroid", "obes", "cholesterol", "pcos", "pcod", "weight gain"}},
	{"cardiovascular", []string{"hypertens", "blood pressure", "heart", "cardi", "angina"}},
	{"respiratory", []string{"asthma", "bronch", "sinus", "cough", "allerg", "cold"}},
	{"skin", []string{"eczema", "psoria", "acne", "dermat", "rash"}},
	{"joint", []string{"arthrit", "gout", "joint", "back pain", "spondyl"}},
}

const otherCategory = "other"

// ConditionGroup lists the patient conditions that fell into one category.
type ConditionGroup struct {
	Category   string   `json:"category"`
	Conditions []string `json:"conditions"`
}

// NutritionProfile is the computed energy target for a patient.
type NutritionProfile struct {
	PatientID      string           `json:"patientId"`
	BMR            float64          `json:"bmr"`
	ActivityFactor float64          `json:"activityFactor"`
	CalorieTarget  int              `json:"calorieTarget"`
	Prakriti       string           `json:"prakriti,omitempty"`
	Conditions     []ConditionGroup `json:"conditions"`
}

// NutritionService derives calorie targets from patient records.
type NutritionService struct {
	patients domain.PatientRepository
}

// NewNutritionService creates a NutritionService backed by the given repository.
func NewNutritionService(patients domain.PatientRepository) *NutritionService {
	return &NutritionService{patients: patients}
}

// Profile computes the nutrition profile of one patient of practitionerID.
func (s *NutritionService) Profile(ctx context.Context, practitionerID, patientID string) (*NutritionProfile, error) {
	p, err := s.patients.GetPatient(ctx, practitionerID, patientID)
	if err != nil {
		return nil, err
	}
	bmr := BMR(p.Sex, p.WeightKg, p.HeightCm, p.Age)
	factor, ok := activityFactors[p.Activity]
	if !ok {
		factor = activityFactors[domain.ActivitySedentary]
	}
	return &NutritionProfile{
		PatientID:      p.ID,
		BMR:            math.Round(bmr*10) / 10,
		ActivityFactor: factor,
		CalorieTarget:  CalorieTarget(bmr, p.Activity),
		Prakriti:       p.Prakriti,
		Conditions:     CategorizeConditions(p.Conditions),
	}, nil
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(sex domain.Sex, weightKg, heightCm float64, age int) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if sex == domain.SexFemale {
		return bmr - 161
	}
	return bmr + 5
}

// CalorieTarget scales bmr by the activity factor and rounds to whole kcal.
// Unknown activity levels are treated as sedentary.
func CalorieTarget(bmr float64, activity domain.ActivityLevel) int {
	factor, ok := activityFactors[activity]
	if !ok {
		factor = activityFactors[domain.ActivitySedentary]
	}
	return int(math.Round(bmr * factor))
}

// CategorizeConditions groups free-text conditions by case-insensitive
// keyword match. Groups come back in category order with "other" last.
func CategorizeConditions(conditions []string) []ConditionGroup {
	byCategory := make(map[string][]string)
	for _, c := range conditions {
		cat := categorize(c)
		byCategory[cat] = append(byCategory[cat], c)
	}

	groups := make([]ConditionGroup, 0, len(byCategory))
	for _, cc := range conditionCategories {
		if conds, ok := byCategory[cc.name]; ok {
			groups = append(groups, ConditionGroup{Category: cc.name, Conditions: conds})
		}
	}
	if conds, ok := byCategory[otherCategory]; ok {
		groups = append(groups, ConditionGroup{Category: otherCategory, Conditions: conds})
	}
	return groups
}

func categorize(condition string) string {
	lower := strings.ToLower(condition)
	for _, cc := range conditionCategories {
		for _, kw := range cc.keywords {
			if strings.Contains(lower, kw) {
				return cc.name
			}
		}
	}
	return otherCategory
}
