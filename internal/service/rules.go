package service

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/degree-backend/internal/model"
)

// degreeRule is one validation step: a pure predicate over the input and the
// field it reports on.
type degreeRule struct {
	field   string
	message string
	ok      func(in *model.DegreeInput) bool
}

// degreeRules run in order and stop at the first failure. Presence rules come
// first so the value rules may dereference.
var degreeRules = []degreeRule{
	{"name", "is required", func(in *model.DegreeInput) bool { return in.Name != nil }},
	{"years", "is required", func(in *model.DegreeInput) bool { return in.Years != nil }},
	{"level", "is required", func(in *model.DegreeInput) bool { return in.Level != nil }},
	{"averageSalary", "is required", func(in *model.DegreeInput) bool { return in.AverageSalary != nil }},
	{"name", "must not be empty", func(in *model.DegreeInput) bool {
		return strings.TrimSpace(*in.Name) != ""
	}},
	{"years", "must be a positive number", func(in *model.DegreeInput) bool {
		return isFinite(*in.Years) && *in.Years > 0
	}},
	{"averageSalary", "must be a non-negative number", func(in *model.DegreeInput) bool {
		return isFinite(*in.AverageSalary) && *in.AverageSalary >= 0
	}},
	{"level", "must be one of UG, PG", func(in *model.DegreeInput) bool {
		return model.Level(*in.Level).Valid()
	}},
}

// validateDegree applies degreeRules and returns the normalized fields.
func validateDegree(in model.DegreeInput) (*model.DegreeFields, error) {
	for _, r := range degreeRules {
		if !r.ok(&in) {
			return nil, &ValidationError{Field: r.field, Message: r.message}
		}
	}
	return &model.DegreeFields{
		Name:          strings.TrimSpace(*in.Name),
		Years:         *in.Years,
		Level:         model.Level(*in.Level),
		AverageSalary: *in.AverageSalary,
	}, nil
}

// ValidateID reports the same violation Get, Update and Delete would return
// for id, without touching any store.
func ValidateID(id string) error {
	_, err := validateID(id)
	return err
}

// validateID checks presence, then format, and returns the canonical UUID string.
func validateID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &ValidationError{Field: "id", Message: "is required"}
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", &ValidationError{Field: "id", Message: "is not a valid identifier"}
	}
	return parsed.String(), nil
}

// validateQuery trims the search query and rejects blank input.
func validateQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", &ValidationError{Field: "query", Message: "must not be empty"}
	}
	return q, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
