package domain_test

import (
	"testing"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateField_Rules(t *testing.T) {
	tests := []struct {
		name  string
		field domain.Field
		value any
		want  string
	}{
		{"required missing", domain.Field{Name: "n", Kind: domain.KindText, Required: true}, nil, domain.CodeRequired},
		{"required empty string", domain.Field{Name: "n", Kind: domain.KindText, Required: true}, "", domain.CodeRequired},
		{"required unchecked box", domain.Field{Name: "ok", Kind: domain.KindBoolean, Required: true}, false, domain.CodeRequired},
		{"required checked box", domain.Field{Name: "ok", Kind: domain.KindBoolean, Required: true}, true, ""},
		{"required nil file", domain.Field{Name: "cin", Kind: domain.KindFile, Required: true}, (*domain.FileReference)(nil), domain.CodeRequired},
		{"optional empty", domain.Field{Name: "n", Kind: domain.KindEmail}, "", ""},
		{"email valid", domain.Field{Name: "e", Kind: domain.KindEmail}, "ali@example.tn", ""},
		{"email invalid", domain.Field{Name: "e", Kind: domain.KindEmail}, "not-an-email", domain.CodeInvalidEmail},
		{"email two ats", domain.Field{Name: "e", Kind: domain.KindEmail}, "a@b@c.tn", domain.CodeInvalidEmail},
		{"email no dot", domain.Field{Name: "e", Kind: domain.KindEmail}, "ali@example", domain.CodeInvalidEmail},
		{"phone local", domain.Field{Name: "p", Kind: domain.KindPhone}, "98123456", ""},
		{"phone prefixed", domain.Field{Name: "p", Kind: domain.KindPhone}, "+21698123456", ""},
		{"phone spaced", domain.Field{Name: "p", Kind: domain.KindPhone}, "+216 98 123 456", ""},
		{"phone nine digits", domain.Field{Name: "p", Kind: domain.KindPhone}, "+216981234567", domain.CodeInvalidPhone},
		{"phone leading one", domain.Field{Name: "p", Kind: domain.KindPhone}, "18123456", domain.CodeInvalidPhone},
		{"select in options", domain.Field{Name: "s", Kind: domain.KindSingleSelect, Options: []string{"a", "b"}}, "b", ""},
		{"select outside options", domain.Field{Name: "s", Kind: domain.KindSingleSelect, Options: []string{"a", "b"}}, "c", domain.CodeInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ValidateField(tt.field, tt.value))
		})
	}
}

func TestValidateStep_OnlyStepFields(t *testing.T) {
	step := domain.Step{Fields: []domain.Field{
		{Name: "name", Kind: domain.KindText, Required: true},
		{Name: "email", Kind: domain.KindEmail},
	}}
	answers := domain.Answers{"email": "bad", "other": "ignored"}

	errs := domain.ValidateStep(step, answers)
	assert.Equal(t, domain.ValidationErrors{
		"name":  domain.CodeRequired,
		"email": domain.CodeInvalidEmail,
	}, errs)

	// Pure: same inputs, same output.
	assert.Equal(t, errs, domain.ValidateStep(step, answers))
}

func TestValidateStep_InformationalStep(t *testing.T) {
	errs := domain.ValidateStep(domain.Step{Title: "Intro"}, nil)
	assert.NotNil(t, errs)
	assert.Empty(t, errs)
}

func TestFirstInvalidStep(t *testing.T) {
	g := &domain.Guide{ID: "g", Steps: []domain.Step{
		{Fields: []domain.Field{{Name: "a", Kind: domain.KindText, Required: true}}},
		{Fields: []domain.Field{{Name: "b", Kind: domain.KindText, Required: true}}},
		{Fields: []domain.Field{{Name: "c", Kind: domain.KindText, Required: true}}},
	}}

	idx, errs := domain.FirstInvalidStep(g, domain.Answers{"a": "x", "c": "z"})
	assert.Equal(t, 1, idx)
	assert.Equal(t, domain.ValidationErrors{"b": domain.CodeRequired}, errs)

	idx, errs = domain.FirstInvalidStep(g, domain.Answers{"a": "x", "b": "y", "c": "z"})
	assert.Equal(t, -1, idx)
	assert.Nil(t, errs)
}
