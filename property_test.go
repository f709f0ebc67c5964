package wizard_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/aretw0/wizard"
	"github.com/aretw0/wizard/pkg/adapters/memory"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// op is one user interaction: 0 next, 1 previous, 2 jump, 3 answer, 4 clear answer.
type op struct {
	Kind  int
	Index int
	Value string
}

func genOps() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflect.TypeOf(op{}), map[string]gopter.Gen{
		"Kind":  gen.IntRange(0, 4),
		"Index": gen.IntRange(-2, 6),
		"Value": gen.OneConstOf("", "Ali", "ali@example.tn", "not-an-email", "98123456", "+21612"),
	}))
}

var textFields = []string{"full_name", "email", "phone", "project"}

func apply(wz *wizard.Wizard, o op) {
	switch o.Kind {
	case 0:
		wz.Next()
	case 1:
		wz.Previous()
	case 2:
		wz.JumpTo(o.Index)
	case 3:
		_ = wz.SetAnswer(textFields[(o.Index+2)%len(textFields)], o.Value)
	case 4:
		_ = wz.SetAnswer(textFields[(o.Index+2)%len(textFields)], nil)
	}
}

func newPropertyEngine(t *testing.T, store *memory.Store) *wizard.Engine {
	dir, err := memory.NewDirectory(threeStepGuide())
	if err != nil {
		t.Fatal(err)
	}
	return wizard.New(dir, wizard.WithStore(store))
}

func TestProperties_Navigation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("step index always stays in range", prop.ForAll(
		func(ops []op) bool {
			eng := newPropertyEngine(t, memory.NewStore())
			wz, err := eng.Load(ctx, "micro-credit")
			if err != nil {
				return false
			}
			n := len(wz.Guide().Steps)
			for _, o := range ops {
				apply(wz, o)
				cur := wz.CurrentStep()
				if cur < 0 || cur >= n || wz.HighestStep() < cur {
					return false
				}
			}
			return true
		},
		genOps(),
	))

	properties.Property("next never leaves a step with an empty required field", prop.ForAll(
		func(ops []op) bool {
			eng := newPropertyEngine(t, memory.NewStore())
			wz, err := eng.Load(ctx, "micro-credit")
			if err != nil {
				return false
			}
			for _, o := range ops {
				apply(wz, o)
			}
			before := wz.CurrentStep()
			invalid := len(wz.ValidateStep(before)) > 0
			wz.Next()
			return !invalid || wz.CurrentStep() == before
		},
		genOps(),
	))

	properties.Property("validation is pure", prop.ForAll(
		func(ops []op, step int) bool {
			eng := newPropertyEngine(t, memory.NewStore())
			wz, err := eng.Load(ctx, "micro-credit")
			if err != nil {
				return false
			}
			for _, o := range ops {
				apply(wz, o)
			}
			a, b := wz.ValidateStep(step), wz.ValidateStep(step)
			if len(a) != len(b) {
				return false
			}
			for k, v := range a {
				if b[k] != v {
					return false
				}
			}
			return true
		},
		genOps(),
		gen.IntRange(-1, 4),
	))

	properties.TestingRun(t)
}

func TestProperties_Persistence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	ctx := context.Background()

	properties.Property("setAnswer twice with the same value is idempotent", prop.ForAll(
		func(ops []op, field int, value string) bool {
			eng := newPropertyEngine(t, memory.NewStore())
			wz, err := eng.Load(ctx, "micro-credit")
			if err != nil {
				return false
			}
			for _, o := range ops {
				apply(wz, o)
			}
			name := textFields[field]
			_ = wz.SetAnswer(name, value)
			answers, errs := wz.Snapshot().Answers, wz.Errors()
			_ = wz.SetAnswer(name, value)
			return domain.SameValue(answers[name], wz.Snapshot().Answers[name]) &&
				len(answers) == len(wz.Snapshot().Answers) &&
				len(errs) == len(wz.Errors())
		},
		genOps(),
		gen.IntRange(0, len(textFields)-1),
		gen.AlphaString(),
	))

	properties.Property("resume restores answers and step", prop.ForAll(
		func(ops []op) bool {
			store := memory.NewStore()
			eng := newPropertyEngine(t, store)
			wz, err := eng.Load(ctx, "micro-credit")
			if err != nil {
				return false
			}
			for _, o := range ops {
				apply(wz, o)
			}
			if err := wz.Flush(ctx); err != nil {
				return false
			}
			want := wz.Snapshot()

			resumed, err := eng.Load(ctx, "micro-credit")
			if err != nil {
				return false
			}
			got := resumed.Snapshot()
			if got.CurrentStep != want.CurrentStep || len(got.Answers) != len(want.Answers) {
				return false
			}
			for k, v := range want.Answers {
				if !domain.SameValue(v, got.Answers[k]) {
					return false
				}
			}
			return true
		},
		genOps(),
	))

	properties.TestingRun(t)
}
