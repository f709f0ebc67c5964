package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/wizard/internal/testutils"
	"github.com/aretw0/wizard/pkg/adapters/memory"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validGuide = `id: attestation
title: Attestation de résidence
service_type: municipal
steps:
  - title: Demande
    fields:
      - name: full_name
        type: text
        required: true
      - name: district
        type: select
        options: [nord, sud]
`

const implicitGuide = `---
title: Certificat
steps:
  - title: Identité
    fields:
      - name: email
        type: email
---
Apportez une pièce d'identité.
`

const brokenGuide = `id: broken
steps:
  - title: Demande
    fields:
      - name: colour
        type: palette
`

func writeGuide(t *testing.T, name, content string) string {
	t.Helper()
	return filepath.Join(testutils.GuideDir(t, map[string]string{name: content}), name)
}

func TestGuideValidate(t *testing.T) {
	good := writeGuide(t, "attestation.yaml", validGuide)
	implicit := writeGuide(t, "certificat.md", implicitGuide)
	broken := writeGuide(t, "broken.yaml", brokenGuide)

	var out bytes.Buffer
	require.NoError(t, runGuideValidate(&out, []string{good, implicit}))
	assert.Contains(t, out.String(), "attestation, 1 steps")
	assert.Contains(t, out.String(), "certificat, 1 steps")

	out.Reset()
	err := runGuideValidate(&out, []string{good, broken})
	assert.ErrorIs(t, err, errInvalidGuides)
	assert.Contains(t, out.String(), "✗ "+broken)
}

func TestGuideShow_Raw(t *testing.T) {
	path := writeGuide(t, "certificat.md", implicitGuide)

	var out bytes.Buffer
	require.NoError(t, runGuideShow(&out, path, true))
	assert.Contains(t, out.String(), "# Certificat")
	assert.Contains(t, out.String(), "Apportez une pièce d'identité.")
	assert.Regexp(t, `\| email +\| email +\|`, out.String())
}

func TestReadGuide_NoFrontmatter(t *testing.T) {
	path := writeGuide(t, "empty.md", "# Just text\n")
	_, err := readGuide(path)
	assert.ErrorIs(t, err, domain.ErrInvalidGuide)
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	for _, key := range []string{"alice:guide_progress_attestation", "bob:guide_progress_attestation"} {
		s := domain.NewSession("attestation")
		s.CurrentStep = 0
		s.Answers["full_name"] = "Ali"
		require.NoError(t, store.Save(ctx, key, s))
	}
	return store
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	var out bytes.Buffer
	require.NoError(t, runSessionList(ctx, &out, store))
	assert.Regexp(t, `(?i)key.+guide.+step.+answers.+saved`, out.String())
	assert.Contains(t, out.String(), "alice:guide_progress_attestation")
	assert.Contains(t, out.String(), "bob:guide_progress_attestation")

	out.Reset()
	require.NoError(t, runSessionInspect(ctx, &out, store, "alice:guide_progress_attestation"))
	assert.Contains(t, out.String(), `"full_name": "Ali"`)

	err := runSessionInspect(ctx, &out, store, "nobody")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, runSessionRemove(ctx, &out, store, []string{"alice:guide_progress_attestation"}, false))
	keys, _ := store.List(ctx)
	assert.Equal(t, []string{"bob:guide_progress_attestation"}, keys)

	require.NoError(t, runSessionRemove(ctx, &out, store, nil, true))
	keys, _ = store.List(ctx)
	assert.Empty(t, keys)

	out.Reset()
	require.NoError(t, runSessionList(ctx, &out, store))
	assert.Equal(t, "No saved sessions found.\n", out.String())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "wizard version")
}
