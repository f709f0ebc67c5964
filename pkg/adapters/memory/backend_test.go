package memory_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/wizard/pkg/adapters/memory"
	"github.com/aretw0/wizard/pkg/domain"
	contract "github.com/aretw0/wizard/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGuide() *domain.Guide {
	return &domain.Guide{
		ID:          "micro-credit",
		Title:       "Demande de micro-crédit",
		ServiceType: "microfinance",
		Steps: []domain.Step{
			{Title: "Identité", Fields: []domain.Field{
				{Name: "full_name", Kind: domain.KindText, Label: "Nom complet", Required: true},
			}},
			{Title: "Pièces", Fields: []domain.Field{
				{Name: "cin_scan", Kind: domain.KindFile, Label: "CIN", Required: true, Accept: []string{"pdf"}},
			}},
		},
	}
}

func TestMemoryDirectory_Contract(t *testing.T) {
	dir, err := memory.NewDirectory(sampleGuide())
	require.NoError(t, err)
	contract.RunGuideDirectoryContract(t, dir, sampleGuide())
}

func TestMemoryDirectory_RejectsInvalidGuide(t *testing.T) {
	_, err := memory.NewDirectory(&domain.Guide{ID: "empty"})
	assert.ErrorIs(t, err, domain.ErrInvalidGuide)
}

func TestUploader_UsesFieldAcceptSet(t *testing.T) {
	dir, err := memory.NewDirectory(sampleGuide())
	require.NoError(t, err)
	up := memory.NewUploader(dir)
	ctx := context.Background()

	ref, err := up.Upload(ctx, domain.Upload{
		FieldName: "cin_scan",
		Filename:  "cin.pdf",
		Size:      5,
		Content:   strings.NewReader("%PDF-"),
	})
	require.NoError(t, err)
	assert.Equal(t, "cin.pdf", ref.OriginalName)
	assert.Equal(t, int64(5), ref.SizeBytes)

	content, ok := up.Content(ref.StorageHandle)
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-"), content)

	_, err = up.Upload(ctx, domain.Upload{FieldName: "cin_scan", Filename: "cin.png", Size: 3, Content: strings.NewReader("png")})
	assert.ErrorIs(t, err, domain.ErrUploadTypeNotAllowed)
}

func TestUploader_RejectsOversizedContent(t *testing.T) {
	up := memory.NewUploader(nil)

	// Declared size lies; the content itself is too large.
	big := bytes.Repeat([]byte("a"), int(domain.MaxUploadBytes)+1)
	_, err := up.Upload(context.Background(), domain.Upload{
		FieldName: "doc",
		Filename:  "doc.pdf",
		Size:      10,
		Content:   bytes.NewReader(big),
	})
	assert.ErrorIs(t, err, domain.ErrUploadTooLarge)
}

func TestSubmitter_SequentialTrackingIDs(t *testing.T) {
	s := memory.NewSubmitter()
	ctx := context.Background()

	id1, err := s.Submit(ctx, domain.Submission{GuideID: "a"})
	require.NoError(t, err)
	id2, err := s.Submit(ctx, domain.Submission{GuideID: "b"})
	require.NoError(t, err)

	assert.Equal(t, "T-001", id1)
	assert.Equal(t, "T-002", id2)
	assert.Len(t, s.Submissions(), 2)
}
