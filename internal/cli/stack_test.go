package cli

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/wizard/internal/config"
	"github.com/aretw0/wizard/internal/logging"
	"github.com/aretw0/wizard/internal/testutils"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const attestationDoc = `---
id: attestation
title: Attestation de résidence
service_type: municipal
steps:
  - title: Demande
    fields:
      - name: full_name
        type: text
        required: true
---
`

func TestBuild_OfflineStack(t *testing.T) {
	cfg := config.Default()
	cfg.GuidesDir = testutils.GuideDir(t, map[string]string{"attestation.md": attestationDoc})
	cfg.Store.Driver = config.DriverMemory

	s, err := Build(cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	wz, err := s.Engine.Load(ctx, "attestation")
	require.NoError(t, err)
	require.NoError(t, wz.SetAnswer("full_name", "Ali"))

	res, err := wz.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T-001", res.TrackingID)

	families, err := s.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "wizard_submissions_total")
}

func TestBuild_MissingGuidesDir(t *testing.T) {
	cfg := config.Default()
	cfg.GuidesDir = filepath.Join(t.TempDir(), "missing")
	cfg.Store.Driver = config.DriverMemory

	_, err := Build(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestOpenStore_EncryptedSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "sessions.db")
	cfg.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	s, err := OpenStore(cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	sess := domain.NewSession("attestation")
	sess.Answers["full_name"] = "Ali"
	require.NoError(t, s.Store.Save(ctx, "alice:guide_progress_attestation", sess))

	got, err := s.Store.Load(ctx, "alice:guide_progress_attestation")
	require.NoError(t, err)
	assert.Equal(t, "Ali", got.Answers["full_name"])
	assert.Nil(t, s.Locker)
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Driver = config.DriverRedis
	cfg.Store.RedisAddr = mr.Addr()

	s, err := OpenStore(cfg, logging.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.Locker)
	keys, err := s.Store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "etcd"

	_, err := OpenStore(cfg, logging.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalid)
}
