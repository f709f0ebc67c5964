package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/wizard/pkg/adapters/memory"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/persistence/middleware"
	"github.com/aretw0/wizard/pkg/ports"
	contract "github.com/aretw0/wizard/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	contract.RunSessionStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	s := domain.NewSession("micro-credit")
	s.CurrentStep = 2
	s.Answers["cin_number"] = "09876543"
	require.NoError(t, secure.Save(ctx, "k", s))

	raw, err := underlying.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "micro-credit", raw.GuideID)
	assert.Equal(t, 0, raw.CurrentStep)
	assert.NotContains(t, raw.Answers, "cin_number")
	assert.Contains(t, raw.Answers, "__encrypted__")

	loaded, err := secure.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.CurrentStep)
	assert.Equal(t, "09876543", loaded.Answers["cin_number"])
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	s := domain.NewSession("g1")
	s.Answers["data"] = "encrypted-with-old-key"
	require.NoError(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlying).Save(ctx, "k", s))

	rotated := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})(underlying)
	loaded, err := rotated.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "encrypted-with-old-key", loaded.Answers["data"])

	withoutFallback := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	_, err = withoutFallback.Load(ctx, "k")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainSession(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "k", domain.NewSession("g1")))

	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(ctx, "k")
	assert.ErrorIs(t, err, middleware.ErrMissingEnvelope)
}

func TestNewEncryptionMiddleware_KeyLength(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	var calls []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.SessionStore) ports.SessionStore {
			return recording{SessionStore: next, name: name, calls: &calls}
		}
	}

	store := middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	require.NoError(t, store.Save(context.Background(), "k", domain.NewSession("g1")))
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

type recording struct {
	ports.SessionStore
	name  string
	calls *[]string
}

func (r recording) Save(ctx context.Context, key string, s *domain.Session) error {
	*r.calls = append(*r.calls, r.name)
	return r.SessionStore.Save(ctx, key, s)
}
