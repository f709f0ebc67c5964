package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/wizard/pkg/adapters/memory"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, key, domain.NewSession("g1"))
		_ = mgr.Delete(ctx, key)
	}

	assert.Equal(t, 0, mgr.activeLocks(), "lock entries must be released once unused")
}
