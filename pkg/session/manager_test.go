package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/domaindetect/pkg/adapters/memory"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/aretw0/domaindetect/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	manager := session.NewManager(domain.DefaultConfig(), session.Dependencies{
		Loader:  library(),
		Aligner: memory.NewAligner(),
	})

	s1, err := manager.Create(nil)
	require.NoError(t, err)
	s2, err := manager.Create(nil)
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID(), s2.ID())
	assert.Len(t, manager.List(), 2)

	got, err := manager.Get(s1.ID())
	require.NoError(t, err)
	assert.Same(t, s1, got)

	require.NoError(t, manager.Delete(ctx, s1.ID()))
	_, err = manager.Get(s1.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, manager.Delete(ctx, s1.ID()), domain.ErrSessionNotFound)
	assert.Equal(t, []string{s2.ID()}, manager.List())
}

func TestManager_CreateWithConfig(t *testing.T) {
	manager := session.NewManager(domain.DefaultConfig(), session.Dependencies{
		Loader:  library(),
		Aligner: memory.NewAligner(),
	})

	cfg := domain.DefaultConfig()
	cfg.BoundaryPolicy = domain.BoundaryMax
	s, err := manager.Create(&cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.BoundaryMax, s.Config().BoundaryPolicy)

	cfg.UpperSortingThreshold = 1
	_, err = manager.Create(&cfg)
	assert.Error(t, err)
	assert.Len(t, manager.List(), 1)
}

func TestManager_DoSerializes(t *testing.T) {
	ctx := context.Background()
	manager := session.NewManager(domain.DefaultConfig(), session.Dependencies{
		Loader:  library(),
		Aligner: memory.NewAligner(),
	})
	s, err := manager.Create(nil)
	require.NoError(t, err)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Do(ctx, s.ID(), func(ctx context.Context, _ *session.Session) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)

	err = manager.Do(ctx, "missing", func(context.Context, *session.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
