package slots

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"parkslot/internal/models"
	"parkslot/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store := repository.NewMemorySlotStore(&logger)
	_, err := repository.Seed(context.Background(), store, repository.ProfileDev)
	require.NoError(t, err)
	return NewManager(store, &logger)
}

func TestManagerQueries(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	all, err := m.AllSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	cars, err := m.AvailableByType(ctx, "CAR")
	require.NoError(t, err)
	require.Len(t, cars, 2)
	assert.Equal(t, "C-101", cars[0].ID)
	assert.Equal(t, "C-102", cars[1].ID)

	slot, err := m.SlotByID(ctx, "b-201")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryBike, slot.Kind())
}

func TestManagerMarkBookedAndAvailable(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.MarkBooked(ctx, "C-101"))
	slot, _ := m.SlotByID(ctx, "C-101")
	assert.False(t, slot.Available)

	cars, _ := m.AvailableByType(ctx, models.CategoryCar)
	require.Len(t, cars, 1)
	assert.Equal(t, "C-102", cars[0].ID)

	require.NoError(t, m.MarkAvailable(ctx, "c-101"))
	slot, _ = m.SlotByID(ctx, "C-101")
	assert.True(t, slot.Available)

	// Variant attributes survive the flag change.
	features, ok := slot.Features.(models.CarFeatures)
	require.True(t, ok)
	assert.True(t, features.HasChargingStation)
	assert.Equal(t, 15, features.MaxLengthFt)
}

func TestManagerMarkMissingSlot(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.MarkBooked(ctx, "Z-999"), models.ErrSlotNotFound)
	assert.ErrorIs(t, m.MarkAvailable(ctx, "Z-999"), models.ErrSlotNotFound)
}

func TestManagerMarkBookedIsCompareAndSet(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	t.Run("SecondMarkRejected", func(t *testing.T) {
		require.NoError(t, m.MarkBooked(ctx, "C-102"))
		assert.ErrorIs(t, m.MarkBooked(ctx, "c-102"), models.ErrSlotUnavailable)
	})

	t.Run("ConcurrentWithoutLock", func(t *testing.T) {
		var (
			wg  sync.WaitGroup
			won atomic.Int32
		)
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if m.MarkBooked(ctx, "C-101") == nil {
					won.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), won.Load())
	})
}
