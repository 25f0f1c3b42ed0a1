package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"parkslot/internal/database"
	"parkslot/internal/events"
	"parkslot/internal/models"
	"parkslot/internal/repository"
	"parkslot/internal/slots"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	alice     = models.Requester{Name: "Alice", Email: "alice@example.com", Phone: "555-0101", VehicleNumber: "KA01AB1234"}
)

type fixture struct {
	slotStore repository.SlotStore
	bookings  repository.BookingStore
	manager   *Manager
	admin     *AdminService
	bus       *events.Bus
}

func sequentialIDs() IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("BKG-%06d", n.Add(1))
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	return newFixtureOn(t, repository.NewMemorySlotStore(&logger), repository.NewMemoryBookingStore(&logger))
}

// newSQLiteFixture runs the same wiring against a throwaway SQLite file.
func newSQLiteFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "parkslot.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newFixtureOn(t, database.NewSlotStore(db), database.NewBookingStore(db))
}

func newFixtureOn(t *testing.T, slotStore repository.SlotStore, bookings repository.BookingStore) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	_, err := repository.Seed(ctx, slotStore, repository.ProfileDev)
	require.NoError(t, err)

	bus := events.NewBus(&logger)
	mgr := NewManager(slots.NewManager(slotStore, &logger), bookings, &logger,
		WithEventBus(bus),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return testStart }),
	)
	return &fixture{
		slotStore: slotStore,
		bookings:  bookings,
		manager:   mgr,
		admin:     NewAdminService(slotStore, mgr, &logger),
		bus:       bus,
	}
}

// assertAvailabilityMatchesBookings checks that a booked-through slot is
// available exactly when no ACTIVE booking references it. Slots no booking
// ever touched keep their seeded flag and are skipped.
func assertAvailabilityMatchesBookings(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	all, err := f.slotStore.FindAll(ctx)
	require.NoError(t, err)
	bookings, err := f.bookings.FindAll(ctx)
	require.NoError(t, err)

	for _, slot := range all {
		active, referenced := 0, false
		for _, b := range bookings {
			if !slot.SameID(b.SlotID) {
				continue
			}
			referenced = true
			if b.Status == models.StatusActive {
				active++
			}
		}
		if !referenced {
			continue
		}
		assert.LessOrEqual(t, active, 1, "slot %s", slot.ID)
		assert.Equal(t, active == 0, slot.Available, "slot %s", slot.ID)
	}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.manager.CreateBooking(ctx, alice, "c-101", testStart, testStart.Add(2*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, "BKG-000001", b.ID)
		assert.Equal(t, "C-101", b.SlotID)
		assert.Equal(t, models.StatusActive, b.Status)
		assert.Equal(t, 100.0, b.TotalAmount)
		assert.Equal(t, alice, b.Requester)
		assert.Equal(t, testStart, b.CreatedAt)

		slot, _ := f.slotStore.FindByID(ctx, "C-101")
		assert.False(t, slot.Available)
		assertAvailabilityMatchesBookings(t, f)
	})

	t.Run("SlotNotFound", func(t *testing.T) {
		f := newFixture(t)
		before, _ := f.slotStore.FindAll(ctx)

		_, err := f.manager.CreateBooking(ctx, alice, "Z-999", testStart, testStart.Add(time.Hour))
		assert.ErrorIs(t, err, models.ErrSlotNotFound)

		after, _ := f.slotStore.FindAll(ctx)
		assert.Equal(t, before, after)
		count, _ := f.bookings.Count(ctx)
		assert.Zero(t, count)
	})

	t.Run("SlotUnavailable", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)
		before, _ := f.slotStore.FindAll(ctx)

		_, err = f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
		assert.ErrorIs(t, err, models.ErrSlotUnavailable)

		_, err = f.manager.CreateBooking(ctx, alice, "B-202", testStart, testStart.Add(time.Hour))
		assert.ErrorIs(t, err, models.ErrSlotUnavailable)

		after, _ := f.slotStore.FindAll(ctx)
		assert.Equal(t, before, after)
		count, _ := f.bookings.Count(ctx)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Pricing", func(t *testing.T) {
		tests := []struct {
			name     string
			slotID   string
			duration time.Duration
			want     float64
		}{
			{"NinetyMinutesRoundsUp", "C-101", 90 * time.Minute, 100},
			{"UnderAnHourBillsOne", "C-102", 45 * time.Minute, 45},
			{"ExactHoursBike", "B-201", 3 * time.Hour, 60},
		}
		f := newFixture(t)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				b, err := f.manager.CreateBooking(ctx, alice, tt.slotID, testStart, testStart.Add(tt.duration))
				require.NoError(t, err)
				assert.Equal(t, tt.want, b.TotalAmount)
			})
		}
	})

	t.Run("FortyFiveMinutesAtFifty", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(45*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 50.0, b.TotalAmount)
	})

	t.Run("PublishesEvent", func(t *testing.T) {
		f := newFixture(t)
		var got []events.Event
		f.bus.Subscribe(events.BookingCreated, func(e events.Event) error {
			got = append(got, e)
			return nil
		})

		b, err := f.manager.CreateBooking(ctx, alice, "B-201", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].BookingID)
		assert.Equal(t, models.CategoryBike, got[0].Category)
	})
}

func TestCreateBookingConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, models.ErrSlotUnavailable):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(49), rejected.Load())
	assertAvailabilityMatchesBookings(t, f)
}

func TestCancelAndComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("CancelTwiceIsIdempotent", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)

		got, err := f.manager.CancelBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assertAvailabilityMatchesBookings(t, f)

		got, err = f.manager.CancelBooking(ctx, b.ID)
		assert.ErrorIs(t, err, models.ErrAlreadyTerminal)
		require.NotNil(t, got)
		assert.Equal(t, models.StatusCancelled, got.Status)

		slot, _ := f.slotStore.FindByID(ctx, "C-101")
		assert.True(t, slot.Available)
	})

	t.Run("CompleteTwiceIsIdempotent", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.manager.CreateBooking(ctx, alice, "B-201", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)

		_, err = f.manager.CompleteBooking(ctx, b.ID)
		require.NoError(t, err)
		_, err = f.manager.CompleteBooking(ctx, b.ID)
		assert.ErrorIs(t, err, models.ErrAlreadyTerminal)

		stored, _ := f.bookings.FindByID(ctx, b.ID)
		assert.Equal(t, models.StatusCompleted, stored.Status)
		assertAvailabilityMatchesBookings(t, f)
	})

	t.Run("CompletedCannotBeCancelled", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.manager.CreateBooking(ctx, alice, "C-102", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)
		_, err = f.manager.CompleteBooking(ctx, b.ID)
		require.NoError(t, err)

		// Someone else books the freed slot.
		_, err = f.manager.CreateBooking(ctx, alice, "C-102", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)

		_, err = f.manager.CancelBooking(ctx, b.ID)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)

		stored, _ := f.bookings.FindByID(ctx, b.ID)
		assert.Equal(t, models.StatusCompleted, stored.Status)
		slot, _ := f.slotStore.FindByID(ctx, "C-102")
		assert.False(t, slot.Available)
		assertAvailabilityMatchesBookings(t, f)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.CancelBooking(ctx, "BKG-NOPE")
		assert.ErrorIs(t, err, models.ErrBookingNotFound)
		_, err = f.manager.CompleteBooking(ctx, "BKG-NOPE")
		assert.ErrorIs(t, err, models.ErrBookingNotFound)
	})

	t.Run("ReadThroughs", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)
		_, err = f.manager.CreateBooking(ctx, models.Requester{Phone: "555-0202"}, "C-102", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)

		mine, err := f.manager.BookingsByUser(ctx, " 555-0101 ")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, b.ID, mine[0].ID)

		all, err := f.manager.AllBookings(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		got, err := f.manager.BookingByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.SlotID, got.SlotID)
	})
}

func TestBookingLifecycleAcrossStores(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		build func(t *testing.T) *fixture
	}{
		{"Memory", newFixture},
		{"SQLite", newSQLiteFixture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.build(t)

			car, err := f.manager.CreateBooking(ctx, alice, "c-101", testStart, testStart.Add(90*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 100.0, car.TotalAmount)
			bike, err := f.manager.CreateBooking(ctx, alice, "B-201", testStart, testStart.Add(time.Hour))
			require.NoError(t, err)
			assertAvailabilityMatchesBookings(t, f)

			_, err = f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
			assert.ErrorIs(t, err, models.ErrSlotUnavailable)
			count, err := f.bookings.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			_, err = f.manager.CancelBooking(ctx, car.ID)
			require.NoError(t, err)
			assertAvailabilityMatchesBookings(t, f)

			_, err = f.manager.CompleteBooking(ctx, bike.ID)
			require.NoError(t, err)
			_, err = f.manager.CompleteBooking(ctx, bike.ID)
			assert.ErrorIs(t, err, models.ErrAlreadyTerminal)
			_, err = f.manager.CancelBooking(ctx, bike.ID)
			assert.ErrorIs(t, err, models.ErrInvalidTransition)
			assertAvailabilityMatchesBookings(t, f)

			_, err = f.manager.CancelBooking(ctx, "BKG-NOPE")
			assert.ErrorIs(t, err, models.ErrBookingNotFound)

			again, err := f.manager.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, models.StatusActive, again.Status)
			assertAvailabilityMatchesBookings(t, f)
		})
	}
}

func TestCreateBookingIDCollision(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	newStores := map[string]func(t *testing.T) (repository.SlotStore, repository.BookingStore){
		"Memory": func(t *testing.T) (repository.SlotStore, repository.BookingStore) {
			return repository.NewMemorySlotStore(&logger), repository.NewMemoryBookingStore(&logger)
		},
		"SQLite": func(t *testing.T) (repository.SlotStore, repository.BookingStore) {
			db, err := database.NewDB(filepath.Join(t.TempDir(), "parkslot.db"), &logger)
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return database.NewSlotStore(db), database.NewBookingStore(db)
		},
	}

	for name, build := range newStores {
		t.Run(name, func(t *testing.T) {
			t.Run("RegeneratesOnCollision", func(t *testing.T) {
				slotStore, bookings := build(t)
				_, err := repository.Seed(ctx, slotStore, repository.ProfileDev)
				require.NoError(t, err)

				ids := []string{"BKG-ABC123", "BKG-ABC123", "bkg-abc123", "BKG-DEF456"}
				var n atomic.Int32
				gen := func() string { return ids[int(n.Add(1))-1] }
				mgr := NewManager(slots.NewManager(slotStore, &logger), bookings, &logger, WithIDGenerator(gen))

				first, err := mgr.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
				require.NoError(t, err)
				second, err := mgr.CreateBooking(ctx, alice, "C-102", testStart, testStart.Add(time.Hour))
				require.NoError(t, err)
				assert.Equal(t, "BKG-ABC123", first.ID)
				assert.Equal(t, "BKG-DEF456", second.ID)

				_, err = mgr.CancelBooking(ctx, second.ID)
				require.NoError(t, err)
				slot, err := slotStore.FindByID(ctx, "C-102")
				require.NoError(t, err)
				assert.True(t, slot.Available)
			})

			t.Run("GivesUpAfterBoundedAttempts", func(t *testing.T) {
				slotStore, bookings := build(t)
				_, err := repository.Seed(ctx, slotStore, repository.ProfileDev)
				require.NoError(t, err)

				mgr := NewManager(slots.NewManager(slotStore, &logger), bookings, &logger,
					WithIDGenerator(func() string { return "BKG-ABC123" }))

				_, err = mgr.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
				require.NoError(t, err)
				_, err = mgr.CreateBooking(ctx, alice, "C-102", testStart, testStart.Add(time.Hour))
				assert.ErrorIs(t, err, models.ErrDuplicateBooking)

				slot, err := slotStore.FindByID(ctx, "C-102")
				require.NoError(t, err)
				assert.True(t, slot.Available)
				count, err := bookings.Count(ctx)
				require.NoError(t, err)
				assert.Equal(t, int64(1), count)
			})
		})
	}
}

// racingSlots lets every caller through the availability read, as happens
// when two processes hold different local locks on the same slot.
type racingSlots struct {
	*slots.Manager
}

func (r racingSlots) SlotByID(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := r.Manager.SlotByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slot.Available = true
	return slot, nil
}

type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func TestCreateBookingLostRaceRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newSQLiteFixture(t)
	logger := zerolog.New(io.Discard)
	mgr := NewManager(racingSlots{slots.NewManager(f.slotStore, &logger)}, f.bookings, &logger,
		WithLocker(noLock{}),
		WithIDGenerator(sequentialIDs()),
	)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, models.ErrSlotUnavailable):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(9), rejected.Load())
	assertAvailabilityMatchesBookings(t, f)
}

type mockSlots struct {
	mock.Mock
}

func (m *mockSlots) SlotByID(ctx context.Context, id string) (*models.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Slot), args.Error(1)
}

func (m *mockSlots) MarkBooked(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSlots) MarkAvailable(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type failingStatusStore struct {
	*repository.MemoryBookingStore
}

func (s failingStatusStore) UpdateStatus(context.Context, string, models.BookingStatus) error {
	return errors.New("disk full")
}

func TestCompensation(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	t.Run("MarkBookedFailureRemovesBooking", func(t *testing.T) {
		slotSvc := new(mockSlots)
		slot := models.NewCarSlot("C-101", "A1", 50, true, true, 15)
		slotSvc.On("SlotByID", mock.Anything, "C-101").Return(&slot, nil).Once()
		slotSvc.On("MarkBooked", mock.Anything, "C-101").Return(errors.New("store offline")).Once()

		bookings := repository.NewMemoryBookingStore(&logger)
		mgr := NewManager(slotSvc, bookings, &logger)

		_, err := mgr.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
		assert.Error(t, err)

		count, _ := bookings.Count(ctx)
		assert.Zero(t, count)
		slotSvc.AssertExpectations(t)
	})

	t.Run("StatusWriteFailureRestoresSlot", func(t *testing.T) {
		slotStore := repository.NewMemorySlotStore(&logger)
		_, err := repository.Seed(ctx, slotStore, repository.ProfileDev)
		require.NoError(t, err)
		bookings := failingStatusStore{repository.NewMemoryBookingStore(&logger)}
		mgr := NewManager(slots.NewManager(slotStore, &logger), bookings, &logger)

		b, err := mgr.CreateBooking(ctx, alice, "C-101", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)

		_, err = mgr.CancelBooking(ctx, b.ID)
		assert.Error(t, err)

		slot, _ := slotStore.FindByID(ctx, "C-101")
		assert.False(t, slot.Available)
		stored, _ := bookings.FindByID(ctx, b.ID)
		assert.Equal(t, models.StatusActive, stored.Status)
	})

	t.Run("ReleaseFailureLeavesBookingActive", func(t *testing.T) {
		slotSvc := new(mockSlots)
		slot := models.NewBikeSlot("B-201", "B1", 20, true, true, true)
		slotSvc.On("SlotByID", mock.Anything, "B-201").Return(&slot, nil).Once()
		slotSvc.On("MarkBooked", mock.Anything, "B-201").Return(nil).Once()
		slotSvc.On("MarkAvailable", mock.Anything, "B-201").Return(errors.New("timeout")).Once()

		bookings := repository.NewMemoryBookingStore(&logger)
		mgr := NewManager(slotSvc, bookings, &logger)

		b, err := mgr.CreateBooking(ctx, alice, "B-201", testStart, testStart.Add(time.Hour))
		require.NoError(t, err)

		_, err = mgr.CompleteBooking(ctx, b.ID)
		assert.Error(t, err)
		stored, _ := bookings.FindByID(ctx, b.ID)
		assert.Equal(t, models.StatusActive, stored.Status)
		slotSvc.AssertExpectations(t)
	})
}

func TestNewBookingID(t *testing.T) {
	re := regexp.MustCompile(`^BKG-[0-9A-F]{6}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, re, NewBookingID())
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.StatusActive, models.StatusCancelled))
	assert.True(t, CanTransition(models.StatusActive, models.StatusCompleted))
	assert.False(t, CanTransition(models.StatusCompleted, models.StatusCancelled))
	assert.False(t, CanTransition(models.StatusCancelled, models.StatusActive))
	assert.False(t, CanTransition(models.StatusCompleted, models.StatusCompleted))
}
