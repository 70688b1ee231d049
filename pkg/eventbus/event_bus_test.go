package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan models.Event) models.Event {
	t.Helper()

	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	return models.Event{}
}

func TestBus_SubscribeAndPublish(t *testing.T) {
	t.Parallel()

	bus := New()
	defer func() { _ = bus.Close() }()

	received := make(chan models.Event, 10)
	require.NoError(t, bus.Subscribe(models.EventTypeFTTransfer, received))

	bus.Publish(models.Event{
		Type:      models.EventTypeFTTransfer,
		Height:    100,
		Timestamp: time.Now(),
		Data:      &models.TokenTransfer{FromAddress: "0xABC"},
	})

	evt := receive(t, received)
	assert.Equal(t, models.EventTypeFTTransfer, evt.Type)
	assert.Equal(t, uint64(100), evt.Height)
	assert.Equal(t, "0xABC", evt.Data.(*models.TokenTransfer).FromAddress)
}

func TestBus_MultipleSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()

	ch1 := make(chan models.Event, 10)
	ch2 := make(chan models.Event, 10)
	require.NoError(t, bus.Subscribe(models.EventTypeFTTransfer, ch1))
	require.NoError(t, bus.Subscribe(models.EventTypeFTTransfer, ch2))

	bus.Publish(models.Event{Type: models.EventTypeFTTransfer, Height: 1})

	assert.Equal(t, uint64(1), receive(t, ch1).Height)
	assert.Equal(t, uint64(1), receive(t, ch2).Height)
}

func TestBus_TypeFiltering(t *testing.T) {
	t.Parallel()

	bus := New()

	ftCh := make(chan models.Event, 10)
	nftCh := make(chan models.Event, 10)
	require.NoError(t, bus.Subscribe(models.EventTypeFTTransfer, ftCh))
	require.NoError(t, bus.Subscribe(models.EventTypeNFTTransfer, nftCh))

	bus.Publish(models.Event{Type: models.EventTypeFTTransfer, Height: 1})

	receive(t, ftCh)

	select {
	case <-nftCh:
		t.Fatal("nft subscriber received an ft.transfer event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	bus := New()

	received := make(chan models.Event, 100)
	require.NoError(t, bus.Subscribe(models.EventTypeFTTransfer, received))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)

		go func(h uint64) {
			defer wg.Done()
			bus.Publish(models.Event{Type: models.EventTypeFTTransfer, Height: h})
		}(uint64(i))
	}

	wg.Wait()

	assert.Len(t, received, 50)

	stats := bus.Stats()
	assert.Equal(t, uint64(50), stats.Published)
	assert.Equal(t, uint64(50), stats.Delivered)
	assert.Zero(t, stats.Dropped)
}

func TestBus_PerSinkOrder(t *testing.T) {
	t.Parallel()

	bus := New()

	received := make(chan models.Event, 10)
	require.NoError(t, bus.Subscribe(models.EventTypeEVMTransaction, received))

	for h := uint64(1); h <= 5; h++ {
		bus.Publish(models.Event{Type: models.EventTypeEVMTransaction, Height: h})
	}

	for h := uint64(1); h <= 5; h++ {
		assert.Equal(t, h, receive(t, received).Height)
	}
}

func TestBus_FullSinkDropsWithoutBlocking(t *testing.T) {
	t.Parallel()

	bus := New()

	slow := make(chan models.Event, 1)
	fast := make(chan models.Event, 10)
	require.NoError(t, bus.Subscribe(models.EventTypeDefiSwap, slow))
	require.NoError(t, bus.Subscribe(models.EventTypeDefiSwap, fast))

	done := make(chan struct{})

	go func() {
		for h := uint64(1); h <= 3; h++ {
			bus.Publish(models.Event{Type: models.EventTypeDefiSwap, Height: h})
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, slow, 1)
	assert.Len(t, fast, 3)
	assert.Equal(t, uint64(1), receive(t, slow).Height)

	assert.Equal(t, uint64(2), bus.Dropped())
	assert.Equal(t, map[string]uint64{models.EventTypeDefiSwap: 2}, bus.Stats().DroppedByType)
}

func TestBus_NoSubscribers(t *testing.T) {
	t.Parallel()

	bus := New()
	bus.Publish(models.Event{Type: models.EventTypeBalanceCheck})

	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Zero(t, stats.Delivered)
	assert.Empty(t, stats.DroppedByType)
}

func TestBus_Close(t *testing.T) {
	t.Parallel()

	bus := New()

	received := make(chan models.Event, 10)
	require.NoError(t, bus.Subscribe(models.EventTypeFTTransfer, received))

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	bus.Publish(models.Event{Type: models.EventTypeFTTransfer, Height: 1})
	assert.Empty(t, received)

	err := bus.Subscribe(models.EventTypeFTTransfer, make(chan models.Event, 1))
	assert.ErrorIs(t, err, ErrBusClosed)
}
