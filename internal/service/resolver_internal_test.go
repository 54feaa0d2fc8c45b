package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/addr2coo/internal/geocoding"
	"github.com/UnknownOlympus/addr2coo/internal/metrics"
	"github.com/UnknownOlympus/addr2coo/internal/models"
	"github.com/UnknownOlympus/addr2coo/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func record(address string, lon, lat float64) models.AddressRecord {
	return models.NewAddressRecord(address, models.Coordinates{Longitude: lon, Latitude: lat})
}

type resolverFixture struct {
	input    *mocks.InputReader
	output   *mocks.OutputStore
	provider *mocks.Provider
	metrics  *metrics.Metrics
	sleeps   []time.Duration
	resolver *Resolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	fx := &resolverFixture{
		input:    mocks.NewInputReader(t),
		output:   mocks.NewOutputStore(t),
		provider: mocks.NewProvider(t),
		metrics:  metrics.NewMetrics(prometheus.NewRegistry()),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	fx.resolver = NewResolver(logger, fx.input, fx.output, fx.provider, "mapbox", fx.metrics, DefaultRequestDelay)
	fx.resolver.sleep = func(ctx context.Context, d time.Duration) error {
		fx.sleeps = append(fx.sleeps, d)
		return ctx.Err()
	}

	return fx
}

func TestResolverRun(t *testing.T) {
	t.Run("resolves new addresses once each", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()

		fx.input.On("ReadAddresses", ctx).Return([]string{"A", " B ", "A", "B"}, nil).Once()
		fx.output.On("Load", ctx).Return(models.OutputSet{Found: false}, nil).Once()
		fx.provider.On("Geocode", ctx, "A").Return(&models.Coordinates{Longitude: 1, Latitude: 2}, nil).Once()
		fx.provider.On("Geocode", ctx, "B").Return(&models.Coordinates{Longitude: 3, Latitude: 4}, nil).Once()
		fx.output.On("Save", mock.Anything, []models.AddressRecord{record("A", 1, 2), record("B", 3, 4)}).
			Return(nil).Once()

		summary, err := fx.resolver.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, Summary{Total: 4, Resolved: 2, SkippedDuplicate: 2, Written: 2}, summary)
		assert.Equal(t, []time.Duration{DefaultRequestDelay, DefaultRequestDelay}, fx.sleeps)
		assert.InDelta(t, 2, testutil.ToFloat64(fx.metrics.AddressesTotal.WithLabelValues(metrics.OutcomeResolved)), 0)
		assert.InDelta(t, 2, testutil.ToFloat64(fx.metrics.RecordsWritten), 0)
	})

	t.Run("prior rows first, new rows appended", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()
		existing := models.OutputSet{Records: []models.AddressRecord{record("A", 1, 2)}, Found: true}

		fx.input.On("ReadAddresses", ctx).Return([]string{"A", "B"}, nil).Once()
		fx.output.On("Load", ctx).Return(existing, nil).Once()
		fx.provider.On("Geocode", ctx, "B").Return(&models.Coordinates{Longitude: 3, Latitude: 4}, nil).Once()
		fx.output.On("Save", mock.Anything, []models.AddressRecord{record("A", 1, 2), record("B", 3, 4)}).
			Return(nil).Once()

		summary, err := fx.resolver.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, summary.SkippedDone)
		assert.Equal(t, 1, summary.Resolved)
		assert.Equal(t, 2, summary.Written)
	})

	t.Run("a failed lookup does not stop the run", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()

		fx.input.On("ReadAddresses", ctx).Return([]string{"A", "B", "C"}, nil).Once()
		fx.output.On("Load", ctx).Return(models.OutputSet{}, nil).Once()
		fx.provider.On("Geocode", ctx, "A").Return(&models.Coordinates{Longitude: 1, Latitude: 1}, nil).Once()
		fx.provider.On("Geocode", ctx, "B").Return(nil, geocoding.ErrMapboxEmptyResponse).Once()
		fx.provider.On("Geocode", ctx, "C").Return(&models.Coordinates{Longitude: 3, Latitude: 3}, nil).Once()
		fx.output.On("Save", mock.Anything, []models.AddressRecord{record("A", 1, 1), record("C", 3, 3)}).
			Return(nil).Once()

		summary, err := fx.resolver.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, summary.NotFound)
		assert.Equal(t, 2, summary.Resolved)
		assert.Len(t, fx.sleeps, 3, "the delay follows failed lookups too")
		assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.ProviderErrors), 0)
	})

	t.Run("nil coordinates count as not found", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()

		fx.input.On("ReadAddresses", ctx).Return([]string{"A"}, nil).Once()
		fx.output.On("Load", ctx).Return(models.OutputSet{}, nil).Once()
		fx.provider.On("Geocode", ctx, "A").Return(nil, nil).Once()

		summary, err := fx.resolver.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, summary.NotFound)
		fx.output.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("nothing new leaves the output untouched", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()
		existing := models.OutputSet{Records: []models.AddressRecord{record("A", 1, 2)}, Found: true}

		fx.input.On("ReadAddresses", ctx).Return([]string{"A", "  A", "", "   "}, nil).Once()
		fx.output.On("Load", ctx).Return(existing, nil).Once()

		summary, err := fx.resolver.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, Summary{Total: 4, SkippedDone: 2, SkippedBlank: 2}, summary)
		assert.Empty(t, fx.sleeps)
		fx.output.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		fx.provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})

	t.Run("input failure aborts before anything else", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()

		fx.input.On("ReadAddresses", ctx).Return(nil, os.ErrNotExist).Once()

		_, err := fx.resolver.Run(ctx)

		require.ErrorIs(t, err, os.ErrNotExist)
		require.ErrorContains(t, err, "failed to read input addresses")
		fx.output.AssertNotCalled(t, "Load", mock.Anything)
	})

	t.Run("output failure aborts before any lookup", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()

		fx.input.On("ReadAddresses", ctx).Return([]string{"A"}, nil).Once()
		fx.output.On("Load", ctx).Return(models.OutputSet{}, assert.AnError).Once()

		_, err := fx.resolver.Run(ctx)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to load existing output")
	})

	t.Run("save failure is returned", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx := t.Context()

		fx.input.On("ReadAddresses", ctx).Return([]string{"A"}, nil).Once()
		fx.output.On("Load", ctx).Return(models.OutputSet{}, nil).Once()
		fx.provider.On("Geocode", ctx, "A").Return(&models.Coordinates{Longitude: 1, Latitude: 1}, nil).Once()
		fx.output.On("Save", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		summary, err := fx.resolver.Run(ctx)

		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 0, summary.Written)
	})

	t.Run("interruption keeps the records resolved so far", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		fx.input.On("ReadAddresses", ctx).Return([]string{"A", "B"}, nil).Once()
		fx.output.On("Load", ctx).Return(models.OutputSet{}, nil).Once()
		fx.provider.On("Geocode", ctx, "A").
			Run(func(_ mock.Arguments) { cancel() }).
			Return(&models.Coordinates{Longitude: 1, Latitude: 1}, nil).Once()
		fx.output.On("Save", mock.Anything, []models.AddressRecord{record("A", 1, 1)}).Return(nil).Once()

		summary, err := fx.resolver.Run(ctx)

		require.NoError(t, err)
		assert.True(t, summary.Interrupted)
		assert.Equal(t, 1, summary.Resolved)
		fx.provider.AssertNotCalled(t, "Geocode", mock.Anything, "B")
	})

	t.Run("lookup cancelled mid-request is not counted as not found", func(t *testing.T) {
		fx := newResolverFixture(t)
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		fx.input.On("ReadAddresses", ctx).Return([]string{"A", "B"}, nil).Once()
		fx.output.On("Load", ctx).Return(models.OutputSet{}, nil).Once()
		fx.provider.On("Geocode", ctx, "A").
			Run(func(_ mock.Arguments) { cancel() }).
			Return(nil, context.Canceled).Once()

		summary, err := fx.resolver.Run(ctx)

		require.NoError(t, err)
		assert.True(t, summary.Interrupted)
		assert.Equal(t, 0, summary.NotFound)
		fx.output.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestMerge(t *testing.T) {
	existing := []models.AddressRecord{record("A", 1, 2)}

	t.Run("appends after existing rows", func(t *testing.T) {
		merged := Merge(existing, []models.AddressRecord{record("B", 3, 4)})

		assert.Equal(t, []models.AddressRecord{record("A", 1, 2), record("B", 3, 4)}, merged)
	})

	t.Run("existing rows win", func(t *testing.T) {
		merged := Merge(existing, []models.AddressRecord{record("A", 9, 9), record("B", 3, 4), record("B", 5, 6)})

		assert.Equal(t, []models.AddressRecord{record("A", 1, 2), record("B", 3, 4)}, merged)
	})

	t.Run("does not alias the existing slice", func(t *testing.T) {
		base := make([]models.AddressRecord, 1, 4)
		base[0] = record("A", 1, 2)

		merged := Merge(base, []models.AddressRecord{record("B", 3, 4)})
		merged[0].Address = "changed"

		assert.Equal(t, "A", base[0].Address)
	})
}

func TestSleepContext(t *testing.T) {
	t.Run("zero delay", func(t *testing.T) {
		require.NoError(t, sleepContext(t.Context(), 0))
	})

	t.Run("waits", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, sleepContext(t.Context(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	})
}
