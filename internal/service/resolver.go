package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/addr2coo/internal/geocoding"
	"github.com/UnknownOlympus/addr2coo/internal/metrics"
	"github.com/UnknownOlympus/addr2coo/internal/models"
	"github.com/UnknownOlympus/addr2coo/internal/repository"
)

// DefaultRequestDelay is the pause after every provider lookup.
const DefaultRequestDelay = 200 * time.Millisecond

// Summary describes the outcome of a single run.
type Summary struct {
	Total            int  // Total is the number of input rows.
	Resolved         int  // Resolved is the number of new records produced.
	NotFound         int  // NotFound is the number of lookups without a usable result.
	SkippedDone      int  // SkippedDone counts addresses already present in the output.
	SkippedDuplicate int  // SkippedDuplicate counts repeats within this run's input.
	SkippedBlank     int  // SkippedBlank counts rows with an empty address.
	Written          int  // Written is the size of the saved output set, 0 if nothing was saved.
	Interrupted      bool // Interrupted is set when the context was cancelled before the input was exhausted.
}

// Resolver resolves new input addresses through a geocoding provider and appends
// them to the persisted output set. Addresses already in the output are never queried again,
// which makes a run resumable after partial completion.
type Resolver struct {
	log          *slog.Logger
	input        repository.InputReader
	output       repository.OutputStore
	provider     geocoding.Provider
	providerName string
	metrics      *metrics.Metrics
	requestDelay time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a new instance of Resolver.
// A negative requestDelay is treated as zero.
func NewResolver(
	log *slog.Logger,
	input repository.InputReader,
	output repository.OutputStore,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	requestDelay time.Duration,
) *Resolver {
	return &Resolver{
		log:          log,
		input:        input,
		output:       output,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		requestDelay: max(requestDelay, 0),
		sleep:        sleepContext,
	}
}

// Run performs one pass over the input.
//
// Failing to read the input or the existing output aborts the run before anything is
// queried. A lookup failure only affects its own address. The output is saved only when
// at least one new record was produced. If ctx is cancelled between lookups, the records
// resolved so far are still saved and the summary is marked as interrupted.
func (r *Resolver) Run(ctx context.Context) (Summary, error) {
	addresses, err := r.input.ReadAddresses(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to read input addresses: %w", err)
	}

	existing, err := r.output.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load existing output: %w", err)
	}

	r.log.InfoContext(ctx, "Starting run", "input", len(addresses), "existing", len(existing.Records),
		"output_found", existing.Found)

	summary := Summary{Total: len(addresses)}
	done := existing.Addresses()
	seen := make(map[string]struct{})
	var results []models.AddressRecord

	for idx, raw := range addresses {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		address := strings.TrimSpace(raw)

		if address == "" {
			r.log.DebugContext(ctx, "Blank address in input, skipped")
			r.count(metrics.OutcomeSkippedBlank)
			summary.SkippedBlank++
			continue
		}
		if _, ok := done[address]; ok {
			r.log.InfoContext(ctx, "Already exists in output, skipped", "address", address)
			r.count(metrics.OutcomeSkippedDone)
			summary.SkippedDone++
			continue
		}
		if _, ok := seen[address]; ok {
			r.log.InfoContext(ctx, "Duplicate address in input, skipped", "address", address)
			r.count(metrics.OutcomeSkippedDuplicate)
			summary.SkippedDuplicate++
			continue
		}
		seen[address] = struct{}{}

		coords, errGeo := r.resolve(ctx, address)
		switch {
		case errGeo != nil && ctx.Err() != nil:
			summary.Interrupted = true
		case errGeo != nil:
			r.log.WarnContext(ctx, "Address not found", "address", address, "error", errGeo)
			r.count(metrics.OutcomeNotFound)
			summary.NotFound++
		default:
			r.log.InfoContext(ctx, "Address resolved", "address", address,
				"longitude", coords.Longitude, "latitude", coords.Latitude)
			r.count(metrics.OutcomeResolved)
			results = append(results, models.NewAddressRecord(address, *coords))
			summary.Resolved++
		}

		if summary.Interrupted {
			break
		}
		if err = r.sleep(ctx, r.requestDelay); err != nil {
			summary.Interrupted = idx < len(addresses)-1
			break
		}
	}

	if summary.Interrupted {
		r.log.WarnContext(ctx, "Run interrupted, keeping records resolved so far", "resolved", len(results))
	}

	if len(results) == 0 {
		r.log.InfoContext(ctx, "No new data added, output left untouched")
		return summary, nil
	}

	merged := Merge(existing.Records, results)

	// Saving must not be skipped because of the cancellation that interrupted the loop.
	if err = r.output.Save(context.WithoutCancel(ctx), merged); err != nil {
		return summary, fmt.Errorf("failed to save output: %w", err)
	}

	summary.Written = len(merged)
	r.metrics.RecordsWritten.Set(float64(summary.Written))
	r.log.InfoContext(ctx, "Output saved", "added", len(results), "total", summary.Written)

	return summary, nil
}

// resolve queries the provider and records the request duration.
func (r *Resolver) resolve(ctx context.Context, address string) (*models.Coordinates, error) {
	startTime := time.Now()
	coords, err := r.provider.Geocode(ctx, address)
	r.metrics.RequestSeconds.WithLabelValues(r.providerName).Observe(time.Since(startTime).Seconds())

	if err != nil {
		r.metrics.ProviderErrors.Inc()
		return nil, err
	}
	if coords == nil {
		r.metrics.ProviderErrors.Inc()
		return nil, fmt.Errorf("provider %s returned no coordinates", r.providerName)
	}

	return coords, nil
}

func (r *Resolver) count(outcome string) {
	r.metrics.AddressesTotal.WithLabelValues(outcome).Inc()
}

// Merge appends added to existing. Existing records keep their order and content;
// added records whose address is already present are dropped.
func Merge(existing, added []models.AddressRecord) []models.AddressRecord {
	merged := make([]models.AddressRecord, 0, len(existing)+len(added))
	merged = append(merged, existing...)

	present := make(map[string]struct{}, len(merged))
	for _, rec := range existing {
		present[rec.Address] = struct{}{}
	}

	for _, rec := range added {
		if _, ok := present[rec.Address]; ok {
			continue
		}
		present[rec.Address] = struct{}{}
		merged = append(merged, rec)
	}

	return merged
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
