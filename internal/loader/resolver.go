package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapstar/internal/warehouse"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// surrogateNamespace scopes every surrogate key generated by leapstar.
var surrogateNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://leapstack.dev/leapstar/surrogate"))

// DimensionResolver appends dimension rows for natural keys seen for the
// first time and maps natural keys to surrogates.
type DimensionResolver struct {
	store  *warehouse.DimensionStore
	logger *slog.Logger
}

// NewDimensionResolver creates a resolver backed by store.
func NewDimensionResolver(store *warehouse.DimensionStore, logger *slog.Logger) *DimensionResolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DimensionResolver{store: store, logger: logger}
}

// Name returns the dimension name.
func (r *DimensionResolver) Name() string {
	return r.store.Spec().Name
}

// SurrogateKey returns the surrogate assigned to key in dimension.
// It depends only on its inputs, so the same key always maps to the same
// surrogate.
func SurrogateKey(dimension string, key core.NaturalKey) string {
	return uuid.NewSHA1(surrogateNamespace, []byte(dimension+"\x1e"+key.String())).String()
}

// NaturalKeyOf extracts the natural key of row, reporting every missing
// attribute.
func (r *DimensionResolver) NaturalKeyOf(row core.StagingRow) (core.NaturalKey, []*core.ValidationError) {
	spec := r.store.Spec()
	key := make(core.NaturalKey, len(spec.NaturalKey))
	var errs []*core.ValidationError
	for i, attr := range spec.NaturalKey {
		v, ok := row.TrimmedField(attr.Field)
		if !ok {
			errs = append(errs, &core.ValidationError{
				Phase:  core.PhaseDimension,
				Row:    row.Row,
				Field:  attr.Field,
				Reason: fmt.Sprintf("is required for the %s natural key", spec.Name),
			})
			continue
		}
		key[i] = v
	}
	return key, errs
}

// Resolve appends a row for every distinct natural key in rows that the
// dimension table does not hold yet. The first row carrying a key is its
// representative. It returns the number of rows created.
func (r *DimensionResolver) Resolve(ctx context.Context, q core.Querier, rows []core.StagingRow, runID string, loadedAt time.Time) (int, error) {
	spec := r.store.Spec()

	var errs core.ValidationErrors
	seen := make(map[string]struct{})
	var distinct []core.NaturalKey
	for _, row := range rows {
		key, keyErrs := r.NaturalKeyOf(row)
		if len(keyErrs) > 0 {
			errs = append(errs, keyErrs...)
			continue
		}
		k := key.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		distinct = append(distinct, key)
	}
	if len(errs) > 0 {
		return 0, errs
	}

	existing, err := r.store.Keys(ctx, q)
	if err != nil {
		return 0, err
	}

	var created []core.DimensionRow
	for _, key := range distinct {
		if _, ok := existing[key.String()]; ok {
			continue
		}
		created = append(created, core.DimensionRow{
			SurrogateKey: SurrogateKey(spec.Name, key),
			NaturalKey:   key,
		})
	}

	if err := r.store.Insert(ctx, q, created, runID, loadedAt); err != nil {
		return 0, err
	}

	r.logger.Debug("resolved dimension",
		slog.String("dimension", spec.Name),
		slog.Int("distinct_keys", len(distinct)),
		slog.Int("existing", len(distinct)-len(created)),
		slog.Int("created", len(created)))

	return len(created), nil
}

// Lookup returns the natural key to surrogate mapping of the dimension.
func (r *DimensionResolver) Lookup(ctx context.Context, q core.Querier) (map[string]string, error) {
	return r.store.Keys(ctx, q)
}
