package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapstar/internal/warehouse"
	"github.com/leapstack-labs/leapstar/pkg/core"
)

// FactLoader casts staging rows into fact rows and appends them.
type FactLoader struct {
	store                *warehouse.FactStore
	resolvers            []*DimensionResolver
	policy               core.FactPolicy
	maxOrderNumberLength int
	logger               *slog.Logger
}

// FactStats counts what a fact load did.
type FactStats struct {
	Appended  int
	Collapsed int
	Skipped   int
}

// NewFactLoader creates a fact loader. resolvers must be the ones run before
// it in the same transaction.
func NewFactLoader(store *warehouse.FactStore, resolvers []*DimensionResolver, policy core.FactPolicy, maxOrderNumberLength int, logger *slog.Logger) *FactLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policy == "" {
		policy = core.FactPolicySkip
	}
	return &FactLoader{
		store:                store,
		resolvers:            resolvers,
		policy:               policy,
		maxOrderNumberLength: maxOrderNumberLength,
		logger:               logger,
	}
}

// pendingFact is a cast fact with the staging row it came from.
type pendingFact struct {
	row  int
	fact core.FactRow
}

// Load appends one fact row per distinct staging row in rows.
func (l *FactLoader) Load(ctx context.Context, q core.Querier, rows []core.StagingRow, runID string, loadedAt time.Time) (FactStats, error) {
	var stats FactStats

	pending, err := l.castAll(ctx, q, rows)
	if err != nil {
		return stats, err
	}

	pending, stats.Collapsed = collapseDuplicates(pending)

	pending, stats.Skipped, err = l.applyPolicy(ctx, q, pending)
	if err != nil {
		return stats, err
	}

	facts := make([]core.FactRow, len(pending))
	for i, p := range pending {
		facts[i] = p.fact
	}
	if err := l.store.Append(ctx, q, facts, runID, loadedAt); err != nil {
		return stats, err
	}
	stats.Appended = len(facts)

	l.logger.Debug("loaded facts",
		slog.String("table", l.store.Table()),
		slog.Int("appended", stats.Appended),
		slog.Int("collapsed", stats.Collapsed),
		slog.Int("skipped", stats.Skipped),
		slog.String("policy", string(l.policy)))

	return stats, nil
}

// castAll casts every row and resolves its surrogate keys.
func (l *FactLoader) castAll(ctx context.Context, q core.Querier, rows []core.StagingRow) ([]pendingFact, error) {
	c := &caster{maxOrderNumberLength: l.maxOrderNumberLength}
	pending := make([]pendingFact, 0, len(rows))
	for _, row := range rows {
		if f, ok := c.castFact(row); ok {
			pending = append(pending, pendingFact{row: row.Row, fact: f})
		}
	}
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	if len(pending) == 0 {
		return nil, nil
	}

	lookups := make([]map[string]string, len(l.resolvers))
	for i, r := range l.resolvers {
		m, err := r.Lookup(ctx, q)
		if err != nil {
			return nil, err
		}
		lookups[i] = m
	}

	byRow := make(map[int]core.StagingRow, len(rows))
	for _, row := range rows {
		byRow[row.Row] = row
	}

	for i := range pending {
		p := &pending[i]
		p.fact.Keys = make(map[string]string, len(l.resolvers))
		for j, r := range l.resolvers {
			key, errs := r.NaturalKeyOf(byRow[p.row])
			if len(errs) > 0 {
				return nil, core.ValidationErrors(errs)
			}
			surrogate, ok := lookups[j][key.String()]
			if !ok {
				return nil, &core.ReferentialIntegrityError{Dimension: r.Name(), Key: key, Row: p.row}
			}
			p.fact.Keys[r.Name()] = surrogate
		}
	}
	return pending, nil
}

// rowIdentity renders every column of a fact so that exact duplicates
// compare equal.
func rowIdentity(f core.FactRow) string {
	dims := make([]string, 0, len(f.Keys))
	for name := range f.Keys {
		dims = append(dims, name)
	}
	sort.Strings(dims)

	var b strings.Builder
	for _, name := range dims {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(f.Keys[name])
		b.WriteByte('\x1f')
	}
	b.WriteString(f.SalesOrderNumber)
	b.WriteByte('\x1f')
	b.WriteString(strconv.FormatInt(f.SalesOrderLineNumber, 10))
	b.WriteByte('\x1f')
	b.WriteString(f.OrderDate.Format(core.DateLayout))
	b.WriteByte('\x1f')
	b.WriteString(strconv.FormatInt(f.Quantity, 10))
	b.WriteByte('\x1f')
	b.WriteString(strconv.FormatFloat(f.TaxAmount, 'g', -1, 64))
	b.WriteByte('\x1f')
	b.WriteString(strconv.FormatFloat(f.UnitPrice, 'g', -1, 64))
	return b.String()
}

// collapseDuplicates keeps the first of every group of identical facts.
func collapseDuplicates(pending []pendingFact) ([]pendingFact, int) {
	seen := make(map[string]struct{}, len(pending))
	out := pending[:0]
	collapsed := 0
	for _, p := range pending {
		id := rowIdentity(p.fact)
		if _, ok := seen[id]; ok {
			collapsed++
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	return out, collapsed
}

// applyPolicy filters facts whose business key is already loaded.
func (l *FactLoader) applyPolicy(ctx context.Context, q core.Querier, pending []pendingFact) ([]pendingFact, int, error) {
	if l.policy == core.FactPolicyAppend {
		return pending, 0, nil
	}

	var errs core.ValidationErrors
	firstRow := make(map[core.BusinessKey]int, len(pending))
	orders := make(map[string]struct{})
	for _, p := range pending {
		bk := p.fact.BusinessKey()
		if first, ok := firstRow[bk]; ok {
			errs = append(errs, &core.ValidationError{
				Phase:  core.PhaseFact,
				Row:    p.row,
				Field:  core.FieldSalesOrderLineNumber,
				Value:  bk.String(),
				Reason: fmt.Sprintf("conflicts with row %d carrying the same order line", first),
			})
			continue
		}
		firstRow[bk] = p.row
		orders[bk.SalesOrderNumber] = struct{}{}
	}
	if len(errs) > 0 {
		return nil, 0, errs
	}

	orderNumbers := make([]string, 0, len(orders))
	for o := range orders {
		orderNumbers = append(orderNumbers, o)
	}
	sort.Strings(orderNumbers)

	existing, err := l.store.ExistingBusinessKeys(ctx, q, orderNumbers)
	if err != nil {
		return nil, 0, err
	}

	out := pending[:0]
	skipped := 0
	for _, p := range pending {
		bk := p.fact.BusinessKey()
		if _, ok := existing[bk]; !ok {
			out = append(out, p)
			continue
		}
		if l.policy == core.FactPolicyError {
			errs = append(errs, &core.ValidationError{
				Phase:  core.PhaseFact,
				Row:    p.row,
				Field:  core.FieldSalesOrderNumber,
				Value:  bk.String(),
				Reason: "is already loaded",
			})
			continue
		}
		skipped++
	}
	if len(errs) > 0 {
		return nil, 0, errs
	}
	return out, skipped, nil
}
