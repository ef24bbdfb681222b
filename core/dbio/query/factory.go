package query

import (
	"sort"

	"github.com/flarco/g"
	"github.com/samber/lo"
	"github.com/slingdata-io/sling-federation/core/dbio"
)

// Factory holds one dialect per type. It is read-only once built and safe
// for concurrent use.
type Factory struct {
	dialects map[dbio.Type]Dialect
}

// NewFactory builds the dialects of the given types, or of every known
// type when none are given.
func NewFactory(types ...dbio.Type) (*Factory, error) {
	if len(types) == 0 {
		types = dbio.Types()
	}

	f := &Factory{dialects: map[dbio.Type]Dialect{}}
	for _, t := range types {
		d, err := NewDialect(t)
		if err != nil {
			return nil, g.Error(err, "could not create dialect %s", t)
		}
		f.dialects[t] = d
	}
	return f, nil
}

// Dialect returns the dialect of the type
func (f *Factory) Dialect(t dbio.Type) (Dialect, error) {
	d, ok := f.dialects[t]
	if !ok {
		return d, g.Error("unsupported dialect: %s", t)
	}
	return d, nil
}

// NewQueryBuilder creates a fresh builder bound to the dialect
func (f *Factory) NewQueryBuilder(t dbio.Type) (QueryBuilder, error) {
	d, err := f.Dialect(t)
	if err != nil {
		return QueryBuilder{}, err
	}
	return QueryBuilder{dialect: d}, nil
}

// NewQueryBuilderWithLookup creates a builder that uses lookup for dialects
// needing side information about the table, such as CHAR columns.
func (f *Factory) NewQueryBuilderWithLookup(t dbio.Type, lookup ColumnLookup) (QueryBuilder, error) {
	q, err := f.NewQueryBuilder(t)
	if err != nil {
		return q, err
	}
	q.lookup = lookup
	return q, nil
}

// Dialects returns the dialects of the factory, sorted by type
func (f *Factory) Dialects() []Dialect {
	dialects := lo.Values(f.dialects)
	sort.Slice(dialects, func(i, j int) bool { return dialects[i].Type < dialects[j].Type })
	return dialects
}
