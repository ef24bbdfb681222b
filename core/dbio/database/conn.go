package database

import (
	"context"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/slingdata-io/sling-federation/core/dbio"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
	"github.com/slingdata-io/sling-federation/core/dbio/query"
	"github.com/slingdata-io/sling-federation/core/dbio/throttle"
	"github.com/slingdata-io/sling-federation/core/env"
	"github.com/spf13/cast"
	"github.com/xo/dburl"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"
	_ "github.com/snowflakedb/gosnowflake"
)

// DefaultTimeout bounds the throttled retries of one split read
var DefaultTimeout = 5 * time.Minute

// Conn executes split queries of one dialect
type Conn struct {
	Type    dbio.Type
	Timeout time.Duration

	db      *sqlx.DB
	factory *query.Factory
	invoker *throttle.Invoker
}

// ConnOption configures a Conn
type ConnOption func(*Conn)

// WithFactory uses the provided query factory instead of a new one
func WithFactory(f *query.Factory) ConnOption { return func(c *Conn) { c.factory = f } }

// WithInvoker uses the provided throttling invoker
func WithInvoker(inv *throttle.Invoker) ConnOption { return func(c *Conn) { c.invoker = inv } }

func WithTimeout(timeout time.Duration) ConnOption { return func(c *Conn) { c.Timeout = timeout } }

// Open connects with the driver registered for the dialect
func Open(dbType dbio.Type, connURL string, options ...ConnOption) (*Conn, error) {
	template, err := dbType.Template()
	if err != nil {
		return nil, g.Error(err, "could not load template for %s", dbType)
	}

	driver := template.Variable["driver"]
	if driver == "" {
		return nil, g.Error("no database driver is registered for %s", dbType.Name())
	}

	db, err := sqlx.Open(driver, driverDSN(driver, connURL))
	if err != nil {
		return nil, g.Error(err, "Could not connect to DB: %s", driver)
	}

	return NewConn(db, dbType, options...)
}

// driverDSN converts URLs for drivers which only take their own DSN format
func driverDSN(driver, connURL string) string {
	if !g.In(driver, "mysql", "snowflake") {
		return connURL
	}

	u, err := dburl.Parse(connURL)
	if err != nil {
		g.Warn("could not parse %s URL, using as is: %s", driver, err.Error())
		return connURL
	}
	return u.DSN
}

// NewConn wraps an open handle
func NewConn(db *sqlx.DB, dbType dbio.Type, options ...ConnOption) (c *Conn, err error) {
	c = &Conn{Type: dbType, Timeout: DefaultTimeout, db: db}
	for _, option := range options {
		option(c)
	}

	if c.factory == nil {
		c.factory, err = query.NewFactory(dbType)
		if err != nil {
			return nil, g.Error(err, "could not create query factory")
		}
	}
	if c.invoker == nil {
		c.invoker = throttle.NewDefault(IsThrottleError, nil)
	}
	return c, nil
}

// Db returns the underlying handle
func (c *Conn) Db() *sqlx.DB { return c.db }

// Invoker returns the throttling invoker wrapping downstream calls
func (c *Conn) Invoker() *throttle.Invoker { return c.invoker }

// Close closes the underlying handle
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CharColumns returns the fixed width CHAR columns of the table, or none when
// the dialect has no such lookup.
func (c *Conn) CharColumns(schema, table string) (columns []string, err error) {
	sql := c.Type.GetTemplateValue("metadata.char_columns")
	if strings.TrimSpace(sql) == "" {
		return nil, nil
	}

	sql = g.R(
		sql,
		"schema", escapeLiteral(schema),
		"table", escapeLiteral(table),
	)
	g.Trace("CharColumns: %s", sql)

	err = c.db.Select(&columns, sql)
	if err != nil {
		return nil, g.Error(err, "could not get CHAR columns of %s.%s", schema, table)
	}
	return columns, nil
}

// ReadSplit builds the query of one split, runs it through the throttling
// invoker and hands each row to fn.
func (c *Conn) ReadSplit(ctx context.Context, input query.Input, fn func(row []any) error) (count int64, err error) {
	qb, err := c.factory.NewQueryBuilderWithLookup(c.Type, c)
	if err != nil {
		return 0, g.Error(err, "could not create query builder")
	}

	sql, params, err := query.BuildSQL(qb, input)
	if err != nil {
		return 0, g.Error(err, "could not build split query")
	}

	args, err := BindValues(params)
	if err != nil {
		return 0, g.Error(err, "could not bind parameters")
	}
	sql = c.rebind(sql)

	queryID := uuid.NewString()
	g.Debug("[%s] reading split of %s", queryID, input.Table)
	env.LogSQL(sql, args...)

	rows, err := throttle.InvokeValue(ctx, c.invoker, c.Timeout, func() (*sqlx.Rows, error) {
		return c.db.QueryxContext(ctx, sql, args...)
	})
	if err != nil {
		return 0, g.Error(err, "[%s] could not execute split query", queryID)
	}
	defer rows.Close()

	if columns, err := columnTypesOf(rows.Rows); err != nil {
		g.Trace("[%s] could not get column types: %s", queryID, err.Error())
	} else if mismatched := MismatchedColumns(input.Schema, columns); len(mismatched) > 0 {
		g.Warn("[%s] column types differ from the projection: %s", queryID, strings.Join(mismatched, ", "))
	}

	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return count, g.Error(err, "[%s] could not scan row", queryID)
		}
		if err = fn(row); err != nil {
			return count, g.Error(err, "[%s] could not process row %d", queryID, count+1)
		}
		count++
	}

	if err = rows.Err(); err != nil {
		return count, g.Error(err, "[%s] error reading rows", queryID)
	}

	g.Debug("[%s] read %d rows", queryID, count)
	return count, nil
}

// rebind converts `?` placeholders to the driver bind style
func (c *Conn) rebind(sql string) string {
	switch {
	case c.Type == dbio.TypeDbOracle:
		return sqlx.Rebind(sqlx.NAMED, sql)
	case c.Type.IsSQLServer():
		return sqlx.Rebind(sqlx.AT, sql)
	}
	return c.db.Rebind(sql)
}

// BindValues converts parameters to driver values, in order
func BindValues(params []constraint.TypeAndValue) (args []any, err error) {
	args = make([]any, len(params))
	for i, param := range params {
		if args[i], err = BindValue(param); err != nil {
			return nil, g.Error(err, "could not bind parameter %d", i+1)
		}
	}
	return args, nil
}

// BindValue converts one parameter into a value database/sql drivers accept
func BindValue(tv constraint.TypeAndValue) (any, error) {
	switch v := tv.Value.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return v.String(), nil
	case arrow.Date32:
		return v.ToTime(), nil
	case arrow.Date64:
		return v.ToTime(), nil
	case arrow.Timestamp:
		unit := arrow.Millisecond
		if tt, ok := tv.Type.(*arrow.TimestampType); ok {
			unit = tt.Unit
		}
		return v.ToTime(unit), nil
	case string:
		if tv.Type != nil && lo.Contains([]arrow.Type{arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP}, tv.Type.ID()) {
			t, err := cast.ToTimeE(v)
			if err != nil {
				return nil, g.Error(err, "invalid %s value: %s", tv.Type, v)
			}
			return t, nil
		}
	}
	return tv.Value, nil
}

// IsThrottleError reports driver errors signaling the server is overloaded
func IsThrottleError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return lo.SomeBy(throttleMessages, func(m string) bool { return strings.Contains(msg, m) })
}

var throttleMessages = []string{
	"too many connections",
	"too many clients",
	"rate exceeded",
	"throttl",
	"sqlstate 53300",
	"server is busy",
}

func escapeLiteral(val string) string {
	return strings.ReplaceAll(val, "'", "''")
}
