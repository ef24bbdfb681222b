package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
	"github.com/integrii/flaggy"
	"github.com/jedib0t/go-pretty/table"
	"github.com/samber/lo"
	"github.com/slingdata-io/sling-federation/core/dbio"
	"github.com/slingdata-io/sling-federation/core/dbio/constraint"
	"github.com/slingdata-io/sling-federation/core/dbio/database"
	"github.com/slingdata-io/sling-federation/core/dbio/query"
	"github.com/slingdata-io/sling-federation/core/dbio/throttle"
	"github.com/slingdata-io/sling-federation/core/env"
	"github.com/slingdata-io/sling-federation/core/federation"
	"github.com/spf13/cast"
)

var (
	ctx              = g.NewContext(context.Background())
	stdout io.Writer = os.Stdout

	// openConn is swapped in tests
	openConn = database.Open
)

func setLogLevel(c *g.CliSC) {
	if cast.ToBool(c.Vals["trace"]) {
		os.Setenv("DEBUG", "TRACE")
		env.InitLogger()
	} else if cast.ToBool(c.Vals["debug"]) {
		os.Setenv("DEBUG", "LOW")
		env.InitLogger()
	}
}

func asJSON() bool { return os.Getenv("FEDERATION_OUTPUT") == "json" }

func loadRequest(c *g.CliSC) (req *federation.Request, dbType dbio.Type, input query.Input, err error) {
	path := cast.ToString(c.Vals["request"])
	if path == "" {
		return nil, dbType, input, g.Error("please provide a request file with --request")
	}

	req, err = federation.LoadRequestFromFile(path)
	if err != nil {
		return nil, dbType, input, g.Error(err, "could not load request")
	}

	dbType, input, err = req.Parse()
	if err != nil {
		return nil, dbType, input, g.Error(err, "invalid request: %s", path)
	}
	return req, dbType, input, nil
}

func processSQL(c *g.CliSC) (ok bool, err error) {
	ok = true
	setLogLevel(c)

	if len(c.Vals) == 0 {
		flaggy.ShowHelp("")
		return ok, nil
	}

	_, dbType, input, err := loadRequest(c)
	if err != nil {
		return ok, err
	}

	factory, err := query.NewFactory(dbType)
	if err != nil {
		return ok, g.Error(err, "could not create query factory")
	}

	qb, err := factory.NewQueryBuilder(dbType)
	if err != nil {
		return ok, g.Error(err, "could not create query builder")
	}

	sql, params, err := query.BuildSQL(qb, input)
	if err != nil {
		return ok, g.Error(err, "could not build query")
	}

	if asJSON() {
		fmt.Fprintln(stdout, g.Marshal(g.M(
			"dialect", dbType.String(),
			"sql", sql,
			"params", lo.Map(params, func(p constraint.TypeAndValue, i int) string { return p.String() }),
		)))
		return ok, nil
	}

	fmt.Fprintln(stdout, env.CyanString(sql))
	if len(params) > 0 {
		T := table.NewWriter()
		T.AppendHeader(table.Row{"#", "Type", "Value"})
		for i, p := range params {
			T.AppendRow(table.Row{i + 1, p.Type.String(), cast.ToString(p.Value)})
		}
		fmt.Fprintln(stdout, T.Render())
	}
	return ok, nil
}

func processDialects(c *g.CliSC) (ok bool, err error) {
	ok = true

	factory, err := query.NewFactory()
	if err != nil {
		return ok, g.Error(err, "could not create query factory")
	}

	T := table.NewWriter()
	T.AppendHeader(table.Row{"Dialect", "Name", "Quote", "Limit", "Partition Keys", "Driver"})
	for _, d := range factory.Dialects() {
		driver := d.Template.Variable["driver"]
		T.AppendRow(table.Row{
			d.Type.String(),
			d.Type.Name(),
			d.QuoteChar,
			lo.Ternary(d.SupportsLimit, "yes", "no"),
			strings.Join(d.PartitionKeys, ", "),
			lo.Ternary(driver == "", "-", driver),
		})
	}
	fmt.Fprintln(stdout, T.Render())
	return ok, nil
}

func processExec(c *g.CliSC) (ok bool, err error) {
	ok = true
	setLogLevel(c)

	if len(c.Vals) == 0 {
		flaggy.ShowHelp("")
		return ok, nil
	}

	req, dbType, input, err := loadRequest(c)
	if err != nil {
		return ok, err
	}

	url := cast.ToString(c.Vals["url"])
	if url == "" {
		return ok, g.Error("please provide a connection URL with --url")
	}

	timeout := database.DefaultTimeout
	if val := cast.ToString(c.Vals["timeout"]); val != "" {
		if timeout, err = time.ParseDuration(val); err != nil {
			return ok, g.Error(err, "invalid timeout: %s", val)
		}
	}

	invoker := throttle.NewDefault(
		database.IsThrottleError,
		env.MergeConfig(env.ThrottleConfig(), req.ThrottleConfig()),
	)

	conn, err := openConn(dbType, url, database.WithInvoker(invoker), database.WithTimeout(timeout))
	if err != nil {
		return ok, g.Error(err, "could not connect")
	}
	defer conn.Close()

	columns := lo.FilterMap(input.Schema.Fields(), func(f arrow.Field, i int) (string, bool) {
		return f.Name, !input.Split.Has(f.Name)
	})

	T := table.NewWriter()
	T.AppendHeader(lo.Map(columns, func(col string, i int) any { return col }))

	start := time.Now()
	count, err := conn.ReadSplit(ctx.Ctx, input, func(row []any) error {
		if asJSON() {
			_, err := fmt.Fprintln(stdout, g.Marshal(lo.Map(row, func(v any, i int) any { return normalize(v) })))
			return err
		}
		T.AppendRow(lo.Map(row, func(v any, i int) any { return normalize(v) }))
		return nil
	})
	if err != nil {
		return ok, g.Error(err, "could not read split of %s", input.Table)
	}

	if !asJSON() {
		fmt.Fprintln(stdout, T.Render())
	}
	g.Info("read %d rows from %s in %s (throttle state %s)", count, input.Table, time.Since(start).Round(time.Millisecond), invoker.State())
	return ok, nil
}

// normalize turns driver byte slices into text for display
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
