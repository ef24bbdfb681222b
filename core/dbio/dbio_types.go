package dbio

import (
	"embed"
	"sort"
	"strings"
	"sync"

	"github.com/flarco/g"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// Type is the dialect type
type Type string

const (
	TypeUnknown Type = ""

	TypeDbPostgres   Type = "postgres"
	TypeDbRedshift   Type = "redshift"
	TypeDbMySQL      Type = "mysql"
	TypeDbOracle     Type = "oracle"
	TypeDbSQLServer  Type = "sqlserver"
	TypeDbSynapse    Type = "synapse"
	TypeDbDB2        Type = "db2"
	TypeDbSapHana    Type = "saphana"
	TypeDbImpala     Type = "impala"
	TypeDbHive       Type = "hive"
	TypeDbClickhouse Type = "clickhouse"
	TypeDbSnowflake  Type = "snowflake"
)

// AllType lists the dialect types
var AllType = []Type{
	TypeDbPostgres,
	TypeDbRedshift,
	TypeDbMySQL,
	TypeDbOracle,
	TypeDbSQLServer,
	TypeDbSynapse,
	TypeDbDB2,
	TypeDbSapHana,
	TypeDbImpala,
	TypeDbHive,
	TypeDbClickhouse,
	TypeDbSnowflake,
}

// ValidateType returns true is type is valid
func ValidateType(tStr string) (Type, bool) {
	t := Type(strings.ToLower(tStr))

	tMap := map[string]Type{
		"postgresql": TypeDbPostgres,
		"mssql":      TypeDbSQLServer,
		"azuredwh":   TypeDbSynapse,
		"hana":       TypeDbSapHana,
	}

	if tMatched, ok := tMap[string(t)]; ok {
		t = tMatched
	}

	switch t {
	case
		TypeDbPostgres, TypeDbRedshift, TypeDbMySQL, TypeDbOracle, TypeDbSQLServer, TypeDbSynapse,
		TypeDbDB2, TypeDbSapHana, TypeDbImpala, TypeDbHive, TypeDbClickhouse, TypeDbSnowflake:
		return t, true
	}

	return t, false
}

// Types returns all valid dialect types, sorted by name
func Types() (types []Type) {
	types = append(types, AllType...)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return
}

// String returns string instance
func (t Type) String() string {
	return string(t)
}

// IsSQLServer returns true is sql server flavor
func (t Type) IsSQLServer() bool {
	return g.In(t, TypeDbSQLServer, TypeDbSynapse)
}

// Name return the type name
func (t Type) Name() string {
	mapping := map[Type]string{
		TypeDbPostgres:   "PostgreSQL",
		TypeDbRedshift:   "Redshift",
		TypeDbMySQL:      "MySQL",
		TypeDbOracle:     "Oracle",
		TypeDbSQLServer:  "SQLServer",
		TypeDbSynapse:    "Synapse",
		TypeDbDB2:        "DB2",
		TypeDbSapHana:    "SAP HANA",
		TypeDbImpala:     "Impala",
		TypeDbHive:       "Hive",
		TypeDbClickhouse: "Clickhouse",
		TypeDbSnowflake:  "Snowflake",
	}

	return mapping[t]
}

//go:embed templates/*
var templatesFolder embed.FS

// Template is a dialect YAML template
type Template struct {
	Core           map[string]string `yaml:"core"`
	Metadata       map[string]string `yaml:"metadata"`
	GeneralTypeMap map[string]string `yaml:"general_type_map"`
	Variable       map[string]string `yaml:"variable"`
}

// Value returns the template value at the dotted path, e.g. `core.select`
func (template Template) Value(path string) (value string) {
	prefixes := map[string]map[string]string{
		"core.":             template.Core,
		"metadata.":         template.Metadata,
		"general_type_map.": template.GeneralTypeMap,
		"variable.":         template.Variable,
	}

	for prefix, dict := range prefixes {
		if strings.HasPrefix(path, prefix) {
			key := strings.Replace(path, prefix, "", 1)
			value = dict[key]
			break
		}
	}

	return value
}

// QuoteChar is the identifier quote character of the dialect
func (template Template) QuoteChar() string {
	return template.Variable["quote_char"]
}

// SupportsLimit returns false for dialects without a LIMIT clause
func (template Template) SupportsLimit() bool {
	return cast.ToBool(template.Variable["supports_limit"])
}

// a cache for templates (so we only read once)
var (
	typeTemplate    = map[Type]Template{}
	typeTemplateMux = sync.Mutex{}
)

// Template loads the base template merged with the dialect template
func (t Type) Template() (template Template, err error) {
	typeTemplateMux.Lock()
	defer typeTemplateMux.Unlock()

	if val, ok := typeTemplate[t]; ok {
		return val, nil
	}

	template = Template{
		Core:           map[string]string{},
		Metadata:       map[string]string{},
		GeneralTypeMap: map[string]string{},
		Variable:       map[string]string{},
	}

	connTemplate := Template{}

	baseTemplateBytes, err := templatesFolder.ReadFile("templates/base.yaml")
	if err != nil {
		return template, g.Error(err, "could not read base.yaml")
	}

	if err := yaml.Unmarshal([]byte(baseTemplateBytes), &template); err != nil {
		return template, g.Error(err, "could not unmarshal baseTemplateBytes")
	}

	templateBytes, err := templatesFolder.ReadFile("templates/" + t.String() + ".yaml")
	if err != nil {
		return template, g.Error(err, "could not read "+t.String()+".yaml")
	}

	err = yaml.Unmarshal([]byte(templateBytes), &connTemplate)
	if err != nil {
		return template, g.Error(err, "could not unmarshal templateBytes")
	}

	for key, val := range connTemplate.Core {
		template.Core[key] = val
	}

	for key, val := range connTemplate.Metadata {
		template.Metadata[key] = val
	}

	for key, val := range connTemplate.GeneralTypeMap {
		template.GeneralTypeMap[key] = val
	}

	for key, val := range connTemplate.Variable {
		template.Variable[key] = val
	}

	// cache
	typeTemplate[t] = template

	return template, nil
}

// Quote adds quotes to the field name, doubling any embedded quote char.
// Casing is determined upstream and left as is.
func (t Type) Quote(field string) string {
	template, _ := t.Template()
	q := template.QuoteChar()
	if q == "" {
		return field
	}
	return q + strings.ReplaceAll(field, q, q+q) + q
}

func (t Type) QuoteNames(names ...string) (newNames []string) {
	newNames = make([]string, len(names))
	for i := range names {
		newNames[i] = t.Quote(names[i])
	}
	return newNames
}

func (t Type) GetTemplateValue(path string) (value string) {
	template, _ := t.Template()
	return template.Value(path)
}
