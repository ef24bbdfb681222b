package query

import (
	"regexp"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/flarco/g"
)

var spatialFuncRegex = regexp.MustCompile(`^ST_\w+\(\)$`)

func projectQuoted(d Dialect, field arrow.Field, charColumns map[string]bool) string {
	return d.Quote(field.Name)
}

// projectCharTrimmed strips the blank padding of fixed width CHAR columns
func projectCharTrimmed(d Dialect, field arrow.Field, charColumns map[string]bool) string {
	quoted := d.Quote(field.Name)
	if !charColumns[field.Name] || d.Core("char_projection") == "" {
		return quoted
	}
	return g.R(d.Core("char_projection"), "field", quoted)
}

// projectSpatial selects the function call carried by a child field named
// like `ST_AsWKT()`, aliased to the column name
func projectSpatial(d Dialect, field arrow.Field, charColumns map[string]bool) string {
	quoted := d.Quote(field.Name)
	for _, child := range childFields(field) {
		if spatialFuncRegex.MatchString(child.Name) {
			return g.R(d.Core("spatial_projection"), "expression", child.Name, "field", quoted)
		}
	}
	return quoted
}

func childFields(field arrow.Field) []arrow.Field {
	if nested, ok := field.Type.(interface{ Fields() []arrow.Field }); ok {
		return nested.Fields()
	}
	return nil
}
