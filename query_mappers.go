package dsquery

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonbodner/multierr"
	"github.com/rickar/props"
)

// QueryMapper maps from a query name to an actual query.
// It is used to support templates of the form q:name.
type QueryMapper interface {
	// Maps the supplied name to a query string
	// returns an empty string if there is no query associated with the supplied name
	Map(name string) string
}

// ParamMapper is implemented by QueryMappers that also declare the parameters of their
// queries, in the form understood by ParseParams.
type ParamMapper interface {
	Params(name string) string
}

type MapMapper map[string]string

func (mm MapMapper) Map(name string) string {
	return mm[name]
}

type propFileMapper struct {
	properties *props.Properties
}

func (pm propFileMapper) Map(name string) string {
	return pm.properties.Get(name)
}

// Params returns the value of the name.params property.
func (pm propFileMapper) Params(name string) string {
	return pm.properties.Get(name + ".params")
}

// PropFileToQueryMapper loads a properties file of queries. A query called name may declare
// its parameters in a name.params property:
//
//	byRelname = SELECT * FROM pg_catalog.pg_class WHERE relname = %s
//	byRelname.params = relname:string=pg_class
func PropFileToQueryMapper(name string) (QueryMapper, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	properties, err := props.Read(file)
	if err != nil {
		return nil, err
	}
	return propFileMapper{properties}, nil
}

// PropFilesToQueryMappers loads several properties files and reports every file that failed.
func PropFilesToQueryMappers(names ...string) ([]QueryMapper, error) {
	var out []QueryMapper
	var errs error
	for _, name := range names {
		m, err := PropFileToQueryMapper(name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %v", name, err))
			continue
		}
		out = append(out, m)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

// lookupQuery resolves q:name templates. It returns the query text and, when the mapper that
// knew the name also declares parameters for it, the parameter list.
func lookupQuery(query string, mappers []QueryMapper) (string, string, error) {
	if !strings.HasPrefix(query, "q:") {
		return query, "", nil
	}
	name := query[2:]
	for _, v := range mappers {
		if q := v.Map(name); q != "" {
			var params string
			if pm, ok := v.(ParamMapper); ok {
				params = pm.Params(name)
			}
			return q, params, nil
		}
	}
	return "", "", fmt.Errorf("no query found for name %s", name)
}
