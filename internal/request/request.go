// Package request decodes simulation requests arriving over HTTP or from
// parameter files into validated sim.Parameters.
package request

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"civsandbox/internal/sim"
)

//go:embed params.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("params.schema.json", schemaJSON)

// aliases maps the dashboard field names onto the canonical ones.
var aliases = map[string]string{
	"decision":       "directive",
	"duration_steps": "step_count",
	"autonomy":       "autonomy_level",
	"risk":           "risk_tolerance",
}

// Schema returns the JSON Schema every request body is checked against.
func Schema() string {
	return schemaJSON
}

// Decode validates raw against the request schema and fills the fields it
// carries over defaults. Canonical names win over their aliases. An empty
// body yields the defaults.
func Decode(raw []byte, defaults sim.Parameters) (sim.Parameters, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return defaults, defaults.Validate()
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return sim.Parameters{}, &sim.ValidationError{Field: "request", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if dec.More() {
		return sim.Parameters{}, &sim.ValidationError{Field: "request", Reason: "malformed JSON: trailing data after object"}
	}
	fields, ok := doc.(map[string]any)
	if !ok {
		return sim.Parameters{}, &sim.ValidationError{Field: "request", Reason: "expected a JSON object"}
	}
	if err := schema.Validate(doc); err != nil {
		return sim.Parameters{}, schemaError(err)
	}

	p := defaults
	if v, ok := lookup(fields, "directive"); ok {
		p.Directive = v.(string)
	}
	if v, ok := lookup(fields, "horizon"); ok {
		h, err := sim.ParseHorizon(v.(string))
		if err != nil {
			return sim.Parameters{}, err
		}
		p.Horizon = h
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"step_count", &p.StepCount},
		{"autonomy_level", &p.AutonomyLevel},
		{"risk_tolerance", &p.RiskTolerance},
	} {
		v, ok := lookup(fields, f.name)
		if !ok {
			continue
		}
		n, err := wholeNumber(f.name, v)
		if err != nil {
			return sim.Parameters{}, err
		}
		*f.dst = n
	}
	if err := p.Validate(); err != nil {
		return sim.Parameters{}, err
	}
	return p, nil
}

// lookup returns the value under the canonical name, falling back to its
// dashboard alias.
func lookup(fields map[string]any, canonical string) (any, bool) {
	if v, ok := fields[canonical]; ok {
		return v, true
	}
	for alias, name := range aliases {
		if name != canonical {
			continue
		}
		if v, ok := fields[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

// wholeNumber converts a schema-checked integer such as 50, 50.0 or 5e1
// into an int.
func wholeNumber(field string, v any) (int, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, &sim.ValidationError{Field: field, Reason: fmt.Sprintf("expected a number, got %T", v)}
	}
	r, ok := new(big.Rat).SetString(num.String())
	if !ok {
		return 0, &sim.ValidationError{Field: field, Reason: fmt.Sprintf("malformed number %s", num)}
	}
	if !r.IsInt() {
		return 0, &sim.ValidationError{Field: field, Reason: fmt.Sprintf("must be a whole number, got %s", num)}
	}
	n := r.Num()
	if !n.IsInt64() || n.Int64() > math.MaxInt || n.Int64() < math.MinInt {
		return 0, &sim.ValidationError{Field: field, Reason: fmt.Sprintf("out of range, got %s", num)}
	}
	return int(n.Int64()), nil
}

// schemaError reduces a schema failure to the first leaf cause so the
// caller can name a single field.
func schemaError(err error) error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &sim.ValidationError{Field: "request", Reason: err.Error()}
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	field := strings.TrimPrefix(verr.InstanceLocation, "/")
	if i := strings.Index(field, "/"); i >= 0 {
		field = field[:i]
	}
	if canonical, ok := aliases[field]; ok {
		field = canonical
	}
	if field == "" {
		field = "request"
	}
	return &sim.ValidationError{Field: field, Reason: verr.Message}
}
