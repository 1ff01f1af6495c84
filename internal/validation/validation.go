// Package validation checks request bodies against JSON schemas before they are
// decoded, so malformed input is rejected with every problem listed at once.
package validation

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"leaseflow/internal/apperror"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names besides the transition names.
const (
	SchemaApplication            = "application"
	SchemaPublicApplication      = "public_application"
	SchemaMessage                = "message"
	SchemaContractDraft          = "draft_contract"
	SchemaContractRequest        = "contract_request"
	SchemaContractRequestResolve = "contract_request_resolve"
	SchemaUser                   = "user"
)

// aliases maps a schema name to the file that defines it when they differ.
var aliases = map[string]string{
	"approve_offer":     "offer_decision",
	"accept_offer":      "offer_decision",
	"reject_offer":      "offer_decision",
	SchemaContractDraft: "send_contract",
}

type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(entries)+len(aliases))}
	for _, e := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		v.schemas[strings.TrimSuffix(e.Name(), ".json")] = s
	}
	for name, file := range aliases {
		s, ok := v.schemas[file]
		if !ok {
			return nil, fmt.Errorf("schema %s aliases missing %s", name, file)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// MustNew is New for program start-up, where the embedded schemas are known good.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Validator) Has(name string) bool {
	_, ok := v.schemas[name]
	return ok
}

// Validate checks body against the named schema. An empty body is treated as {}.
func (v *Validator) Validate(name string, body []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return apperror.Internal("no schema for "+name, nil)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperror.Validation("request body is not valid JSON", map[string]interface{}{"error": err.Error()})
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.Field()+": "+desc.Description())
	}
	sort.Strings(problems)
	return apperror.Validation("request body failed validation", map[string]interface{}{"errors": problems})
}
