// Package schema generates the JSON Schemas sent to models for structured output.
package schema

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Reflector is configured for structured-output schemas.
// DoNotReference inlines all definitions to avoid $ref, which strict
// response formats reject.
var Reflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// Generate creates a JSON Schema from a Go type.
// The type should be a struct with json and jsonschema tags.
//
//	type Pick struct {
//	    Title string `json:"title" jsonschema:"required,description=Movie title"`
//	}
//
//	raw, err := schema.Generate[Pick]()
func Generate[T any]() (json.RawMessage, error) {
	var zero T
	return json.Marshal(Reflector.Reflect(&zero))
}

// GenerateFromValue creates a JSON Schema from a value.
func GenerateFromValue(v any) (json.RawMessage, error) {
	return json.Marshal(Reflector.Reflect(v))
}

// MustGenerate is like Generate but panics on error.
func MustGenerate[T any]() json.RawMessage {
	s, err := Generate[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name used for T: its Go type name, or
// "response" for unnamed types.
func Name[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "response"
	}
	return t.Name()
}
