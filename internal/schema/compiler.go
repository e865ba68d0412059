package schema

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"formgate/internal/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// Compiler turns an invitation's field snapshot into a compiled JSON
// Schema and validates submitted answer values against it. Compiled
// schemas are cached per snapshot; many candidates submit against the
// same snapshot shape.
type Compiler struct {
	mu       sync.Mutex
	compiler *js.Compiler
	cache    *expirable.LRU[string, *js.Schema]
}

// NewCompilerWithCache creates a new compiler with cache
func NewCompilerWithCache(maxSize int) *Compiler {
	c := js.NewCompiler()
	c.AssertFormat = true
	return &Compiler{
		compiler: c,
		cache:    expirable.NewLRU[string, *js.Schema](maxSize, nil, time.Hour),
	}
}

// BuildSnapshotSchema renders the JSON Schema document for a snapshot.
// Each non-file field becomes a string property; select and yes_no
// fields get enums, email and date fields get formats. Required-ness
// is enforced by the response recorder, not here, so the recorder can
// report every missing field with its label.
func BuildSnapshotSchema(fields []model.FormField) map[string]interface{} {
	properties := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if f.Type == model.FieldFile {
			continue // file answers carry a URL, not a typed value
		}
		prop := map[string]interface{}{"type": "string"}
		switch f.Type {
		case model.FieldEmail:
			prop["format"] = "email"
		case model.FieldDate:
			prop["format"] = "date"
		case model.FieldYesNo:
			prop["enum"] = []interface{}{"yes", "no"}
		case model.FieldSelect:
			enum := make([]interface{}, len(f.Options))
			for i, o := range f.Options {
				enum[i] = o
			}
			prop["enum"] = enum
		}
		properties[f.ID] = prop
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
}

func (c *Compiler) key(schema map[string]interface{}) string {
	b, _ := json.Marshal(schema)
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum[:16])
}

// prepare compiles and caches a schema document. The underlying
// compiler's resource map is not safe for concurrent mutation and
// submissions arrive in parallel, so compilation is serialized; cache
// hits stay on the fast path.
func (c *Compiler) prepare(schema map[string]interface{}) (*js.Schema, error) {
	key := c.key(schema)
	if compiled, ok := c.cache.Get(key); ok {
		return compiled, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another submission may have compiled it while we waited.
	if compiled, ok := c.cache.Get(key); ok {
		return compiled, nil
	}

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	resourceURL := fmt.Sprintf("mem://snapshot/%s.json", key)
	if err := c.compiler.AddResource(resourceURL, bytes.NewReader(schemaBytes)); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}

	compiled, err := c.compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	c.cache.Add(key, compiled)
	return compiled, nil
}

// ValidateAnswers checks the non-file answer values (keyed by field id)
// against the snapshot-derived schema.
func (c *Compiler) ValidateAnswers(ctx context.Context, fields []model.FormField, values map[string]string) error {
	compiled, err := c.prepare(BuildSnapshotSchema(fields))
	if err != nil {
		return err
	}

	// jsonschema validates generic JSON values, so round-trip the map.
	raw := make(map[string]interface{}, len(values))
	for k, v := range values {
		raw[k] = v
	}
	valueBytes, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	var value interface{}
	if err := json.Unmarshal(valueBytes, &value); err != nil {
		return fmt.Errorf("failed to unmarshal answers: %w", err)
	}

	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("answer validation failed: %w", err)
	}
	return nil
}
