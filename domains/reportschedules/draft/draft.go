// Package draft keeps one unsaved report schedule form per tenant on the local machine.
package draft

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

const keyPrefix = "report_config_draft"

var (
	// ErrInvalidDraft is returned by Save for snapshots that do not look like a schedule form.
	ErrInvalidDraft = errors.New("invalid draft")
	// ErrCorruptDraft is returned by Load when the stored slot cannot be decoded.
	ErrCorruptDraft = errors.New("corrupt draft")
)

//go:embed draft.schema.json
var schemaJSON []byte

const schemaURL = "memory://reportschedules/draft.schema.json"

// KV is the subset of localstate.Store the cache needs.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Cache stores draft snapshots as JSON objects, one slot per tenant.
type Cache struct {
	kv     KV
	schema *jsonschema.Schema
}

// New compiles the draft schema and returns a Cache over kv.
func New(kv KV) (*Cache, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("register draft schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile draft schema: %w", err)
	}
	return &Cache{kv: kv, schema: schema}, nil
}

// Key returns the local state key holding the draft of session.
func Key(session tenant.Session) string {
	return keyPrefix + ":" + session.Key
}

// Save overwrites the draft slot of session.
func (c *Cache) Save(session tenant.Session, snapshot json.RawMessage) error {
	if err := c.check(snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	if err := c.kv.Set(Key(session), compact.String()); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns the draft of session, or ok=false when the slot is empty.
func (c *Cache) Load(session tenant.Session) (json.RawMessage, bool, error) {
	raw, ok, err := c.kv.Get(Key(session))
	if err != nil {
		return nil, false, fmt.Errorf("load draft: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	snapshot := json.RawMessage(raw)
	if err := c.check(snapshot); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrCorruptDraft, err)
	}
	return snapshot, true, nil
}

// Clear empties the draft slot of session.
func (c *Cache) Clear(session tenant.Session) error {
	if err := c.kv.Delete(Key(session)); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

func (c *Cache) check(snapshot json.RawMessage) error {
	decoder := json.NewDecoder(bytes.NewReader(snapshot))
	decoder.UseNumber()

	var document any
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if err := c.schema.Validate(document); err != nil {
		return err
	}
	return nil
}
