package decision

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/cert-verifier/internal/entity"
)

//go:embed audit_schema.json
var auditSchemaJSON []byte

var (
	auditSchemaOnce sync.Once
	auditSchema     *jsonschema.Schema
	auditSchemaErr  error
)

func compiledAuditSchema() (*jsonschema.Schema, error) {
	auditSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("audit_trail.json", bytes.NewReader(auditSchemaJSON)); err != nil {
			auditSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		auditSchema, auditSchemaErr = compiler.Compile("audit_trail.json")
		if auditSchemaErr != nil {
			auditSchemaErr = fmt.Errorf("compile schema: %w", auditSchemaErr)
		}
	})
	return auditSchema, auditSchemaErr
}

// ValidateAuditJSON checks a serialized audit trail against the audit schema.
func ValidateAuditJSON(data []byte) error {
	schema, err := compiledAuditSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal audit trail: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("audit trail does not match schema: %w", err)
	}
	return nil
}

// MarshalAudit serializes the audit trail that reviewers and exports store
// verbatim, validating it on the way out.
func MarshalAudit(a entity.AuditTrail) ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode audit trail: %w", err)
	}
	if err := ValidateAuditJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}
