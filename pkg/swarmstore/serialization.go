package swarmstore

import (
	"encoding/json"
	"fmt"
)

// Serialization helpers for converting between Go structs and stored values
//
// Every record is stored as a single JSON string. Partial updates are applied at
// the level of top-level JSON fields, which keeps merge semantics identical for
// typed fields (state, metadata) and free-form payloads (data, content).

// encodeRecord marshals a record for storage.
func encodeRecord(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	return string(data), nil
}

// decodeRecord unmarshals a stored record into v.
func decodeRecord(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return nil
}

// applyPatch shallow-merges patch over current and decodes the result into out.
// out must point to a zero value so fields cleared by the patch do not linger.
// The "id" field is skipped: identity is fixed by the key the record lives under.
func applyPatch(current any, patch Patch, out any) error {
	base, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal current record: %w", err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return fmt.Errorf("failed to unmarshal current record: %w", err)
	}

	for name, value := range patch {
		if name == "id" {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal patch field %q: %w", name, err)
		}
		fields[name] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal merged record: %w", err)
	}
	if err := json.Unmarshal(merged, out); err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	return nil
}
