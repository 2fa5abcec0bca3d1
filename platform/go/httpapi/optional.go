package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var errInvalidUUID = errors.New("must be a valid UUID")

// OptionalUUID records whether a JSON field was present and, if so, whether it
// carried a UUID. Explicit null and the empty string both decode to Set with a
// nil Value.
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errInvalidUUID
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return errInvalidUUID
	}
	o.Value = &id
	return nil
}
