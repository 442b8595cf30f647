package store

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// IDField is the distinguished field every record carries.
const IDField = "id"

// Record is a field-name to value mapping with a mandatory "id" field.
type Record map[string]any

// ID returns the record's identifier, or "" if absent or not a string.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Split separates rec into its identifier and the payload without the
// identifier. rec is not modified.
func Split(rec Record) (string, map[string]any, error) {
	raw, ok := rec[IDField]
	if !ok {
		return "", nil, Validationf("record has no %q field", IDField)
	}
	id, ok := raw.(string)
	if !ok {
		return "", nil, Validationf("record %q field is %T, want string", IDField, raw)
	}
	if id == "" {
		return "", nil, Validationf("record %q field is empty", IDField)
	}
	payload := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == IDField {
			continue
		}
		payload[k] = v
	}
	return id, payload, nil
}

// Join builds a record from an identifier and payload. payload is copied.
func Join(id string, payload map[string]any) Record {
	rec := make(Record, len(payload)+1)
	for k, v := range payload {
		rec[k] = v
	}
	rec[IDField] = id
	return rec
}

// NormalizeID returns the storage key for id. Canonically equivalent Unicode
// spellings map to the same key.
func NormalizeID(id string) (string, error) {
	if id == "" {
		return "", Validationf("id is empty")
	}
	return norm.NFC.String(id), nil
}

var tableNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTable checks that name can be used as a table identifier.
// Table names are interpolated into statements, so only plain identifiers
// are accepted.
func ValidateTable(name string) error {
	if !tableNameRE.MatchString(name) {
		return Validationf("invalid table name %q", name)
	}
	return nil
}
