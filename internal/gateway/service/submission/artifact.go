package submission

import (
	"fmt"
	"strconv"
	"strings"

	"instrumentsync/internal/gateway/repository/instrument"
)

// Field names one mirrored column. Its string form is both the CSV header and
// the object name under the universe prefix.
type Field string

const (
	FieldPreRisk Field = "pre_risk"
	FieldOnRisk  Field = "on_risk"
	FieldCUSIP   Field = "cusip"
	FieldISIN    Field = "isin"
)

var fieldOrder = [...]Field{FieldPreRisk, FieldOnRisk, FieldCUSIP, FieldISIN}

// Fields returns the mirrored fields in upload order.
func Fields() []Field {
	return append([]Field(nil), fieldOrder[:]...)
}

func (f Field) valid() bool {
	for _, known := range fieldOrder {
		if f == known {
			return true
		}
	}
	return false
}

func (f Field) valueOf(fields instrument.Fields) string {
	switch f {
	case FieldPreRisk:
		return fields.PreRisk
	case FieldOnRisk:
		return fields.OnRisk
	case FieldCUSIP:
		return fields.CUSIP
	case FieldISIN:
		return fields.ISIN
	}
	return ""
}

type Artifact struct {
	Key   string
	Field Field
	Body  []byte
}

// Key is the object key for one field of a record: "<universeID>/<field>.csv".
func Key(universeID int64, field Field) string {
	return strconv.FormatInt(universeID, 10) + "/" + string(field) + ".csv"
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (int64, Field, error) {
	prefix, name, ok := strings.Cut(strings.TrimSpace(key), "/")
	if !ok {
		return 0, "", fmt.Errorf("artifact key %q: missing universe prefix", key)
	}
	id, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("artifact key %q: bad universe id", key)
	}
	base, ok := strings.CutSuffix(name, ".csv")
	if !ok {
		return 0, "", fmt.Errorf("artifact key %q: not a csv object", key)
	}
	field := Field(base)
	if !field.valid() {
		return 0, "", fmt.Errorf("artifact key %q: unknown field %q", key, base)
	}
	return id, field, nil
}

// Body renders the two-line CSV for one field. Values are written verbatim:
// embedded commas are not quoted.
func Body(universeID int64, field Field, value string) []byte {
	id := strconv.FormatInt(universeID, 10)
	return []byte("universe_id," + string(field) + "\n" + id + "," + value)
}

// Derive builds the artifacts for a committed record in upload order.
func Derive(universeID int64, fields instrument.Fields) []Artifact {
	out := make([]Artifact, 0, len(fieldOrder))
	for _, f := range fieldOrder {
		out = append(out, deriveOne(universeID, f, fields))
	}
	return out
}

func deriveOne(universeID int64, field Field, fields instrument.Fields) Artifact {
	return Artifact{
		Key:   Key(universeID, field),
		Field: field,
		Body:  Body(universeID, field, field.valueOf(fields)),
	}
}
