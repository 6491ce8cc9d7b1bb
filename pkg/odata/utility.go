package odata

import (
	"bytes"
	"net/http"

	json "github.com/goccy/go-json"
)

type Field struct {
	Key   string
	Value any
}

// OrderedFields is a JSON object that keeps its keys in insertion order.
type OrderedFields []Field

func (of OrderedFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range of {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ServiceDocument lists the entity sets and function imports of the model.
// contextURL is the absolute or relative URL of the $metadata resource.
func ServiceDocument(m *Model, contextURL string) OrderedFields {
	value := make([]OrderedFields, 0, len(m.entitySets))
	for _, set := range m.entitySets {
		value = append(value, OrderedFields{
			{Key: "name", Value: set.name},
			{Key: "kind", Value: "EntitySet"},
			{Key: "url", Value: set.name},
		})
	}
	listed := make(map[string]bool)
	for _, op := range m.operations {
		if op.binding != nil || op.kind != OperationKindFunction || listed[op.name] {
			continue
		}
		listed[op.name] = true
		value = append(value, OrderedFields{
			{Key: "name", Value: op.name},
			{Key: "kind", Value: "FunctionImport"},
			{Key: "url", Value: op.name},
		})
	}
	return OrderedFields{
		{Key: "@odata.context", Value: contextURL},
		{Key: "value", Value: value},
	}
}

// encodeJSONPreserveOrder writes v without HTML escaping so that non-ASCII
// and special characters in names survive as they are.
func encodeJSONPreserveOrder(w http.ResponseWriter, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
