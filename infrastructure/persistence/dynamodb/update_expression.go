package dynamodb

import (
	"fmt"
	"sort"
	"strings"

	"liberandum-backend/infrastructure/persistence/abstractions"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// reservedWords are attribute names that collide with the DynamoDB
// expression vocabulary and must go through a #name placeholder.
var reservedWords = map[string]struct{}{
	"name": {}, "role": {}, "status": {}, "timestamp": {}, "data": {},
	"size": {}, "type": {}, "key": {}, "value": {}, "order": {},
	"index": {}, "count": {}, "group": {}, "state": {}, "update": {},
	"delete": {}, "select": {}, "insert": {}, "from": {}, "where": {},
	"user": {}, "time": {}, "date": {}, "year": {}, "month": {},
	"day": {}, "hour": {}, "minute": {}, "second": {},
}

// IsReservedWord reports whether field must be escaped. The check is case-insensitive.
func IsReservedWord(field string) bool {
	_, ok := reservedWords[strings.ToLower(field)]
	return ok
}

// FieldBinding is how a single attribute appears in an update expression
type FieldBinding struct {
	Field      string
	NameToken  string // "#status" when escaped, the bare field otherwise
	ValueToken string // always a ":" placeholder
	Value      interface{}
	Escaped    bool
}

// CompileField maps one (field, value) pair to its expression tokens.
// Values are always placeholder-bound; names only when they collide with
// the reserved list or are not plain identifiers.
func CompileField(field string, value interface{}) FieldBinding {
	token := placeholderToken(field)
	escaped := IsReservedWord(field) || token != field

	nameToken := field
	if escaped {
		nameToken = "#" + token
	}

	return FieldBinding{
		Field:      field,
		NameToken:  nameToken,
		ValueToken: ":" + token,
		Value:      value,
		Escaped:    escaped,
	}
}

func placeholderToken(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// UpdateExpression is a compiled SET expression with its placeholder maps
type UpdateExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
	Bindings   []FieldBinding
}

// BuildUpdateExpression compiles updates into a SET expression. The id and
// created_at attributes are never written; updated_at is stamped with now.
// A nil result means there is nothing to change.
func BuildUpdateExpression(updates abstractions.Record, now string) (*UpdateExpression, error) {
	fields := make([]string, 0, len(updates))
	for field := range updates {
		switch field {
		case abstractions.FieldID, abstractions.FieldCreatedAt, abstractions.FieldUpdatedAt:
			continue
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	sort.Strings(fields)

	values := make(abstractions.Record, len(fields)+1)
	for _, field := range fields {
		values[field] = updates[field]
	}
	values[abstractions.FieldUpdatedAt] = now
	fields = append(fields, abstractions.FieldUpdatedAt)

	expr := &UpdateExpression{
		Names:    make(map[string]string),
		Values:   make(map[string]types.AttributeValue, len(fields)),
		Bindings: make([]FieldBinding, 0, len(fields)),
	}

	clauses := make([]string, 0, len(fields))
	for _, field := range fields {
		binding := CompileField(field, values[field])
		if _, taken := expr.Values[binding.ValueToken]; taken {
			binding = disambiguate(binding, len(expr.Bindings))
		}

		av, err := attributevalue.Marshal(binding.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value for %q: %w", field, err)
		}

		if binding.Escaped {
			expr.Names[binding.NameToken] = field
		}
		expr.Values[binding.ValueToken] = av
		expr.Bindings = append(expr.Bindings, binding)
		clauses = append(clauses, fmt.Sprintf("%s = %s", binding.NameToken, binding.ValueToken))
	}

	expr.Expression = "SET " + strings.Join(clauses, ", ")
	return expr, nil
}

// disambiguate handles two fields that sanitize to the same token ("a-b", "a_b")
func disambiguate(binding FieldBinding, n int) FieldBinding {
	suffix := fmt.Sprintf("_%d", n)
	binding.ValueToken += suffix
	if binding.Escaped {
		binding.NameToken += suffix
	}
	return binding
}
