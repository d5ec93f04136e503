// Package avjson converts DynamoDB attribute values to and from plain
// JSON document trees: map[string]any, []any, string, float64, bool and
// nil. Binary attributes decode to []byte, sets to lists of their
// members.
package avjson

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Decode converts av into a plain JSON value.
func Decode(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(v.Value))
		for name, member := range v.Value {
			dec, err := Decode(member)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", name, err)
			}
			m[name] = dec
		}
		return m, nil
	case *types.AttributeValueMemberL:
		l := make([]any, len(v.Value))
		for i, member := range v.Value {
			dec, err := Decode(member)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			l[i] = dec
		}
		return l, nil
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		n, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", v.Value, err)
		}
		return n, nil
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberB:
		return v.Value, nil
	case *types.AttributeValueMemberSS:
		l := make([]any, len(v.Value))
		for i, s := range v.Value {
			l[i] = s
		}
		return l, nil
	case *types.AttributeValueMemberNS:
		l := make([]any, len(v.Value))
		for i, s := range v.Value {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("number set member %q: %w", s, err)
			}
			l[i] = n
		}
		return l, nil
	case *types.AttributeValueMemberBS:
		l := make([]any, len(v.Value))
		for i, b := range v.Value {
			l[i] = b
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T", av)
	}
}

// Encode converts a Go value into a DynamoDB attribute value.
func Encode(v any) (types.AttributeValue, error) {
	return attributevalue.Marshal(v)
}

// Normalize round-trips a Go value through attribute value encoding so
// it takes the same shape a fetched document would have. Structs and
// typed numbers come back as plain maps and float64s.
func Normalize(v any) (any, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Decode(av)
}

// Int64 reads an integer from a number attribute value.
func Int64(av types.AttributeValue) (int64, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute value %T is not a number", av)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}
