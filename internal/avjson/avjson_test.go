package avjson_test

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docpath/internal/avjson"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		av   types.AttributeValue
		want any
	}{
		{"string", &types.AttributeValueMemberS{Value: "hi"}, "hi"},
		{"number", &types.AttributeValueMemberN{Value: "12.5"}, 12.5},
		{"integer number", &types.AttributeValueMemberN{Value: "3"}, float64(3)},
		{"bool", &types.AttributeValueMemberBOOL{Value: true}, true},
		{"null", &types.AttributeValueMemberNULL{Value: true}, nil},
		{"binary", &types.AttributeValueMemberB{Value: []byte{1, 2}}, []byte{1, 2}},
		{
			"map",
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"a": &types.AttributeValueMemberN{Value: "1"},
				"b": &types.AttributeValueMemberS{Value: "x"},
			}},
			map[string]any{"a": float64(1), "b": "x"},
		},
		{
			"list",
			&types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberN{Value: "1"},
				&types.AttributeValueMemberBOOL{Value: false},
			}},
			[]any{float64(1), false},
		},
		{
			"nested",
			&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"list": &types.AttributeValueMemberL{Value: []types.AttributeValue{
					&types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
						"int": &types.AttributeValueMemberN{Value: "4"},
					}},
				}},
			}},
			map[string]any{"list": []any{map[string]any{"int": float64(4)}}},
		},
		{
			"string set",
			&types.AttributeValueMemberSS{Value: []string{"a", "b"}},
			[]any{"a", "b"},
		},
		{
			"number set",
			&types.AttributeValueMemberNS{Value: []string{"1", "2"}},
			[]any{float64(1), float64(2)},
		},
		{"empty map", &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}, map[string]any{}},
		{"empty list", &types.AttributeValueMemberL{Value: []types.AttributeValue{}}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := avjson.Decode(tt.av)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeBadNumber(t *testing.T) {
	_, err := avjson.Decode(&types.AttributeValueMemberN{Value: "not-a-number"})
	if err == nil {
		t.Fatal("Decode succeeded on a malformed number")
	}
}

func TestNormalize(t *testing.T) {
	type address struct {
		City string `dynamodbav:"city"`
		Zip  int    `dynamodbav:"zip"`
	}

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int to float", 42, float64(42)},
		{"string", "s", "s"},
		{"nil", nil, nil},
		{
			"typed slice",
			[]int{1, 2},
			[]any{float64(1), float64(2)},
		},
		{
			"struct to map",
			address{City: "La Mesa", Zip: 91941},
			map[string]any{"city": "La Mesa", "zip": float64(91941)},
		},
		{
			"nested any map",
			map[string]any{"a": []any{map[string]any{"b": 1}}},
			map[string]any{"a": []any{map[string]any{"b": float64(1)}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := avjson.Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestInt64(t *testing.T) {
	n, err := avjson.Int64(&types.AttributeValueMemberN{Value: "7"})
	if err != nil || n != 7 {
		t.Fatalf("Int64 = %d, %v, want 7, nil", n, err)
	}
	if _, err := avjson.Int64(&types.AttributeValueMemberS{Value: "7"}); err == nil {
		t.Fatal("Int64 succeeded on a string attribute")
	}
}
