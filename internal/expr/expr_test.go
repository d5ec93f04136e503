package expr_test

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docpath/internal/expr"
	"github.com/jacentio/docpath/internal/jpath"
)

func str(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

func TestNewPath(t *testing.T) {
	tests := []struct {
		name   string
		attr   string
		tokens []jpath.Token
		expr   string
		names  map[string]string
	}{
		{
			name:  "root",
			attr:  "profile",
			expr:  "#doc",
			names: map[string]string{"#doc": "profile"},
		},
		{
			name:   "nested names and indexes",
			attr:   "profile",
			tokens: []jpath.Token{{Name: "a"}, {Index: 2, IsIndex: true}, {Name: "b"}},
			expr:   "#doc.#p0[2].#p1",
			names:  map[string]string{"#doc": "profile", "#p0": "a", "#p1": "b"},
		},
		{
			name:   "reserved word name",
			attr:   "doc",
			tokens: []jpath.Token{{Name: "size"}},
			expr:   "#doc.#p0",
			names:  map[string]string{"#doc": "doc", "#p0": "size"},
		},
		{
			name:   "index only",
			attr:   "doc",
			tokens: []jpath.Token{{Index: 0, IsIndex: true}},
			expr:   "#doc[0]",
			names:  map[string]string{"#doc": "doc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := expr.NewPath(tt.attr, tt.tokens)
			if p.Expr != tt.expr {
				t.Errorf("Expr = %q, want %q", p.Expr, tt.expr)
			}
			if !reflect.DeepEqual(p.Names, tt.names) {
				t.Errorf("Names = %v, want %v", p.Names, tt.names)
			}
		})
	}
}

func TestProjection(t *testing.T) {
	p := expr.NewPath("doc", []jpath.Token{{Name: "a"}})

	got, names := expr.Projection(p)
	if got != "#doc.#p0" {
		t.Errorf("Projection = %q, want %q", got, "#doc.#p0")
	}
	if !reflect.DeepEqual(names, map[string]string{"#doc": "doc", "#p0": "a"}) {
		t.Errorf("names = %v", names)
	}

	got, names = expr.Projection(p, "version")
	if got != "#doc.#p0, #x0" {
		t.Errorf("Projection with extra = %q, want %q", got, "#doc.#p0, #x0")
	}
	if names["#x0"] != "version" {
		t.Errorf("names[#x0] = %q, want %q", names["#x0"], "version")
	}
}

func TestNewSet(t *testing.T) {
	p := expr.NewPath("doc", []jpath.Token{{Name: "a"}})
	u := expr.NewSet(p, str("v"))

	if got, want := u.Expression(), "SET #doc.#p0 = :val"; got != want {
		t.Errorf("Expression = %q, want %q", got, want)
	}
	if u.Condition() != "" {
		t.Errorf("Condition = %q, want empty", u.Condition())
	}
	if !reflect.DeepEqual(u.Values, map[string]types.AttributeValue{":val": str("v")}) {
		t.Errorf("Values = %v", u.Values)
	}
}

func TestNewListAppend(t *testing.T) {
	p := expr.NewPath("doc", []jpath.Token{{Name: "list"}, {Index: 1, IsIndex: true}})
	elems := &types.AttributeValueMemberL{Value: []types.AttributeValue{str("v")}}
	u := expr.NewListAppend(p, elems)

	want := "SET #doc.#p0[1] = list_append(#doc.#p0[1], :val)"
	if got := u.Expression(); got != want {
		t.Errorf("Expression = %q, want %q", got, want)
	}
	if got, want := u.Condition(), "attribute_exists(#doc.#p0[1])"; got != want {
		t.Errorf("Condition = %q, want %q", got, want)
	}
}

func TestNewRemove(t *testing.T) {
	p := expr.NewPath("doc", []jpath.Token{{Name: "list"}, {Index: 3, IsIndex: true}})

	u := expr.NewRemove(p, false)
	if got, want := u.Expression(), "REMOVE #doc.#p0[3]"; got != want {
		t.Errorf("Expression = %q, want %q", got, want)
	}
	if u.Condition() != "" {
		t.Errorf("Condition = %q, want empty", u.Condition())
	}

	u = expr.NewRemove(p, true)
	if got, want := u.Condition(), "attribute_exists(#doc.#p0[3])"; got != want {
		t.Errorf("guarded Condition = %q, want %q", got, want)
	}
}

func TestVersionClauses(t *testing.T) {
	p := expr.NewPath("doc", nil)

	u := expr.NewSet(p, str("v"))
	u.BumpVersion("version")
	want := "SET #doc = :val, #ver = if_not_exists(#ver, :zero) + :one"
	if got := u.Expression(); got != want {
		t.Errorf("Expression = %q, want %q", got, want)
	}
	if u.Names["#ver"] != "version" {
		t.Errorf("Names[#ver] = %q, want %q", u.Names["#ver"], "version")
	}
	if !reflect.DeepEqual(u.Values[":one"], expr.Number(1)) {
		t.Errorf("Values[:one] = %v", u.Values[":one"])
	}

	u.RequireVersion("version", 5)
	if got, want := u.Condition(), "#ver = :expver"; got != want {
		t.Errorf("Condition = %q, want %q", got, want)
	}
	if !reflect.DeepEqual(u.Values[":expver"], expr.Number(5)) {
		t.Errorf("Values[:expver] = %v", u.Values[":expver"])
	}
}

func TestRequireVersionZero(t *testing.T) {
	p := expr.NewPath("doc", nil)
	u := expr.NewSet(p, str("v"))
	u.RequireVersion("version", 0)

	if got, want := u.Condition(), "attribute_not_exists(#ver)"; got != want {
		t.Errorf("Condition = %q, want %q", got, want)
	}
	if _, ok := u.Values[":expver"]; ok {
		t.Error("Values[:expver] present for version zero")
	}
}

func TestRemoveWithVersionBump(t *testing.T) {
	p := expr.NewPath("doc", []jpath.Token{{Name: "a"}})
	u := expr.NewRemove(p, true)
	u.BumpVersion("version")
	u.RequireVersion("version", 2)

	want := "SET #ver = if_not_exists(#ver, :zero) + :one REMOVE #doc.#p0"
	if got := u.Expression(); got != want {
		t.Errorf("Expression = %q, want %q", got, want)
	}
	wantCond := "attribute_exists(#doc.#p0) AND #ver = :expver"
	if got := u.Condition(); got != wantCond {
		t.Errorf("Condition = %q, want %q", got, wantCond)
	}
}

func TestMergeHelpers(t *testing.T) {
	a := map[string]string{"#a": "x"}
	b := map[string]string{"#b": "y"}
	merged := expr.MergeNames(a, b)
	if !reflect.DeepEqual(merged, map[string]string{"#a": "x", "#b": "y"}) {
		t.Errorf("MergeNames = %v", merged)
	}
	a["#a"] = "mutated"
	if merged["#a"] != "x" {
		t.Error("MergeNames result shares storage with input")
	}

	vals := expr.MergeValues(
		map[string]types.AttributeValue{":a": str("1")},
		map[string]types.AttributeValue{":b": str("2")},
	)
	if len(vals) != 2 {
		t.Errorf("MergeValues length = %d, want 2", len(vals))
	}
}
