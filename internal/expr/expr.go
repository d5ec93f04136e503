// Package expr renders DynamoDB expression fragments for document
// paths. Member names always go through expression attribute name
// placeholders, so reserved words and names with special characters are
// safe to address.
package expr

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docpath/internal/jpath"
)

// DocAlias is the placeholder for the document attribute.
const DocAlias = "#doc"

// VersionAlias is the placeholder for the version attribute.
const VersionAlias = "#ver"

// Path is a rendered document path with its name placeholders.
type Path struct {
	Expr  string
	Names map[string]string
}

// NewPath renders the document path for attr followed by tokens.
func NewPath(attr string, tokens []jpath.Token) Path {
	names := map[string]string{DocAlias: attr}
	var b strings.Builder
	b.WriteString(DocAlias)
	n := 0
	for _, tok := range tokens {
		if tok.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(tok.Index))
			b.WriteByte(']')
			continue
		}
		alias := "#p" + strconv.Itoa(n)
		n++
		names[alias] = tok.Name
		b.WriteByte('.')
		b.WriteString(alias)
	}
	return Path{Expr: b.String(), Names: names}
}

// Projection renders a projection expression for p plus any extra
// top-level attributes.
func Projection(p Path, extra ...string) (string, map[string]string) {
	exprs := []string{p.Expr}
	names := MergeNames(p.Names)
	for i, attr := range extra {
		alias := "#x" + strconv.Itoa(i)
		names[alias] = attr
		exprs = append(exprs, alias)
	}
	return strings.Join(exprs, ", "), names
}

// Update accumulates the clauses of an UpdateItem call.
type Update struct {
	set    []string
	remove []string
	conds  []string

	Names  map[string]string
	Values map[string]types.AttributeValue
}

// NewSet builds an update that writes v at p.
func NewSet(p Path, v types.AttributeValue) *Update {
	return &Update{
		set:    []string{p.Expr + " = :val"},
		Names:  MergeNames(p.Names),
		Values: map[string]types.AttributeValue{":val": v},
	}
}

// NewListAppend builds an update that appends the elements of list v to
// the list at p. The write is guarded so a missing target fails the
// condition instead of creating one.
func NewListAppend(p Path, v types.AttributeValue) *Update {
	return &Update{
		set:    []string{p.Expr + " = list_append(" + p.Expr + ", :val)"},
		conds:  []string{"attribute_exists(" + p.Expr + ")"},
		Names:  MergeNames(p.Names),
		Values: map[string]types.AttributeValue{":val": v},
	}
}

// NewRemove builds an update that removes the value at p. With guard
// set the target must exist, which turns an out-of-range index into a
// failed condition.
func NewRemove(p Path, guard bool) *Update {
	u := &Update{
		remove: []string{p.Expr},
		Names:  MergeNames(p.Names),
		Values: map[string]types.AttributeValue{},
	}
	if guard {
		u.conds = append(u.conds, "attribute_exists("+p.Expr+")")
	}
	return u
}

// BumpVersion adds an unconditional version increment for attr.
func (u *Update) BumpVersion(attr string) {
	u.set = append(u.set, VersionAlias+" = if_not_exists("+VersionAlias+", :zero) + :one")
	u.Names[VersionAlias] = attr
	u.Values[":zero"] = Number(0)
	u.Values[":one"] = Number(1)
}

// RequireVersion adds a condition that attr holds version. Version zero
// requires the attribute to be absent.
func (u *Update) RequireVersion(attr string, version int64) {
	u.Names[VersionAlias] = attr
	if version == 0 {
		u.conds = append(u.conds, "attribute_not_exists("+VersionAlias+")")
		return
	}
	u.conds = append(u.conds, VersionAlias+" = :expver")
	u.Values[":expver"] = Number(version)
}

// Expression renders the UpdateExpression.
func (u *Update) Expression() string {
	var parts []string
	if len(u.set) > 0 {
		parts = append(parts, "SET "+strings.Join(u.set, ", "))
	}
	if len(u.remove) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(u.remove, ", "))
	}
	return strings.Join(parts, " ")
}

// Condition renders the ConditionExpression, empty when unconditional.
func (u *Update) Condition() string {
	return strings.Join(u.conds, " AND ")
}

// Number renders n as a DynamoDB number value.
func Number(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

// MergeNames merges placeholder name maps into a fresh map.
func MergeNames(ms ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range ms {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// MergeValues merges expression value maps into a fresh map.
func MergeValues(ms ...map[string]types.AttributeValue) map[string]types.AttributeValue {
	merged := make(map[string]types.AttributeValue)
	for _, m := range ms {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
