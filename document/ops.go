package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docpath/internal/avjson"
	"github.com/jacentio/docpath/internal/expr"
	"github.com/jacentio/docpath/internal/jpath"
	"github.com/jacentio/docpath/internal/patch"
)

// Get returns the value addressed by path in the document stored in
// attr of the item at key.
//
// A server-addressable path returns the single value it resolves to. A
// path with wildcards, descendants, filters, slices or negative indexes
// returns a []any of every match, empty when nothing matches. A
// trailing .length() returns an int for a single target, or a []any of
// the lengths of every measurable match.
func (c *Client) Get(ctx context.Context, key Key, attr, path string, opts *ReadOptions) (any, error) {
	if err := c.check(key, attr); err != nil {
		return nil, err
	}
	plan, err := c.parsePath(path)
	if err != nil {
		return nil, err
	}
	doc, _, err := c.fetchDoc(ctx, key, attr, plan.Tokens, c.consistent(opts))
	if err != nil {
		return nil, err
	}
	if plan.Simple() {
		if !plan.Length {
			return doc, nil
		}
		n, ok := patch.Length(doc)
		if !ok {
			return nil, fmt.Errorf("%w: %q has no length", ErrNotFound, path)
		}
		return n, nil
	}
	matches := []any(plan.Advanced.Select(doc))
	if matches == nil {
		matches = []any{}
	}
	if plan.Length {
		lengths := make([]any, 0, len(matches))
		for _, m := range matches {
			if n, ok := patch.Length(m); ok {
				lengths = append(lengths, n)
			}
		}
		return lengths, nil
	}
	return matches, nil
}

// Exists reports whether path resolves to at least one value in the
// document stored in attr of the item at key.
func (c *Client) Exists(ctx context.Context, key Key, attr, path string, opts *ReadOptions) (bool, error) {
	if err := c.check(key, attr); err != nil {
		return false, err
	}
	plan, err := c.parsePath(path)
	if err != nil {
		return false, err
	}
	doc, _, err := c.fetchDoc(ctx, key, attr, plan.Tokens, c.consistent(opts))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if plan.Simple() {
		if plan.Length {
			_, ok := patch.Length(doc)
			return ok, nil
		}
		return true, nil
	}
	matches := plan.Advanced.Select(doc)
	if plan.Length {
		for _, m := range matches {
			if _, ok := patch.Length(m); ok {
				return true, nil
			}
		}
		return false, nil
	}
	return len(matches) > 0, nil
}

// Put writes value at the location addressed by path. Writing to $
// creates the item when it doesn't exist; any deeper write requires the
// parent structure to be present. An advanced path writes value at
// every match through a read-modify-write, skipping the write entirely
// when nothing matches.
func (c *Client) Put(ctx context.Context, key Key, attr, path string, value any, opts *WriteOptions) error {
	plan, err := c.checkWrite(key, attr, path)
	if err != nil {
		return err
	}
	if plan.Simple() {
		av, err := avjson.Encode(value)
		if err != nil {
			return fmt.Errorf("docpath: encode value: %w", err)
		}
		u := expr.NewSet(expr.NewPath(attr, plan.Tokens), av)
		return c.execUpdate(ctx, key, u, opts, ErrConcurrentModification)
	}
	val, err := avjson.Normalize(value)
	if err != nil {
		return fmt.Errorf("docpath: encode value: %w", err)
	}
	return c.readModifyWrite(ctx, key, attr, plan, opts, func(doc any) (any, int, error) {
		return patch.SetAll(plan.Advanced, doc, val)
	})
}

// Append appends value to the list addressed by path. The list must
// exist. An advanced path appends to every match and fails with
// ErrNotAList before writing anything when a match is not a list.
func (c *Client) Append(ctx context.Context, key Key, attr, path string, value any, opts *WriteOptions) error {
	plan, err := c.checkWrite(key, attr, path)
	if err != nil {
		return err
	}
	if plan.Simple() {
		av, err := avjson.Encode(value)
		if err != nil {
			return fmt.Errorf("docpath: encode value: %w", err)
		}
		elems := &types.AttributeValueMemberL{Value: []types.AttributeValue{av}}
		u := expr.NewListAppend(expr.NewPath(attr, plan.Tokens), elems)
		return c.execUpdate(ctx, key, u, opts, ErrNotFound)
	}
	val, err := avjson.Normalize(value)
	if err != nil {
		return fmt.Errorf("docpath: encode value: %w", err)
	}
	return c.readModifyWrite(ctx, key, attr, plan, opts, func(doc any) (any, int, error) {
		out, n, err := patch.AppendAll(plan.Advanced, doc, val)
		if errors.Is(err, patch.ErrNotList) {
			return out, n, fmt.Errorf("%w: %q", ErrNotAList, path)
		}
		return out, n, err
	})
}

// Delete removes the value addressed by path. Deleting $ resets the
// document to an empty map, creating the item when needed. Deleting a
// missing map member is not an error; deleting an out-of-range list
// index is. An advanced path removes every match deepest first.
func (c *Client) Delete(ctx context.Context, key Key, attr, path string, opts *WriteOptions) error {
	plan, err := c.checkWrite(key, attr, path)
	if err != nil {
		return err
	}
	if plan.Simple() {
		if len(plan.Tokens) == 0 {
			empty := &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
			u := expr.NewSet(expr.NewPath(attr, nil), empty)
			return c.execUpdate(ctx, key, u, opts, ErrConcurrentModification)
		}
		last := plan.Tokens[len(plan.Tokens)-1]
		u := expr.NewRemove(expr.NewPath(attr, plan.Tokens), last.IsIndex)
		return c.execUpdate(ctx, key, u, opts, ErrNotFound)
	}
	return c.readModifyWrite(ctx, key, attr, plan, opts, func(doc any) (any, int, error) {
		return patch.RemoveAll(plan.Advanced, doc)
	})
}

// Version returns the stored version of the item at key, zero when the
// version attribute is absent.
func (c *Client) Version(ctx context.Context, key Key, opts *ReadOptions) (int64, error) {
	if !c.versioned() {
		return 0, ErrVersioningDisabled
	}
	if key.Table == "" || key.ID == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	out, err := c.getItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(key.Table),
		Key:                      c.keyAV(key),
		ProjectionExpression:     aws.String(expr.VersionAlias),
		ExpressionAttributeNames: map[string]string{expr.VersionAlias: c.config.VersionAttribute},
		ConsistentRead:           aws.Bool(c.consistent(opts)),
	})
	if err != nil {
		return 0, mapReadErr(err)
	}
	if len(out.Item) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	av, ok := out.Item[c.config.VersionAttribute]
	if !ok {
		return 0, nil
	}
	version, err := avjson.Int64(av)
	if err != nil {
		return 0, fmt.Errorf("docpath: version attribute: %w", err)
	}
	return version, nil
}

// checkWrite validates the operands shared by the write operations.
func (c *Client) checkWrite(key Key, attr, path string) (*jpath.Plan, error) {
	if err := c.check(key, attr); err != nil {
		return nil, err
	}
	plan, err := c.parsePath(path)
	if err != nil {
		return nil, err
	}
	if plan.Length {
		return nil, fmt.Errorf("%w: %q: length() is not writable", ErrInvalidPath, path)
	}
	return plan, nil
}

// readModifyWrite fetches the smallest document containing the plan's
// prefix, applies mutate to it and writes it back at the prefix. With
// versioning enabled the write carries a version condition and retries
// on races; with an explicit IfVersion it fails on the first race.
func (c *Client) readModifyWrite(ctx context.Context, key Key, attr string, plan *jpath.Plan, opts *WriteOptions, mutate func(any) (any, int, error)) error {
	external := ifVersion(opts)
	if external != nil && !c.versioned() {
		return fmt.Errorf("%w: IfVersion requires Config.VersionAttribute", ErrVersioningDisabled)
	}
	attempts := 1
	if c.versioned() && external == nil {
		attempts = c.config.MaxRMWAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = c.rmwOnce(ctx, key, attr, plan, external, mutate)
		if err == nil || !errors.Is(err, ErrConcurrentModification) || external != nil {
			return err
		}
		c.logger.Debug("version race, retrying",
			"key", key.String(), "attempt", i+1, "remainder", plan.AdvancedString)
	}
	c.logger.Warn("read-modify-write attempts exhausted",
		"key", key.String(), "attempts", attempts)
	return err
}

func (c *Client) rmwOnce(ctx context.Context, key Key, attr string, plan *jpath.Plan, external *int64, mutate func(any) (any, int, error)) error {
	doc, version, err := c.fetchDoc(ctx, key, attr, plan.Tokens, true)
	if err != nil {
		return err
	}
	doc, n, err := mutate(doc)
	if err != nil {
		return err
	}
	if n == 0 {
		c.logger.Debug("no matches, write skipped",
			"key", key.String(), "remainder", plan.AdvancedString)
		return nil
	}
	av, err := avjson.Encode(doc)
	if err != nil {
		return fmt.Errorf("docpath: encode document: %w", err)
	}
	u := expr.NewSet(expr.NewPath(attr, plan.Tokens), av)
	if c.versioned() {
		u.BumpVersion(c.config.VersionAttribute)
		expected := version
		if external != nil {
			expected = *external
		}
		u.RequireVersion(c.config.VersionAttribute, expected)
	}
	return c.runUpdate(ctx, key, u, ErrConcurrentModification)
}
