package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/jacentio/docpath/internal/avjson"
	"github.com/jacentio/docpath/internal/expr"
	"github.com/jacentio/docpath/internal/jpath"
)

// API is the subset of the DynamoDB client the document client uses.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Client provides path-addressed operations on JSON documents stored in
// DynamoDB item attributes.
type Client struct {
	api     API
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a new Client instance.
func New(api API, config Config) *Client {
	config.validate()
	return &Client{
		api:     api,
		config:  config,
		limiter: newLimiter(config.RateLimit),
		logger:  config.Logger,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

func newLimiter(rps float64) *rate.Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return rate.NewLimiter(limit, 1)
}

func (c *Client) versioned() bool {
	return c.config.VersionAttribute != ""
}

func (c *Client) consistent(opts *ReadOptions) bool {
	if opts != nil && opts.ConsistentRead != nil {
		return *opts.ConsistentRead
	}
	return c.config.ConsistentReads
}

func ifVersion(opts *WriteOptions) *int64 {
	if opts == nil {
		return nil
	}
	return opts.IfVersion
}

// check validates the key and the document attribute name.
func (c *Client) check(key Key, attr string) error {
	if key.Table == "" || key.ID == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if attr == "" || attr == c.config.KeyAttribute || attr == c.config.VersionAttribute {
		return fmt.Errorf("%w: %q", ErrInvalidAttribute, attr)
	}
	return nil
}

// parsePath plans a path expression, mapping parse failures to the
// public sentinel errors.
func (c *Client) parsePath(path string) (*jpath.Plan, error) {
	plan, err := jpath.Parse(path)
	if err != nil {
		if errors.Is(err, jpath.ErrMissingRoot) {
			return nil, fmt.Errorf("%w: %q", ErrMissingRoot, path)
		}
		c.logger.Debug("path rejected", "path", path, "err", err)
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	c.logger.Debug("path planned",
		"path", path,
		"prefix", len(plan.Tokens),
		"remainder", plan.AdvancedString,
		"length", plan.Length)
	return plan, nil
}

func (c *Client) keyAV(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		c.config.KeyAttribute: &types.AttributeValueMemberS{Value: key.ID},
	}
}

func (c *Client) getItem(ctx context.Context, in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.api.GetItem(ctx, in)
}

func (c *Client) updateItem(ctx context.Context, in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.api.UpdateItem(ctx, in)
}

// fetchDoc reads the smallest part of the document containing the token
// prefix, along with the stored version when versioning is enabled.
func (c *Client) fetchDoc(ctx context.Context, key Key, attr string, tokens []jpath.Token, consistent bool) (any, int64, error) {
	p := expr.NewPath(attr, tokens)
	var projection string
	var names map[string]string
	if c.versioned() {
		projection, names = expr.Projection(p, c.config.VersionAttribute)
	} else {
		projection, names = expr.Projection(p)
	}
	out, err := c.getItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(key.Table),
		Key:                      c.keyAV(key),
		ProjectionExpression:     aws.String(projection),
		ExpressionAttributeNames: names,
		ConsistentRead:           aws.Bool(consistent),
	})
	if err != nil {
		return nil, 0, mapReadErr(err)
	}
	if len(out.Item) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var version int64
	if c.versioned() {
		if av, ok := out.Item[c.config.VersionAttribute]; ok {
			version, err = avjson.Int64(av)
			if err != nil {
				return nil, 0, fmt.Errorf("docpath: version attribute: %w", err)
			}
		}
	}
	doc, err := extract(out.Item, attr, tokens)
	if err != nil {
		return nil, 0, err
	}
	return doc, version, nil
}

// extract walks a projection result down to the addressed value.
// Projected list elements come back compacted, so an index step always
// reads element zero of the shell.
func extract(item map[string]types.AttributeValue, attr string, tokens []jpath.Token) (any, error) {
	av, ok := item[attr]
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q", ErrNotFound, attr)
	}
	node, err := avjson.Decode(av)
	if err != nil {
		return nil, fmt.Errorf("docpath: decode document: %w", err)
	}
	for _, tok := range tokens {
		switch n := node.(type) {
		case map[string]any:
			if tok.IsIndex {
				return nil, ErrNotFound
			}
			child, ok := n[tok.Name]
			if !ok {
				return nil, ErrNotFound
			}
			node = child
		case []any:
			if !tok.IsIndex || len(n) == 0 {
				return nil, ErrNotFound
			}
			node = n[0]
		default:
			return nil, ErrNotFound
		}
	}
	return node, nil
}

// runUpdate executes an update, reporting a failed condition as
// condFailed.
func (c *Client) runUpdate(ctx context.Context, key Key, u *expr.Update, condFailed error) error {
	in := &dynamodb.UpdateItemInput{
		TableName:                aws.String(key.Table),
		Key:                      c.keyAV(key),
		UpdateExpression:         aws.String(u.Expression()),
		ExpressionAttributeNames: u.Names,
	}
	if len(u.Values) > 0 {
		in.ExpressionAttributeValues = u.Values
	}
	if cond := u.Condition(); cond != "" {
		in.ConditionExpression = aws.String(cond)
	}
	if _, err := c.updateItem(ctx, in); err != nil {
		return mapUpdateErr(err, condFailed)
	}
	return nil
}

// execUpdate applies the write options to u and runs it. condFailed is
// the error reported for a failed condition when no explicit version
// requirement is present.
func (c *Client) execUpdate(ctx context.Context, key Key, u *expr.Update, opts *WriteOptions, condFailed error) error {
	if c.versioned() {
		u.BumpVersion(c.config.VersionAttribute)
	}
	if v := ifVersion(opts); v != nil {
		if !c.versioned() {
			return fmt.Errorf("%w: IfVersion requires Config.VersionAttribute", ErrVersioningDisabled)
		}
		u.RequireVersion(c.config.VersionAttribute, *v)
		condFailed = ErrConcurrentModification
	}
	return c.runUpdate(ctx, key, u, condFailed)
}

// mapUpdateErr converts UpdateItem failures into the package errors. A
// ValidationException means the document path doesn't resolve inside
// the stored item, except for list_append operand errors, which mean
// the target exists but is not a list.
func mapUpdateErr(err error, condFailed error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return condFailed
	}
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorCode() == "ValidationException" {
		if strings.Contains(ae.ErrorMessage(), "list_append") {
			return fmt.Errorf("%w: %s", ErrNotAList, ae.ErrorMessage())
		}
		return fmt.Errorf("%w: %s", ErrNotFound, ae.ErrorMessage())
	}
	return err
}

// mapReadErr converts GetItem failures. Paths the server cannot serve,
// such as ones beyond the nesting limit, report as not found.
func mapReadErr(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorCode() == "ValidationException" {
		return fmt.Errorf("%w: %s", ErrNotFound, ae.ErrorMessage())
	}
	return err
}
