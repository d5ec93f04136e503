// Package stream turns DynamoDB Streams records into document change
// notifications. A Handler watches a single document attribute and reports
// the JSONPath of every leaf that was added, replaced, or removed.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/docpath/document"
)

// Op classifies a single document change.
type Op string

// Change operations, named after the JSON Patch verbs.
const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Change describes one modified location inside a document. Path is a
// normalized bracket-notation path such as $['orders'][2]['status'].
// Value holds the new value, or nil for a removal.
type Change struct {
	Path  string
	Op    Op
	Value any
}

// ChangeFunc receives the changes detected in a single stream record.
// Returning an error makes the handler fail the whole event so the
// Lambda runtime redelivers it.
type ChangeFunc func(ctx context.Context, key document.Key, changes []Change) error

// Handler processes DynamoDB stream events for a watched document attribute.
type Handler struct {
	attr   string
	fn     ChangeFunc
	logger *slog.Logger
}

// NewHandler creates a handler that watches the named document attribute.
func NewHandler(attr string, fn ChangeFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		attr:   attr,
		fn:     fn,
		logger: logger,
	}
}

// HandleEvent diffs the watched attribute across each record's images and
// invokes the callback once per record that touched it. This function is
// designed to be used as an AWS Lambda handler.
func (h *Handler) HandleEvent(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord diffs a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	oldAttr, oldPresent := record.Change.OldImage[h.attr]
	newAttr, newPresent := record.Change.NewImage[h.attr]
	if !oldPresent && !newPresent {
		return nil
	}

	key, ok := recordKey(record)
	if !ok {
		h.logger.Warn("skipping record without a usable key",
			"eventID", record.EventID,
			"eventSourceARN", record.EventSourceArn,
		)
		return nil
	}

	var changes []Change
	switch {
	case oldPresent && newPresent:
		diff("$", convertAttr(oldAttr), convertAttr(newAttr), &changes)
	case newPresent:
		changes = append(changes, Change{Path: "$", Op: OpAdd, Value: convertAttr(newAttr)})
	default:
		changes = append(changes, Change{Path: "$", Op: OpRemove})
	}
	if len(changes) == 0 {
		return nil
	}

	h.logger.Info("document changed",
		"key", key.String(),
		"eventName", record.EventName,
		"changeCount", len(changes),
	)

	if h.fn == nil {
		return nil
	}
	if err := h.fn(ctx, key, changes); err != nil {
		return fmt.Errorf("notify changes for %s: %w", key, err)
	}
	return nil
}

// diff walks two document trees in lockstep and appends one Change per leaf
// that differs. Containers that change type are reported as a single replace
// at the container path. Map keys are visited in sorted order so the output
// is deterministic.
func diff(path string, oldVal, newVal any, out *[]Change) {
	om, oldMap := oldVal.(map[string]any)
	nm, newMap := newVal.(map[string]any)
	if oldMap && newMap {
		for _, k := range unionKeys(om, nm) {
			ov, oHas := om[k]
			nv, nHas := nm[k]
			child := path + "[" + quoteName(k) + "]"
			switch {
			case oHas && !nHas:
				*out = append(*out, Change{Path: child, Op: OpRemove})
			case !oHas && nHas:
				*out = append(*out, Change{Path: child, Op: OpAdd, Value: nv})
			default:
				diff(child, ov, nv, out)
			}
		}
		return
	}

	ol, oldList := oldVal.([]any)
	nl, newList := newVal.([]any)
	if oldList && newList {
		n := len(ol)
		if len(nl) > n {
			n = len(nl)
		}
		for i := 0; i < n; i++ {
			child := path + "[" + strconv.Itoa(i) + "]"
			switch {
			case i >= len(nl):
				*out = append(*out, Change{Path: child, Op: OpRemove})
			case i >= len(ol):
				*out = append(*out, Change{Path: child, Op: OpAdd, Value: nl[i]})
			default:
				diff(child, ol[i], nl[i], out)
			}
		}
		return
	}

	if reflect.DeepEqual(oldVal, newVal) {
		return
	}
	*out = append(*out, Change{Path: path, Op: OpReplace, Value: newVal})
}

// unionKeys returns the sorted union of both maps' keys.
func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// quoteName renders a map key as a single-quoted path segment.
func quoteName(name string) string {
	name = strings.ReplaceAll(name, `\`, `\\`)
	name = strings.ReplaceAll(name, `'`, `\'`)
	return "'" + name + "'"
}

// recordKey identifies the changed item. The table name comes from the
// event source ARN and the ID from the record's key attributes; composite
// keys are supported only when one of the attributes is named "id".
func recordKey(record events.DynamoDBEventRecord) (document.Key, bool) {
	table := tableFromARN(record.EventSourceArn)
	keys := record.Change.Keys
	if table == "" || len(keys) == 0 {
		return document.Key{}, false
	}

	if v, ok := keys["id"]; ok && v.DataType() == events.DataTypeString {
		return document.Key{Table: table, ID: v.String()}, true
	}
	if len(keys) == 1 {
		for _, v := range keys {
			switch v.DataType() {
			case events.DataTypeString:
				return document.Key{Table: table, ID: v.String()}, true
			case events.DataTypeNumber:
				return document.Key{Table: table, ID: v.Number()}, true
			}
		}
	}
	return document.Key{}, false
}

// tableFromARN extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:region:account:table/Name/stream/Label.
func tableFromARN(arn string) string {
	parts := strings.Split(arn, "/")
	if len(parts) < 2 || !strings.HasSuffix(parts[0], ":table") {
		return ""
	}
	return parts[1]
}

// ConvertImage converts a full DynamoDB stream image into a plain document
// tree of maps, slices, and scalars. Use this when a callback needs item
// attributes beyond the watched document.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]any {
	result := make(map[string]any, len(image))
	for k, v := range image {
		result[k] = convertAttr(v)
	}
	return result
}

// convertAttr converts a single stream attribute value into a document node.
// Numbers become float64, sets become plain lists.
func convertAttr(v events.DynamoDBAttributeValue) any {
	switch v.DataType() {
	case events.DataTypeString:
		return v.String()
	case events.DataTypeNumber:
		n, err := strconv.ParseFloat(v.Number(), 64)
		if err != nil {
			return v.Number()
		}
		return n
	case events.DataTypeBoolean:
		return v.Boolean()
	case events.DataTypeNull:
		return nil
	case events.DataTypeBinary:
		return v.Binary()
	case events.DataTypeList:
		list := make([]any, 0, len(v.List()))
		for _, item := range v.List() {
			list = append(list, convertAttr(item))
		}
		return list
	case events.DataTypeMap:
		m := make(map[string]any, len(v.Map()))
		for k, item := range v.Map() {
			m[k] = convertAttr(item)
		}
		return m
	case events.DataTypeStringSet:
		list := make([]any, 0, len(v.StringSet()))
		for _, s := range v.StringSet() {
			list = append(list, s)
		}
		return list
	case events.DataTypeNumberSet:
		list := make([]any, 0, len(v.NumberSet()))
		for _, s := range v.NumberSet() {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				list = append(list, n)
			} else {
				list = append(list, s)
			}
		}
		return list
	case events.DataTypeBinarySet:
		list := make([]any, 0, len(v.BinarySet()))
		for _, b := range v.BinarySet() {
			list = append(list, b)
		}
		return list
	default:
		return nil
	}
}
