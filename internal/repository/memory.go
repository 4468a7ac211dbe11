package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryCollection is an in-process Collection. Documents are kept in
// their bson form so queries see the same field names as MongoDB. Fields
// registered with WithSearchField are indexed in an in-memory bleve index.
type MemoryCollection[T any] struct {
	name         string
	unique       []string
	searchFields []string

	mu    sync.RWMutex
	docs  map[string]*memoryDoc
	seq   int64
	index bleve.Index
}

type memoryDoc struct {
	fields bson.M
	seq    int64
}

type memoryOptions struct {
	unique       []string
	searchFields []string
}

// MemoryOption configures a MemoryCollection.
type MemoryOption func(*memoryOptions)

// WithUniqueField rejects creates and updates that would duplicate field.
func WithUniqueField(field string) MemoryOption {
	return func(o *memoryOptions) { o.unique = append(o.unique, field) }
}

// WithSearchField makes field available to Search queries.
func WithSearchField(field string) MemoryOption {
	return func(o *memoryOptions) { o.searchFields = append(o.searchFields, field) }
}

// NewMemoryCollection creates an empty in-memory collection.
func NewMemoryCollection[T any](name string, opts ...MemoryOption) (*MemoryCollection[T], error) {
	var o memoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &MemoryCollection[T]{
		name:         name,
		unique:       o.unique,
		searchFields: o.searchFields,
		docs:         make(map[string]*memoryDoc),
	}
	if len(o.searchFields) > 0 {
		idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create search index for %s: %w", name, err)
		}
		c.index = idx
	}
	return c, nil
}

func (c *MemoryCollection[T]) Create(_ context.Context, doc *T) error {
	m, err := toBSON(doc)
	if err != nil {
		return err
	}
	id, _ := m["_id"].(string)
	if id == "" {
		return fmt.Errorf("create in %s: document has no _id", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; ok {
		return fmt.Errorf("%w: _id %s", ErrDuplicate, id)
	}
	if err := c.checkUnique(id, m); err != nil {
		return err
	}

	c.seq++
	c.docs[id] = &memoryDoc{fields: m, seq: c.seq}
	return c.reindex(id, m)
}

func (c *MemoryCollection[T]) Get(_ context.Context, id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return fromBSON[T](d.fields)
}

func (c *MemoryCollection[T]) List(ctx context.Context, queries ...Query) ([]*T, error) {
	spec := compile(queries)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var hits map[string]struct{}
	if spec.searchTerm != "" {
		var err error
		if hits, err = c.search(ctx, spec.searchField, spec.searchTerm); err != nil {
			return nil, err
		}
	}

	matched := make([]*memoryDoc, 0, len(c.docs))
	for id, d := range c.docs {
		if hits != nil {
			if _, ok := hits[id]; !ok {
				continue
			}
		}
		if matchesAll(d.fields, spec.equals) {
			matched = append(matched, d)
		}
	}

	before := func(a, b *memoryDoc) bool {
		cmp := compareValues(a.fields[spec.orderField], b.fields[spec.orderField])
		if cmp == 0 {
			cmp = compareValues(a.seq, b.seq)
		}
		if spec.desc {
			return cmp > 0
		}
		return cmp < 0
	}
	sort.Slice(matched, func(i, j int) bool { return before(matched[i], matched[j]) })

	if spec.cursor != "" {
		anchor, ok := c.docs[spec.cursor]
		if !ok {
			return nil, fmt.Errorf("cursor %s: %w", spec.cursor, ErrNotFound)
		}
		after := make([]*memoryDoc, 0, len(matched))
		for _, d := range matched {
			if before(anchor, d) {
				after = append(after, d)
			}
		}
		matched = after
	}

	if spec.limit > 0 && len(matched) > spec.limit {
		matched = matched[:spec.limit]
	}

	out := make([]*T, 0, len(matched))
	for _, d := range matched {
		doc, err := fromBSON[T](d.fields)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *MemoryCollection[T]) Update(_ context.Context, id string, fields Fields) (*T, error) {
	set, err := toBSON(map[string]any(fields))
	if err != nil {
		return nil, err
	}
	set["updatedAt"] = primitive.NewDateTimeFromTime(time.Now().UTC())

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}

	merged := make(bson.M, len(d.fields)+len(set))
	for k, v := range d.fields {
		merged[k] = v
	}
	for k, v := range set {
		merged[k] = v
	}
	if err := c.checkUnique(id, merged); err != nil {
		return nil, err
	}

	d.fields = merged
	if err := c.reindex(id, merged); err != nil {
		return nil, err
	}
	return fromBSON[T](merged)
}

func (c *MemoryCollection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	if c.index != nil {
		if err := c.index.Delete(id); err != nil {
			return fmt.Errorf("unindex %s/%s: %w", c.name, id, err)
		}
	}
	return nil
}

// Len returns the number of stored documents.
func (c *MemoryCollection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *MemoryCollection[T]) checkUnique(id string, m bson.M) error {
	for _, field := range c.unique {
		v, ok := m[field]
		if !ok || v == nil || v == "" {
			continue
		}
		for otherID, other := range c.docs {
			if otherID != id && reflect.DeepEqual(other.fields[field], v) {
				return fmt.Errorf("%w: %s=%v", ErrDuplicate, field, v)
			}
		}
	}
	return nil
}

func (c *MemoryCollection[T]) reindex(id string, m bson.M) error {
	if c.index == nil {
		return nil
	}
	body := make(map[string]any, len(c.searchFields))
	for _, f := range c.searchFields {
		if s, ok := m[f].(string); ok {
			body[f] = s
		}
	}
	if err := c.index.Index(id, body); err != nil {
		return fmt.Errorf("index %s/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *MemoryCollection[T]) search(ctx context.Context, field, term string) (map[string]struct{}, error) {
	if c.index == nil || !contains(c.searchFields, field) {
		return nil, fmt.Errorf("field %q of %s is not searchable", field, c.name)
	}
	q := bleve.NewMatchQuery(term)
	q.SetField(field)
	req := bleve.NewSearchRequestOptions(q, len(c.docs)+1, 0, false)
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.name, err)
	}
	hits := make(map[string]struct{}, len(res.Hits))
	for _, h := range res.Hits {
		hits[h.ID] = struct{}{}
	}
	return hits, nil
}

func matchesAll(m bson.M, equals []fieldValue) bool {
	for _, eq := range equals {
		if !matches(m[eq.field], eq.value) {
			return false
		}
	}
	return true
}

func matches(stored, want any) bool {
	if arr, ok := stored.(primitive.A); ok {
		for _, el := range arr {
			if reflect.DeepEqual(el, want) {
				return true
			}
		}
		return false
	}
	return reflect.DeepEqual(stored, want)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// compareValues orders the scalar types that appear in stored documents.
// nil sorts before everything else.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			return compareOrdered(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return compareOrdered(av, bv)
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return compareOrdered(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return compareOrdered(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return compareOrdered(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return compareOrdered(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered[V int32 | int64 | float64 | string | primitive.DateTime](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toBSON(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return m, nil
}

func fromBSON[T any](m bson.M) (*T, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
