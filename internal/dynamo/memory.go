package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Memory implements API backed by process memory. Intended for tests. Tables
// must be registered with CreateTable before use so Put can extract key
// attributes from full items.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]Item
	keys   map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]map[string]Item),
		keys:   make(map[string][]string),
	}
}

// CreateTable registers a table and its key attribute names.
func (m *Memory) CreateTable(name string, keyAttrs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = make(map[string]Item)
	m.keys[name] = keyAttrs
}

func (m *Memory) Get(_ context.Context, table string, key Item) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, err := m.table(table)
	if err != nil {
		return nil, err
	}

	item, ok := items[itemKeyString(key)]
	if !ok {
		return nil, nil
	}

	return cloneItem(item), nil
}

func (m *Memory) Put(_ context.Context, table string, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.table(table)
	if err != nil {
		return err
	}

	key, err := m.keyOf(table, item)
	if err != nil {
		return err
	}

	items[itemKeyString(key)] = cloneItem(item)
	return nil
}

func (m *Memory) Delete(_ context.Context, table string, key Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.table(table)
	if err != nil {
		return err
	}

	delete(items, itemKeyString(key))
	return nil
}

func (m *Memory) Update(_ context.Context, table string, key Item, set Item, cond *Condition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.table(table)
	if err != nil {
		return err
	}

	ks := itemKeyString(key)
	current := items[ks]

	if !conditionHolds(cond, current) {
		return ErrConditionFailed
	}

	items[ks] = applySet(current, key, set)
	return nil
}

func (m *Memory) Query(_ context.Context, table, _ string, attr, value string, _ Item) ([]Item, Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, err := m.table(table)
	if err != nil {
		return nil, nil, err
	}

	var out []Item
	for _, ks := range sortedKeys(items) {
		item := items[ks]
		if v, ok := stringValue(item[attr]); ok && v == value {
			out = append(out, cloneItem(item))
		}
	}

	return out, nil, nil
}

func (m *Memory) Scan(_ context.Context, table string, limit int32, startKey Item) ([]Item, Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, err := m.table(table)
	if err != nil {
		return nil, nil, err
	}

	keys := sortedKeys(items)

	start := 0
	if len(startKey) > 0 {
		after := itemKeyString(startKey)
		for i, ks := range keys {
			if ks == after {
				start = i + 1
				break
			}
		}
	}

	end := len(keys)
	if limit > 0 && start+int(limit) < end {
		end = start + int(limit)
	}

	var out []Item
	for _, ks := range keys[start:end] {
		out = append(out, cloneItem(items[ks]))
	}

	var next Item
	if end < len(keys) && len(out) > 0 {
		last := out[len(out)-1]
		next, err = m.keyOf(table, last)
		if err != nil {
			return nil, nil, err
		}
	}

	return out, next, nil
}

// TransactWrite checks every condition under one lock and applies all writes
// only if every one of them holds.
func (m *Memory) TransactWrite(_ context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		items, err := m.table(w.Table)
		if err != nil {
			return err
		}
		if !conditionHolds(w.Condition, items[itemKeyString(w.Key)]) {
			return fmt.Errorf("%w: condition failed on %s", ErrTransactionAborted, w.Table)
		}
	}

	for _, w := range writes {
		items := m.tables[w.Table]
		ks := itemKeyString(w.Key)
		items[ks] = applySet(items[ks], w.Key, w.Set)
	}

	return nil
}

func (m *Memory) table(name string) (map[string]Item, error) {
	items, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", name)
	}
	return items, nil
}

func (m *Memory) keyOf(table string, item Item) (Item, error) {
	key := Item{}
	for _, attr := range m.keys[table] {
		av, ok := item[attr]
		if !ok {
			return nil, fmt.Errorf("item for %s missing key attribute %s", table, attr)
		}
		key[attr] = av
	}
	return key, nil
}

func conditionHolds(cond *Condition, item Item) bool {
	if cond == nil {
		return true
	}

	for _, attr := range cond.NotExists {
		if _, exists := item[attr]; exists {
			return false
		}
	}

	for attr, allowed := range cond.AbsentOrIn {
		av, exists := item[attr]
		if !exists {
			continue
		}
		v, ok := stringValue(av)
		if !ok {
			return false
		}
		match := false
		for _, want := range allowed {
			if v == want {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	return true
}

// applySet mirrors DynamoDB update semantics: an update against an absent
// item creates it from its key plus the SET attributes.
func applySet(current Item, key Item, set Item) Item {
	out := cloneItem(current)
	if out == nil {
		out = cloneItem(key)
	}
	for attr, av := range set {
		out[attr] = av
	}
	return out
}

func itemKeyString(key Item) string {
	attrs := make([]string, 0, len(key))
	for attr := range key {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		v, _ := stringValue(key[attr])
		parts = append(parts, attr+"="+v)
	}
	return strings.Join(parts, "/")
}

func stringValue(av ddbtypes.AttributeValue) (string, bool) {
	switch v := av.(type) {
	case *ddbtypes.AttributeValueMemberS:
		return v.Value, true
	case *ddbtypes.AttributeValueMemberN:
		return v.Value, true
	default:
		return "", false
	}
}

func sortedKeys(items map[string]Item) []string {
	keys := make([]string, 0, len(items))
	for ks := range items {
		keys = append(keys, ks)
	}
	sort.Strings(keys)
	return keys
}

func cloneItem(item Item) Item {
	if item == nil {
		return nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
