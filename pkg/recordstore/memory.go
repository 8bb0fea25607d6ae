package recordstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process record store for tests and demos. It assigns
// increasing ids, enforces unique news slugs and can be told to fail.
type Memory struct {
	mu     sync.Mutex
	rows   map[Table][]map[string]any
	nextID map[Table]int64
	fail   error
	now    func() time.Time
}

var _ Client = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		rows:   map[Table][]map[string]any{},
		nextID: map[Table]int64{},
		now:    time.Now,
	}
}

// FailWith makes every following call return err until it is reset with nil.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *Memory) List(ctx context.Context, t Table, q Query) ([]map[string]any, error) {
	if err := m.enter(ctx, t, append(keysOf(q.Eq), orderCols(q)...)...); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	out := []map[string]any{}
	for _, r := range m.rows[t] {
		if matches(r, q.Eq) {
			out = append(out, clone(r))
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][q.OrderBy], out[j][q.OrderBy])
			if c == 0 {
				return toInt(out[i]["id"]) > toInt(out[j]["id"])
			}
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, t Table, key int64) (map[string]any, error) {
	if err := m.enter(ctx, t); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	if i := m.index(t, key); i >= 0 {
		return clone(m.rows[t][i]), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Insert(ctx context.Context, t Table, row map[string]any) (map[string]any, error) {
	if err := m.enter(ctx, t, keysOf(row)...); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	if err := m.checkUnique(t, -1, row); err != nil {
		return nil, err
	}
	m.nextID[t]++
	stored := clone(row)
	stored["id"] = m.nextID[t]
	now := m.now().UTC()
	if stored["created_at"] == nil {
		stored["created_at"] = now
	}
	stored["updated_at"] = now
	m.rows[t] = append(m.rows[t], stored)
	return clone(stored), nil
}

func (m *Memory) Update(ctx context.Context, t Table, key int64, fields map[string]any) error {
	if err := m.enter(ctx, t, keysOf(fields)...); err != nil {
		return err
	}
	defer m.mu.Unlock()
	i := m.index(t, key)
	if i < 0 {
		return ErrNotFound
	}
	if err := m.checkUnique(t, i, fields); err != nil {
		return err
	}
	for k, v := range fields {
		m.rows[t][i][k] = v
	}
	m.rows[t][i]["updated_at"] = m.now().UTC()
	return nil
}

func (m *Memory) Delete(ctx context.Context, t Table, key int64) error {
	if err := m.enter(ctx, t); err != nil {
		return err
	}
	defer m.mu.Unlock()
	i := m.index(t, key)
	if i < 0 {
		return ErrNotFound
	}
	m.rows[t] = append(m.rows[t][:i], m.rows[t][i+1:]...)
	return nil
}

// enter validates the call and takes the lock; the caller unlocks.
func (m *Memory) enter(ctx context.Context, t Table, cols ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkColumns(t, cols...); err != nil {
		return err
	}
	m.mu.Lock()
	if m.fail != nil {
		err := m.fail
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) index(t Table, key int64) int {
	for i, r := range m.rows[t] {
		if toInt(r["id"]) == key {
			return i
		}
	}
	return -1
}

func (m *Memory) checkUnique(t Table, self int, row map[string]any) error {
	if t != News {
		return nil
	}
	slug, _ := row["slug"].(string)
	if slug == "" {
		return nil
	}
	for i, r := range m.rows[t] {
		if i != self && r["slug"] == slug {
			return fmt.Errorf("%w: slug %q already exists", ErrDuplicate, slug)
		}
	}
	return nil
}

func orderCols(q Query) []string {
	if q.OrderBy == "" {
		return nil
	}
	return []string{q.OrderBy}
}

func matches(r, eq map[string]any) bool {
	for k, v := range eq {
		if compare(r[k], v) != 0 {
			return false
		}
	}
	return true
}

func clone(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// compare orders nil first, then numbers, times and strings by value.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if isNumber(a) && isNumber(b) {
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func toInt(v any) int64 {
	return int64(toFloat(v))
}
