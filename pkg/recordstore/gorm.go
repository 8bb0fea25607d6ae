package recordstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Gorm talks to Postgres through a *gorm.DB.
type Gorm struct {
	db *gorm.DB
}

var _ Client = (*Gorm)(nil)

func NewGorm(db *gorm.DB) *Gorm { return &Gorm{db: db} }

// OpenPostgres connects with dsn. Used for the privileged deletion client,
// which gets its own connection and credentials.
func OpenPostgres(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect record store: %w", err)
	}
	return &Gorm{db: db}, nil
}

// DB exposes the handle for migrations.
func (g *Gorm) DB() *gorm.DB { return g.db }

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *Gorm) List(ctx context.Context, t Table, q Query) ([]map[string]any, error) {
	names := keysOf(q.Eq)
	if q.OrderBy != "" {
		names = append(names, q.OrderBy)
	}
	if err := checkColumns(t, names...); err != nil {
		return nil, err
	}
	tx := g.db.WithContext(ctx).Table(string(t))
	if len(q.Eq) > 0 {
		tx = tx.Where(q.Eq)
	}
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
		// stable order between equal dates
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	rows := []map[string]any{}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (g *Gorm) Get(ctx context.Context, t Table, key int64) (map[string]any, error) {
	if err := checkColumns(t); err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := g.db.WithContext(ctx).Table(string(t)).Where("id = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Insert writes row with INSERT ... RETURNING so the assigned id comes back;
// gorm does not backfill keys when creating from a map.
func (g *Gorm) Insert(ctx context.Context, t Table, row map[string]any) (map[string]any, error) {
	cols := keysOf(row)
	sort.Strings(cols)
	if len(cols) == 0 {
		return nil, fmt.Errorf("insert into %s: empty row", t)
	}
	if err := checkColumns(t, cols...); err != nil {
		return nil, err
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
		marks[i] = "?"
		args[i] = row[c]
	}
	sql := fmt.Sprintf(`INSERT INTO %q (%s, "created_at", "updated_at") VALUES (%s, NOW(), NOW()) RETURNING *`,
		string(t), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if row["created_at"] != nil || row["updated_at"] != nil {
		sql = fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s) RETURNING *`,
			string(t), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	}
	var out []map[string]any
	if err := g.db.WithContext(ctx).Raw(sql, args...).Scan(&out).Error; err != nil {
		return nil, classify(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", t)
	}
	return out[0], nil
}

func (g *Gorm) Update(ctx context.Context, t Table, key int64, fields map[string]any) error {
	if err := checkColumns(t, keysOf(fields)...); err != nil {
		return err
	}
	vals := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		vals[k] = v
	}
	if _, ok := vals["updated_at"]; !ok {
		vals["updated_at"] = gorm.Expr("NOW()")
	}
	res := g.db.WithContext(ctx).Table(string(t)).Where("id = ?", key).Updates(vals)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) Delete(ctx context.Context, t Table, key int64) error {
	if err := checkColumns(t); err != nil {
		return err
	}
	res := g.db.WithContext(ctx).Exec(fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, string(t)), key)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func classify(err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
