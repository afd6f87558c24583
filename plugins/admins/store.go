// ABOUTME: SQLite storage for admins, groups and their memberships.
// ABOUTME: Queries are built with squirrel; deletes are soft unless asked otherwise.

package admins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/basiclist/internal/store"
	sq "github.com/Masterminds/squirrel"
)

var (
	// ErrNotFound means no live admin has the requested id.
	ErrNotFound = errors.New("admin not found")
	// ErrDuplicateUsername means another admin already uses the username.
	ErrDuplicateUsername = errors.New("username already exists")
)

// Trash selects live rows, soft-deleted rows or both.
type Trash int

const (
	WithoutTrashed Trash = iota
	OnlyTrashed
	WithTrashed
)

// ParseTrash maps the trash query value. Unknown values mean WithoutTrashed.
func ParseTrash(s string) Trash {
	switch s {
	case "onlyTrashed":
		return OnlyTrashed
	case "withTrashed":
		return WithTrashed
	}
	return WithoutTrashed
}

// Admin is one back-office account.
type Admin struct {
	ID          int64
	Username    string
	DisplayName string
	Status      bool
	Groups      []int64
	CreateTime  time.Time
	UpdateTime  time.Time
	DeleteTime  *time.Time
}

// Group is one node of the group tree.
type Group struct {
	ID       int64
	Name     string
	ParentID int64
}

// AdminInput is the writable part of an Admin. A zero CreateTime means now.
type AdminInput struct {
	Username    string
	DisplayName string
	Status      bool
	Groups      []int64
	CreateTime  time.Time
}

// ListQuery filters and pages the admins list.
type ListQuery struct {
	ID          int64
	Username    string
	DisplayName string
	Status      *bool
	CreateFrom  time.Time
	CreateTo    time.Time
	Groups      []int64
	Trash       Trash
	Sort        string
	Desc        bool
	Page        int
	PerPage     int
}

var sortable = map[string]bool{
	"id": true, "username": true, "display_name": true, "status": true, "create_time": true, "update_time": true,
}

// Store wraps the plugin tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates the plugin tables when missing.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.initTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admin_groups_tree (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		parent_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS admins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 1,
		create_time TEXT NOT NULL,
		update_time TEXT NOT NULL,
		delete_time TEXT
	);

	CREATE TABLE IF NOT EXISTS admin_group_members (
		admin_id INTEGER NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
		group_id INTEGER NOT NULL REFERENCES admin_groups_tree(id) ON DELETE CASCADE,
		PRIMARY KEY (admin_id, group_id)
	);

	CREATE INDEX IF NOT EXISTS idx_admins_delete_time ON admins(delete_time);
	CREATE INDEX IF NOT EXISTS idx_admins_create_time ON admins(create_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

func trashWhere(t Trash) sq.Sqlizer {
	switch t {
	case OnlyTrashed:
		return sq.NotEq{"delete_time": nil}
	case WithTrashed:
		return sq.Expr("1=1")
	}
	return sq.Eq{"delete_time": nil}
}

func (q ListQuery) where() (sq.And, error) {
	and := sq.And{trashWhere(q.Trash)}
	if q.ID > 0 {
		and = append(and, sq.Eq{"id": q.ID})
	}
	if q.Username != "" {
		and = append(and, store.Contains("username", q.Username))
	}
	if q.DisplayName != "" {
		and = append(and, store.Contains("display_name", q.DisplayName))
	}
	if q.Status != nil {
		and = append(and, sq.Eq{"status": boolInt(*q.Status)})
	}
	if !q.CreateFrom.IsZero() {
		and = append(and, sq.GtOrEq{"create_time": store.FormatTime(q.CreateFrom)})
	}
	if !q.CreateTo.IsZero() {
		and = append(and, sq.LtOrEq{"create_time": store.FormatTime(q.CreateTo)})
	}
	if len(q.Groups) > 0 {
		sub, args, err := sq.Select("admin_id").From("admin_group_members").Where(sq.Eq{"group_id": q.Groups}).ToSql()
		if err != nil {
			return nil, err
		}
		and = append(and, sq.Expr("id IN ("+sub+")", args...))
	}
	return and, nil
}

// List returns one page of admins and the number of rows matching q.
func (s *Store) List(ctx context.Context, q ListQuery) ([]Admin, int, error) {
	where, err := q.where()
	if err != nil {
		return nil, 0, err
	}

	countSQL, countArgs, err := sq.Select("COUNT(*)").From("admins").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count admins: %w", err)
	}

	order := "id ASC"
	if sortable[q.Sort] {
		order = q.Sort + " ASC"
		if q.Desc {
			order = q.Sort + " DESC"
		}
	}
	sel := selectAdmins().Where(where).OrderBy(order)
	if q.PerPage > 0 {
		page := max(q.Page, 1)
		sel = sel.Limit(uint64(q.PerPage)).Offset(uint64((page - 1) * q.PerPage))
	}
	admins, err := s.query(ctx, sel)
	if err != nil {
		return nil, 0, err
	}
	return admins, total, nil
}

// Get returns a live admin.
func (s *Store) Get(ctx context.Context, id int64) (*Admin, error) {
	admins, err := s.query(ctx, selectAdmins().Where(sq.Eq{"id": id, "delete_time": nil}))
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return nil, ErrNotFound
	}
	return &admins[0], nil
}

// Create inserts an admin and its group memberships.
func (s *Store) Create(ctx context.Context, in AdminInput) (int64, error) {
	now := s.now()
	created := in.CreateTime
	if created.IsZero() {
		created = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query, args, err := sq.Insert("admins").
		Columns("username", "display_name", "status", "create_time", "update_time").
		Values(in.Username, in.DisplayName, boolInt(in.Status), store.FormatTime(created), store.FormatTime(now)).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := setGroups(ctx, tx, id, in.Groups); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// Update rewrites a live admin. A zero CreateTime keeps the stored one.
func (s *Store) Update(ctx context.Context, id int64, in AdminInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upd := sq.Update("admins").
		Set("username", in.Username).
		Set("display_name", in.DisplayName).
		Set("status", boolInt(in.Status)).
		Set("update_time", store.FormatTime(s.now())).
		Where(sq.Eq{"id": id, "delete_time": nil})
	if !in.CreateTime.IsZero() {
		upd = upd.Set("create_time", store.FormatTime(in.CreateTime))
	}
	query, args, err := upd.ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := setGroups(ctx, tx, id, in.Groups); err != nil {
		return err
	}
	return tx.Commit()
}

// SoftDelete marks live admins as deleted.
func (s *Store) SoftDelete(ctx context.Context, ids []int64) (int64, error) {
	return s.exec(ctx, sq.Update("admins").
		Set("delete_time", store.FormatTime(s.now())).
		Where(sq.Eq{"id": ids, "delete_time": nil}))
}

// Restore clears the deleted mark.
func (s *Store) Restore(ctx context.Context, ids []int64) (int64, error) {
	return s.exec(ctx, sq.Update("admins").
		Set("delete_time", nil).
		Set("update_time", store.FormatTime(s.now())).
		Where(sq.And{sq.Eq{"id": ids}, sq.NotEq{"delete_time": nil}}))
}

// DeletePermanently removes admins, live or trashed.
func (s *Store) DeletePermanently(ctx context.Context, ids []int64) (int64, error) {
	return s.exec(ctx, sq.Delete("admins").Where(sq.Eq{"id": ids}))
}

// Groups returns the group tree rows, parents first.
func (s *Store) Groups(ctx context.Context) ([]Group, error) {
	query, args, err := sq.Select("id", "name", "parent_id").From("admin_groups_tree").OrderBy("parent_id", "id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.ParentID); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateGroup inserts a group and returns its id.
func (s *Store) CreateGroup(ctx context.Context, name string, parentID int64) (int64, error) {
	query, args, err := sq.Insert("admin_groups_tree").Columns("name", "parent_id").Values(name, parentID).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("create group %s: %w", name, err)
	}
	return res.LastInsertId()
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func selectAdmins() sq.SelectBuilder {
	return sq.Select(
		"id", "username", "display_name", "status", "create_time", "update_time", "COALESCE(delete_time, '')",
		"COALESCE((SELECT group_concat(group_id) FROM admin_group_members m WHERE m.admin_id = admins.id), '')",
	).From("admins")
}

func (s *Store) query(ctx context.Context, b sq.SelectBuilder) ([]Admin, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	defer rows.Close()

	var admins []Admin
	for rows.Next() {
		var (
			a                         Admin
			status                    int
			created, updated, deleted string
			groups                    string
		)
		if err := rows.Scan(&a.ID, &a.Username, &a.DisplayName, &status, &created, &updated, &deleted, &groups); err != nil {
			return nil, err
		}
		a.Status = status != 0
		a.CreateTime = parseTime(created)
		a.UpdateTime = parseTime(updated)
		if deleted != "" {
			t := parseTime(deleted)
			a.DeleteTime = &t
		}
		a.Groups = parseIDList(groups)
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func setGroups(ctx context.Context, tx *sql.Tx, adminID int64, groups []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM admin_group_members WHERE admin_id = ?`, adminID); err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	ins := sq.Insert("admin_group_members").Columns("admin_id", "group_id").Options("OR IGNORE")
	for _, g := range groups {
		ins = ins.Values(adminID, g)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set groups: %w", err)
	}
	return nil
}

func translate(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: admins.username") {
		return ErrDuplicateUsername
	}
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(v string) time.Time {
	t, err := time.ParseInLocation(store.TimeFormat, v, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseIDList(v string) []int64 {
	if v == "" {
		return []int64{}
	}
	parts := strings.Split(v, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		var id int64
		if _, err := fmt.Sscan(p, &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
