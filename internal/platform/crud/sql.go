package crud

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

func (d *Descriptor) selectColumns() string {
	cols := []string{quote(d.Key)}
	for _, f := range d.readable() {
		cols = append(cols, quote(f.column()))
	}
	return strings.Join(cols, ", ")
}

func (d *Descriptor) selectAllSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", d.selectColumns(), quote(d.Table), quote(d.Key))
}

func (d *Descriptor) selectByIDSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", d.selectColumns(), quote(d.Table), quote(d.Key))
}

func (d *Descriptor) selectByOwnerSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY %s",
		d.selectColumns(), quote(d.Table), quote(d.Owner), quote(d.Key))
}

func insertSQL(d *Descriptor, set []assignment) (string, []any) {
	cols := make([]string, len(set))
	marks := make([]string, len(set))
	args := make([]any, len(set))
	for i, a := range set {
		cols[i] = quote(a.column)
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = a.value
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quote(d.Table), strings.Join(cols, ", "), strings.Join(marks, ", "), quote(d.Key))
	return sql, args
}

// updateSQL builds UPDATE ... SET ... WHERE column = $n, where column is the
// key or the owner.
func updateSQL(d *Descriptor, set []assignment, where string, id int64) (string, []any) {
	parts := make([]string, len(set))
	args := make([]any, 0, len(set)+1)
	for i, a := range set {
		parts[i] = fmt.Sprintf("%s = $%d", quote(a.column), i+1)
		args = append(args, a.value)
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quote(d.Table), strings.Join(parts, ", "), quote(where), len(args))
	return sql, args
}

func (d *Descriptor) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", quote(d.Table), quote(d.Key))
}
