package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the message, the typed
// code, the unwrap chain, the checkout step when one was recorded and, for
// Postgres failures from either driver, the SQLSTATE and the object involved.
// Empty values are left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}

	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
		if details, ok := typed.Details().(map[string]any); ok {
			if step, ok := details["step"]; ok {
				fields["step"] = step
			}
		}
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		putNonEmpty(fields, map[string]string{
			"pg_code":       pgErr.Code,
			"pg_constraint": pgErr.ConstraintName,
			"pg_table":      pgErr.TableName,
			"pg_column":     pgErr.ColumnName,
			"pg_detail":     pgErr.Detail,
		})
	case errors.As(err, &pqErr):
		putNonEmpty(fields, map[string]string{
			"pg_code":       string(pqErr.Code),
			"pg_constraint": pqErr.Constraint,
			"pg_table":      pqErr.Table,
			"pg_column":     pqErr.Column,
			"pg_detail":     pqErr.Detail,
		})
	}
	return fields
}

func putNonEmpty(dst map[string]any, src map[string]string) {
	for k, v := range src {
		if v != "" {
			dst[k] = v
		}
	}
}
