package repository

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// psql builds Postgres statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func closeRows(rows *sql.Rows, err error) error {
	if rowsErr := rows.Err(); rowsErr != nil && err == nil {
		err = fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close rows: %w", closeErr)
	}
	return err
}

func int64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
