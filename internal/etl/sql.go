package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dkoehler14/traindata/pkg/logger"
	"github.com/dkoehler14/traindata/pkg/models"
)

// SQLExtractor pages through one table ordered by the mapped primary key
// and enriches each row with its related child rows.
type SQLExtractor struct {
	DB       *sql.DB
	Config   *models.MappingSchema
	PageSize int
}

func (s *SQLExtractor) ExtractAll(ctx context.Context) ([]Record, error) {
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	var all []Record
	for {
		query := fmt.Sprintf(
			"SELECT * FROM %s ORDER BY %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
			s.Config.SQLTable, s.Config.IDStrategy.SQLField, len(all), pageSize)

		page, ids, err := s.fetchPage(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(page) > 0 {
			if err := s.enrichRelations(ctx, page, ids); err != nil {
				return nil, err
			}
		}

		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (s *SQLExtractor) fetchPage(ctx context.Context, query string) ([]Record, []interface{}, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var page []Record
	var ids []interface{}
	for rows.Next() {
		rec, err := scanRow(rows, cols)
		if err != nil {
			return nil, nil, err
		}
		page = append(page, rec)
		ids = append(ids, rec[s.Config.IDStrategy.SQLField])
	}
	return page, ids, rows.Err()
}

// enrichRelations attaches child rows to their parents under the relation
// key, ready for the transformer to embed or reference.
func (s *SQLExtractor) enrichRelations(ctx context.Context, parents []Record, ids []interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	inClause := strings.Trim(strings.Join(strings.Fields(fmt.Sprint(ids)), ","), "[]")

	for key, rel := range s.Config.Relations {
		var query string
		if rel.Type == "many-to-many" {
			cols := strings.Join(rel.Fields, ", ")
			query = fmt.Sprintf(
				"SELECT j.%s AS parent_id, r.%s FROM %s j JOIN %s r ON j.%s = r.%s WHERE j.%s IN (%s)",
				rel.SQLForeignKey, cols, rel.SQLJoinTable, rel.SQLTable,
				rel.ReferenceKey, rel.ReferenceKey, rel.SQLForeignKey, inClause)
		} else {
			query = fmt.Sprintf(
				"SELECT %s AS parent_id, * FROM %s WHERE %s IN (%s)",
				rel.SQLForeignKey, rel.SQLTable, rel.SQLForeignKey, inClause)
		}

		byParent, err := s.fetchRelationRows(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to fetch relation %s: %w", key, err)
		}

		for _, parent := range parents {
			pid := fmt.Sprintf("%v", parent[s.Config.IDStrategy.SQLField])
			if children, found := byParent[pid]; found {
				parent[key] = children
			} else {
				parent[key] = []Record{}
			}
		}
	}
	return nil
}

func (s *SQLExtractor) fetchRelationRows(ctx context.Context, query string) (map[string][]Record, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	byParent := make(map[string][]Record)
	for rows.Next() {
		rec, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		pid := fmt.Sprintf("%v", rec["parent_id"])
		delete(rec, "parent_id")
		byParent[pid] = append(byParent[pid], rec)
	}
	return byParent, rows.Err()
}

// scanRow reads the current row into a Record, decoding []byte columns to
// strings.
func scanRow(rows *sql.Rows, cols []string) (Record, error) {
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	rec := make(Record, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			rec[col] = string(b)
		} else {
			rec[col] = values[i]
		}
	}
	return rec, nil
}

// SQLLoader upserts transformed rows: an existence check on the primary
// key decides between INSERT and UPDATE.
type SQLLoader struct {
	DB     *sql.DB
	Config *models.MappingSchema
}

func (l *SQLLoader) LoadBatch(ctx context.Context, records []Record) error {
	idField := l.Config.IDStrategy.SQLField

	for _, row := range records {
		idVal, ok := row[idField]
		if !ok || idVal == nil {
			logger.Log.Warn().Msg("skipping row without primary key")
			continue
		}

		cols := make(Record, len(row))
		for col, val := range row {
			if col != idField {
				cols[col] = val
			}
		}

		var exists int
		checkQuery := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = @p1", l.Config.SQLTable, idField)
		err := l.DB.QueryRowContext(ctx, checkQuery, idVal).Scan(&exists)

		switch {
		case err == sql.ErrNoRows:
			err = l.insertRow(ctx, cols, idVal)
		case err == nil:
			err = l.updateRow(ctx, cols, idVal)
		}
		if err != nil {
			return fmt.Errorf("upsert row %v: %w", idVal, err)
		}
	}
	return nil
}

func (l *SQLLoader) insertRow(ctx context.Context, cols Record, idVal interface{}) error {
	names := make([]string, 0, len(cols)+1)
	placeholders := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+1)

	names = append(names, l.Config.IDStrategy.SQLField)
	placeholders = append(placeholders, "@p1")
	args = append(args, idVal)

	for col, val := range cols {
		names = append(names, col)
		placeholders = append(placeholders, fmt.Sprintf("@p%d", len(args)+1))
		args = append(args, val)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		l.Config.SQLTable, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	_, err := l.DB.ExecContext(ctx, query, args...)
	return err
}

func (l *SQLLoader) updateRow(ctx context.Context, cols Record, idVal interface{}) error {
	setClauses := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)

	for col, val := range cols {
		setClauses = append(setClauses, fmt.Sprintf("%s = @p%d", col, len(args)+1))
		args = append(args, val)
	}
	args = append(args, idVal)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = @p%d",
		l.Config.SQLTable, strings.Join(setClauses, ", "),
		l.Config.IDStrategy.SQLField, len(args))
	_, err := l.DB.ExecContext(ctx, query, args...)
	return err
}
