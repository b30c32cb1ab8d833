package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"notekeeper/internal/common"
	"notekeeper/internal/domain/model"
)

type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	FindByID(ctx context.Context, id int64) (*model.Note, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Note, error)
	List(ctx context.Context, filter model.NoteFilter) ([]model.Note, int, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id, userID int64) error
}

const noteColumns = `id, title, slug, content, image_url, active, created_by, created_on, updated_on`

// Sortable columns; request input never reaches the ORDER BY clause directly.
var noteSortColumns = map[string]string{
	"title":      "title",
	"content":    "content",
	"created_on": "created_on",
}

func scanNote(row rowScanner) (*model.Note, error) {
	n := &model.Note{}
	err := row.Scan(&n.ID, &n.Title, &n.Slug, &n.Content, &n.ImageURL, &n.Active, &n.CreatedBy, &n.CreatedOn, &n.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return n, nil
}

type pgNoteRepository struct {
	db *sql.DB
}

func NewPgNoteRepository(db *sql.DB) NoteRepository {
	return &pgNoteRepository{db: db}
}

func (r *pgNoteRepository) Create(ctx context.Context, n *model.Note) error {
	query := `INSERT INTO notes (title, slug, content, image_url, active, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, created_on, updated_on`
	err := r.db.QueryRowContext(ctx, query, n.Title, n.Slug, n.Content, n.ImageURL, n.Active, n.CreatedBy).
		Scan(&n.ID, &n.CreatedOn, &n.UpdatedOn)
	if err != nil {
		return fmt.Errorf("pgNoteRepository.Create: %w", err)
	}
	return nil
}

func (r *pgNoteRepository) FindByID(ctx context.Context, id int64) (*model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1`
	note, err := scanNote(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgNoteRepository.FindByID: %w", err)
	}
	return note, nil
}

func (r *pgNoteRepository) ListByUser(ctx context.Context, userID int64) ([]model.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE created_by = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgNoteRepository.ListByUser: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// List applies search, active filter, sort and pagination. It returns the
// page of notes and the total number of matching rows.
func (r *pgNoteRepository) List(ctx context.Context, filter model.NoteFilter) ([]model.Note, int, error) {
	query, countQuery, args := buildNoteListQuery(filter)

	var total int
	// The count query shares the WHERE arguments but not LIMIT/OFFSET.
	if err := r.db.QueryRowContext(ctx, countQuery, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgNoteRepository.List count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgNoteRepository.List: %w", err)
	}
	defer rows.Close()

	notes, err := collectNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

func buildNoteListQuery(filter model.NoteFilter) (string, string, []interface{}) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`SELECT ` + noteColumns + ` FROM notes`)

	var countQueryBuilder strings.Builder
	countQueryBuilder.WriteString(`SELECT COUNT(*) FROM notes`)

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", argID, argID))
		args = append(args, "%"+filter.Search+"%")
		argID++
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argID))
		args = append(args, *filter.Active)
		argID++
	}

	if len(conditions) > 0 {
		where := " WHERE " + strings.Join(conditions, " AND ")
		baseQuery.WriteString(where)
		countQueryBuilder.WriteString(where)
	}

	column, ok := noteSortColumns[filter.SortField]
	if !ok {
		column = "title"
	}
	direction := "ASC"
	if filter.SortOrder == model.SortDesc {
		direction = "DESC"
	}
	baseQuery.WriteString(fmt.Sprintf(" ORDER BY %s %s, id ASC", column, direction))

	baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	return baseQuery.String(), countQueryBuilder.String(), args
}

// Update writes the mutable fields of a note owned by note.CreatedBy.
func (r *pgNoteRepository) Update(ctx context.Context, n *model.Note) error {
	query := `UPDATE notes SET title = $1, slug = $2, content = $3, image_url = $4, active = $5,
	              updated_on = CURRENT_TIMESTAMP
	          WHERE id = $6 AND created_by = $7
	          RETURNING updated_on`
	err := r.db.QueryRowContext(ctx, query, n.Title, n.Slug, n.Content, n.ImageURL, n.Active, n.ID, n.CreatedBy).
		Scan(&n.UpdatedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("pgNoteRepository.Update: %w", err)
	}
	return nil
}

func (r *pgNoteRepository) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND created_by = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("pgNoteRepository.Delete: %w", err)
	}
	return requireAffected(res)
}

func collectNotes(rows *sql.Rows) ([]model.Note, error) {
	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}
