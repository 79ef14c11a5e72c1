package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskhub/internal/models"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// ListTasksParams pages, sorts and filters a single owner's tasks.
// Sort and Order must already be validated against the allowed sets.
type ListTasksParams struct {
	OwnerID int
	Page    int
	Limit   int
	Sort    string // id, name, created_at, updated_at
	Order   string // asc, desc
	Search  string // substring over name or description
}

const taskColumns = `id, user_id, name, description, attachment, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &t.Attachment, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, name, description)
         VALUES ($1, $2, $3)
         RETURNING id, created_at, updated_at`,
		t.UserID, t.Name, t.Description,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepository) GetByID(ctx context.Context, id int) (models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

func (r *TaskRepository) List(ctx context.Context, p ListTasksParams) ([]models.Task, int, error) {
	where := "WHERE user_id = $1"
	args := []any{p.OwnerID}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.Limit, (p.Page-1)*p.Limit)
	query := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		taskColumns, where, p.Sort, p.Order, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE tasks SET name = $1, description = $2, updated_at = CURRENT_TIMESTAMP
         WHERE id = $3
         RETURNING updated_at`,
		t.Name, t.Description, t.ID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *TaskRepository) UpdateAttachment(ctx context.Context, id int, filename *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET attachment = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, filename, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// OwnedTask is the slice of a task a cascading account delete cares about:
// the id for cache invalidation and the attachment for file cleanup.
type OwnedTask struct {
	ID         int
	Attachment *string
}

func (r *TaskRepository) OwnedByUser(ctx context.Context, ownerID int) ([]OwnedTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, attachment FROM tasks WHERE user_id = $1`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owned []OwnedTask
	for rows.Next() {
		var t OwnedTask
		if err := rows.Scan(&t.ID, &t.Attachment); err != nil {
			return nil, err
		}
		owned = append(owned, t)
	}
	return owned, rows.Err()
}
