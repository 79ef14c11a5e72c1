package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskhub/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListUsersParams filters and pages the admin user listing.
type ListUsersParams struct {
	Page     int
	Limit    int
	Username string // contains
	Email    string // contains
	Role     string // equals
}

const userColumns = `id, email, phone_number, username, password, first_name, last_name, profile_picture, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PhoneNumber, &u.Username, &u.Password,
		&u.FirstName, &u.LastName, &u.ProfilePicture, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, phone_number, username, password, first_name, last_name, role)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at, updated_at`,
		u.Email, u.PhoneNumber, u.Username, u.Password, u.FirstName, u.LastName, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return translateUnique(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// FindConflict runs the combined uniqueness lookup: it reports which of
// username/email/phone is already taken by a row other than excludeID.
// An empty string means no conflict. The unique constraints still back this
// up on write.
func (r *UserRepository) FindConflict(ctx context.Context, username string, email, phone *string, excludeID int) (string, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT username, email, phone_number FROM users
         WHERE (username = $1 OR email = $2 OR phone_number = $3) AND id <> $4
         LIMIT 1`,
		username, email, phone, excludeID,
	).Scan(&u.Username, &u.Email, &u.PhoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	switch {
	case u.Username == username:
		return "Username", nil
	case email != nil && u.Email != nil && *u.Email == *email:
		return "Email", nil
	case phone != nil && u.PhoneNumber != nil && *u.PhoneNumber == *phone:
		return "Phone number", nil
	default:
		return "Value", nil
	}
}

func (r *UserRepository) List(ctx context.Context, p ListUsersParams) ([]models.User, int, error) {
	where := []string{}
	args := []any{}
	if p.Username != "" {
		args = append(args, "%"+p.Username+"%")
		where = append(where, fmt.Sprintf("username ILIKE $%d", len(args)))
	}
	if p.Email != "" {
		args = append(args, "%"+p.Email+"%")
		where = append(where, fmt.Sprintf("email ILIKE $%d", len(args)))
	}
	if p.Role != "" {
		args = append(args, p.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, p.Limit, (p.Page-1)*p.Limit)
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			userColumns, clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE users
         SET email = $1, phone_number = $2, username = $3, password = $4,
             first_name = $5, last_name = $6, updated_at = CURRENT_TIMESTAMP
         WHERE id = $7
         RETURNING updated_at`,
		u.Email, u.PhoneNumber, u.Username, u.Password, u.FirstName, u.LastName, u.ID,
	).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return translateUnique(err)
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int, role models.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePicture(ctx context.Context, id int, filename *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_picture = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, filename, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the account. Its tasks go with it via ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
