package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	Level        string         `db:"level"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (row userRow) toUser() user.User {
	isActive := row.IsActive
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		Email:        row.Email,
		IsActive:     &isActive,
		Roles:        row.Roles,
		Level:        row.Level,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

const userColumns = `id, name, username, email, is_active, roles, level, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `SELECT id, username, email FROM user_account WHERE username = $1 OR email = $2`

	var rows []userRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, username, email); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, row := range rows {
		if excluded[row.ID] {
			continue
		}
		if username != "" && row.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = newPK()
	isActive := usr.IsActive == nil || *usr.IsActive

	query := `
		INSERT INTO user_account (id, name, username, email, is_active, roles, level, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := ext(repo.db, exec).ExecContext(ctx, query,
		usr.ID, usr.Name, usr.Username, usr.Email, isActive,
		pq.StringArray(usr.Roles), usr.Level, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context, exec ...core.DBExecutor) ([]user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_account ORDER BY created_at`, userColumns)

	var rows []userRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_account WHERE id = $1`, userColumns)
	return repo.getUser(ctx, exec, query, id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_account WHERE username = $1`, userColumns)
	return repo.getUser(ctx, exec, query, username)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_account WHERE email = $1`, userColumns)
	return repo.getUser(ctx, exec, query, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string, exec ...core.DBExecutor) (user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_account WHERE username = $1 OR email = $1`, userColumns)
	return repo.getUser(ctx, exec, query, username)
}

func (repo *userRepository) getUser(ctx context.Context, exec []core.DBExecutor, query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_account`, userColumns)
	var clauses []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %[1]s OR LOWER(username) LIKE %[1]s OR LOWER(email) LIKE %[1]s)", p))
	}
	if len(filter.Roles) > 0 {
		// prefix match: any role in the group
		var roleClauses []string
		for _, role := range filter.Roles {
			p := arg(role + "%")
			roleClauses = append(roleClauses, fmt.Sprintf("r LIKE %s", p))
		}
		clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE %s)", strings.Join(roleClauses, " OR ")))
	}
	if filter.Level != "" {
		clauses = append(clauses, fmt.Sprintf("level = %s", arg(filter.Level)))
	}
	if filter.IsActive != nil {
		clauses = append(clauses, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
	}
	if !filter.CreatedFrom.IsZero() {
		clauses = append(clauses, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
	}
	if !filter.CreatedTo.IsZero() {
		clauses = append(clauses, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []userRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, exec ...core.DBExecutor) (user.User, error) {
	e := ext(repo.db, exec)

	// only save set fields
	orig, err := repo.GetUserByID(ctx, usr.ID, exec...)
	if err != nil {
		return user.User{}, err
	}
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.Level != "" {
		orig.Level = usr.Level
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = isActive
	}
	orig.UpdatedAt = usr.UpdatedAt

	query := `
		UPDATE user_account
		SET name = $2, username = $3, email = $4, is_active = $5, roles = $6, level = $7, password_hash = $8, updated_at = $9
		WHERE id = $1`
	_, err = e.ExecContext(ctx, query,
		orig.ID, orig.Name, orig.Username, orig.Email, *orig.IsActive,
		pq.StringArray(orig.Roles), orig.Level, orig.PasswordHash, orig.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	query := `UPDATE user_account SET last_login = $2 WHERE id = $1`
	if _, err := ext(repo.db, exec).ExecContext(ctx, query, usr.ID, usr.LastLogin); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return repo.GetUserByID(ctx, usr.ID, exec...)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	query := `DELETE FROM user_account WHERE id = ANY($1)`
	_, err := ext(repo.db, exec).ExecContext(ctx, query, pq.StringArray(ids))
	return errors.Wrap(err, "deleting users")
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users
}
