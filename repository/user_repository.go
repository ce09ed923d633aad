package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"EchoCanvas/model"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateUser is returned when the username or email is taken.
var ErrDuplicateUser = errors.New("username or email already registered")

const mysqlDuplicateEntry = 1062

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// CreateUser adds a new user to the database.
func (r *mysqlUserRepository) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	query := "INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare create user statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, user.Username, user.Email, user.PasswordHash)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to execute create user statement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

const selectUser = "SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE "

func (r *mysqlUserRepository) getUser(ctx context.Context, column string, arg interface{}) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+column+" = ?", arg)
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to scan user row for %s %v: %w", column, arg, err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (r *mysqlUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUser(ctx, "id", id)
}

// GetUserByUsername retrieves a user by their username.
func (r *mysqlUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUser(ctx, "username", username)
}

// GetUserByEmail retrieves a user by their email address.
func (r *mysqlUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, "email", email)
}
