package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	"github.com/mattn/go-sqlite3"      // SQLite driver

	"cipherchat/internal/apperr"
	"cipherchat/internal/models"
)

// SQLStore serves both supported drivers ("pgx" and "sqlite3") from one
// codebase. Queries are written with ? placeholders and rebound for
// Postgres; DDL is rewritten per dialect in createTables.
type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if driverName == "pgx" {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// sqlite: a single connection keeps :memory: databases coherent
		// and avoids SQLITE_BUSY under concurrent writers.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE,
		password TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS friends (
		owner_id INTEGER NOT NULL,
		friend_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner_id, friend_id),
		FOREIGN KEY (owner_id) REFERENCES users(id),
		FOREIGN KEY (friend_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id TEXT NOT NULL,
		sender_id INTEGER NOT NULL,
		ciphertext TEXT NOT NULL,
		iv TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (sender_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages (chat_id, id);
	`

	if s.driverName == "pgx" {
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $1, $2, ... for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driverName != "pgx" {
		return query
	}
	n := strings.Count(query, "?")
	for i := 1; i <= n; i++ {
		query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
	}
	return query
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	email := sql.NullString{String: user.Email, Valid: user.Email != ""}

	var err error
	if s.driverName == "pgx" {
		query := s.rebind("INSERT INTO users (username, email, password) VALUES (?, ?, ?) RETURNING id")
		err = s.db.QueryRowContext(ctx, query, user.Username, email, user.Password).Scan(&user.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx,
			"INSERT INTO users (username, email, password) VALUES (?, ?, ?)",
			user.Username, email, user.Password)
		if err == nil {
			id, _ := res.LastInsertId()
			user.ID = int(id)
		}
	}
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.Conflict, "username or email already registered")
		}
		return apperr.Wrap(apperr.Internal, "creating user", err)
	}
	return nil
}

// GetUserByIdentifier looks a user up by username or email.
func (s *SQLStore) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := s.rebind("SELECT id, username, COALESCE(email, ''), password FROM users WHERE username = ? OR email = ?")
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, query, identifier, identifier).
		Scan(&u.ID, &u.Username, &u.Email, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "looking up user", err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := s.rebind("SELECT id, username, COALESCE(email, ''), password FROM users WHERE id = ?")
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Email, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "looking up user", err)
	}
	return u, nil
}

func (s *SQLStore) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	q := s.rebind("SELECT id, username FROM users WHERE username LIKE ? LIMIT 10")
	rows, err := s.db.QueryContext(ctx, q, "%"+query+"%")
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "searching users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "searching users", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddFriendEdges inserts (owner, friend) and (friend, owner) together.
// ON CONFLICT DO NOTHING makes replays a no-op success, so the edge
// pair can never end up half-created or duplicated.
func (s *SQLStore) AddFriendEdges(ctx context.Context, ownerID, friendID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "adding friend", err)
	}
	defer tx.Rollback()

	query := s.rebind("INSERT INTO friends (owner_id, friend_id) VALUES (?, ?) ON CONFLICT DO NOTHING")
	for _, pair := range [][2]int{{ownerID, friendID}, {friendID, ownerID}} {
		if _, err := tx.ExecContext(ctx, query, pair[0], pair[1]); err != nil {
			return apperr.Wrap(apperr.Internal, "adding friend", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Internal, "adding friend", err)
	}
	return nil
}

func (s *SQLStore) ListFriends(ctx context.Context, ownerID int) ([]models.Friend, error) {
	query := s.rebind(`
		SELECT u.id, u.username
		FROM friends f
		JOIN users u ON u.id = f.friend_id
		WHERE f.owner_id = ?
		ORDER BY u.username`)
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing friends", err)
	}
	defer rows.Close()

	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.ID, &f.Username); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "listing friends", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

func (s *SQLStore) InsertMessage(ctx context.Context, msg *models.StoredMessage) error {
	msg.CreatedAt = time.Now().UTC()

	var err error
	if s.driverName == "pgx" {
		query := s.rebind("INSERT INTO messages (chat_id, sender_id, ciphertext, iv, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id")
		err = s.db.QueryRowContext(ctx, query,
			msg.ChatID, msg.SenderID, msg.Ciphertext, msg.IV, msg.CreatedAt).Scan(&msg.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx,
			"INSERT INTO messages (chat_id, sender_id, ciphertext, iv, created_at) VALUES (?, ?, ?, ?, ?)",
			msg.ChatID, msg.SenderID, msg.Ciphertext, msg.IV, msg.CreatedAt)
		if err == nil {
			id, _ := res.LastInsertId()
			msg.ID = int(id)
		}
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "inserting message", err)
	}
	return nil
}

func (s *SQLStore) ListMessagesByChat(ctx context.Context, chatID string) ([]models.StoredMessage, error) {
	query := s.rebind(`
		SELECT id, chat_id, sender_id, ciphertext, iv, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY id ASC`)
	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing messages", err)
	}
	defer rows.Close()

	var messages []models.StoredMessage
	for rows.Next() {
		var m models.StoredMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Ciphertext, &m.IV, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "listing messages", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) DeleteMessagesByChat(ctx context.Context, chatID string) error {
	query := s.rebind("DELETE FROM messages WHERE chat_id = ?")
	if _, err := s.db.ExecContext(ctx, query, chatID); err != nil {
		return apperr.Wrap(apperr.Internal, "clearing chat", err)
	}
	return nil
}
