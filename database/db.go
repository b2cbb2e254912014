package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"geohash-prefix-grid/config"
	"geohash-prefix-grid/index"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and checks the connection.
func Open(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Println("Database connected.")
	return db, nil
}

// PostgresStore keeps token/document pairs in the cell_tokens table.
type PostgresStore struct {
	db *sql.DB
}

var _ index.Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, token, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cell_tokens (token, doc_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		token, id,
	)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, token, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cell_tokens WHERE token=$1 AND doc_id=$2`,
		token, id,
	)
	return err
}

func (s *PostgresStore) Members(ctx context.Context, token string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT doc_id FROM cell_tokens WHERE token=$1 ORDER BY doc_id`, token)
}

// PrefixMembers returns the IDs stored under token or any descendant of it.
func (s *PostgresStore) PrefixMembers(ctx context.Context, prefix string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT DISTINCT doc_id FROM cell_tokens WHERE token LIKE $1 ORDER BY doc_id`,
		escapeLike(prefix)+"%",
	)
}

func (s *PostgresStore) queryIDs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards; geohash tokens never contain them but
// tokens reach here unvalidated.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
