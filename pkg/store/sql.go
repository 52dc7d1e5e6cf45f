package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// SetupSchema creates the model catalog table. It is idempotent and safe to
// call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaModels = `
CREATE TABLE IF NOT EXISTS ngram_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_data BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// SQLStore keeps models in a SQLite database.
type SQLStore struct {
	db         *sql.DB
	ownsDB     bool
	stmtList   *sql.Stmt
	stmtExists *sql.Stmt
	stmtLoad   *sql.Stmt
	stmtSave   *sql.Stmt
	stmtDelete *sql.Stmt
	logger     *slog.Logger
}

// OpenSQLStore opens (or creates) the SQLite database at dataSource and
// returns a store backed by it. Closing the store closes the database.
func OpenSQLStore(dataSource string) (*SQLStore, error) {
	db, err := openDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err = SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s, err := NewSQLStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLStore returns a store using db, whose schema must already be set up.
// It pre-compiles all statements, returning an error if any preparation fails.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	stmtList, err := db.Prepare(`SELECT model_name, length(model_data), updated_at FROM ngram_models ORDER BY model_name;`)
	if err != nil {
		return nil, err
	}

	stmtExists, err := db.Prepare(`SELECT COUNT(*) FROM ngram_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtLoad, err := db.Prepare(`SELECT model_data FROM ngram_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtSave, err := db.Prepare(`INSERT INTO ngram_models (model_name, model_data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(model_name) DO UPDATE SET model_data = excluded.model_data, updated_at = excluded.updated_at;`)
	if err != nil {
		return nil, err
	}

	stmtDelete, err := db.Prepare(`DELETE FROM ngram_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		db:         db,
		stmtList:   stmtList,
		stmtExists: stmtExists,
		stmtLoad:   stmtLoad,
		stmtSave:   stmtSave,
		stmtDelete: stmtDelete,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *SQLStore) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make([]ModelInfo, 0)
	for rows.Next() {
		var model ModelInfo
		var updated int64
		if err = rows.Scan(&model.Name, &model.Size, &updated); err != nil {
			return nil, err
		}
		model.Updated = time.Unix(0, updated)
		models = append(models, model)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

func (s *SQLStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	var count int
	if err := s.stmtExists.QueryRowContext(ctx, name).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQLStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.stmtLoad.QueryRowContext(ctx, name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		return nil, fmt.Errorf("could not load model %q: %w", name, err)
	}
	return data, nil
}

func (s *SQLStore) Save(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.stmtSave.ExecContext(ctx, name, data, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("could not save model %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("bytes", len(data)),
	)
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	res, err := s.stmtDelete.ExecContext(ctx, name)
	if err != nil {
		return fmt.Errorf("could not delete model %q: %w", name, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	s.logger.InfoContext(ctx, "Model removed", slog.String("model_name", name))
	return nil
}

// Close releases all prepared statements, and the database if the store
// opened it.
func (s *SQLStore) Close() error {
	_ = s.stmtList.Close()
	_ = s.stmtExists.Close()
	_ = s.stmtLoad.Close()
	_ = s.stmtSave.Close()
	_ = s.stmtDelete.Close()
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
