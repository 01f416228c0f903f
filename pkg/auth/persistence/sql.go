package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
	pkgsql "github.com/klwxsrx/go-app-shell/pkg/sql"
)

const (
	sessionTable = "auth_session"

	sessionTableDDL = `
		CREATE TABLE IF NOT EXISTS auth_session (
			session_key text PRIMARY KEY,
			state jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)
	`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type SQL struct {
	db  pkgsql.Client
	key string
}

func NewSQL(db pkgsql.Client, key string) *SQL {
	return &SQL{
		db:  db,
		key: key,
	}
}

func (s *SQL) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sessionTableDDL)
	if err != nil {
		return fmt.Errorf("create %s table: %w", sessionTable, err)
	}

	return nil
}

func (s *SQL) Save(ctx context.Context, state auth.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	query, args, err := psql.
		Insert(sessionTable).
		Columns("session_key", "state", "updated_at").
		Values(s.key, string(data), sq.Expr("now()")).
		Suffix(`on conflict (session_key) do update set
			state = excluded.state,
			updated_at = excluded.updated_at
		`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert session state: %w", err)
	}

	return nil
}

func (s *SQL) Load(ctx context.Context) (*auth.State, error) {
	query, args, err := psql.
		Select("state").
		From(sessionTable).
		Where(sq.Eq{"session_key": s.key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var data []byte
	err = s.db.GetContext(ctx, &data, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session state: %w", err)
	}

	return decodeState(data)
}

func (s *SQL) Clear(ctx context.Context) error {
	query, args, err := psql.
		Delete(sessionTable).
		Where(sq.Eq{"session_key": s.key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete session state: %w", err)
	}

	return nil
}
