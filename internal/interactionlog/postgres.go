package interactionlog

import (
	"context"
	"encoding/json"

	"adw/cli/internal/dsn"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTable = `CREATE TABLE IF NOT EXISTS agent_interactions (
	id         uuid PRIMARY KEY,
	logged_at  timestamptz NOT NULL,
	adw_id     text,
	agent_name text,
	model_id   text NOT NULL,
	task_type  text NOT NULL,
	outcome    text NOT NULL,
	entry      jsonb NOT NULL
)`

const insertEntry = `INSERT INTO agent_interactions
	(id, logged_at, adw_id, agent_name, model_id, task_type, outcome, entry)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8::jsonb)`

// execer is the part of *pgxpool.Pool the sink uses.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink appends entries to the agent_interactions table.
type PostgresSink struct {
	db    execer
	close func()
}

// OpenPostgresSink connects to the audit database and ensures the table exists.
func OpenPostgresSink(ctx context.Context, rawDSN string) (*PostgresSink, error) {
	normalized, err := dsn.Normalize(rawDSN)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, normalized)
	if err != nil {
		return nil, err
	}
	s := &PostgresSink{db: pool, close: pool.Close}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, createTable)
	return err
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, insertEntry,
		e.ID, e.Timestamp, e.Context.ADWID, e.Context.AgentName,
		e.ModelID, string(e.TaskType), e.Outcome, string(b))
	return err
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	if s.close != nil {
		s.close()
	}
}
