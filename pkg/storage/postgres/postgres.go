// Package postgres is a PostgreSQL transport.ResultStore built on a pgx
// connection pool. Tool calls and usage are stored as JSONB; deletes are
// soft.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/storage"
	"github.com/rhuss/chatbridge/pkg/transport"
)

const selectColumns = `id, model, text, reasoning, tool_calls, finish_reason, usage, created_at`

// Store is a PostgreSQL-backed ResultStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ transport.ResultStore = (*Store)(nil)

// New connects to the database and, when cfg.MigrateOnStart is set,
// applies pending migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) SaveResult(ctx context.Context, resp *api.ChatResponse) error {
	toolCalls := resp.ToolCalls
	if toolCalls == nil {
		toolCalls = []api.ToolInvocation{}
	}
	toolCallsJSON, err := json.Marshal(toolCalls)
	if err != nil {
		return fmt.Errorf("postgres: marshal tool calls: %w", err)
	}

	var usageJSON []byte
	if resp.Usage != nil {
		if usageJSON, err = json.Marshal(resp.Usage); err != nil {
			return fmt.Errorf("postgres: marshal usage: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_results (
			id, tenant_id, model, text, reasoning,
			tool_calls, finish_reason, usage, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		resp.ID, storage.GetTenant(ctx), resp.Model, resp.Text, resp.Reasoning,
		toolCallsJSON, string(resp.FinishReason), nullJSON(usageJSON), resp.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("postgres: insert result: %w", err)
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, id string) (*api.ChatResponse, error) {
	q := newQuery("SELECT " + selectColumns + " FROM chat_results WHERE deleted_at IS NULL")
	q.where("id = %s", id)
	q.tenant(ctx)

	resp, err := scanResult(s.pool.QueryRow(ctx, q.sql.String(), q.args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: query result: %w", err)
	}
	return resp, nil
}

func (s *Store) DeleteResult(ctx context.Context, id string) error {
	q := newQuery("UPDATE chat_results SET deleted_at = now() WHERE deleted_at IS NULL")
	q.where("id = %s", id)
	q.tenant(ctx)

	tag, err := s.pool.Exec(ctx, q.sql.String(), q.args...)
	if err != nil {
		return fmt.Errorf("postgres: delete result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListResults pages by (created_at, id). A cursor that does not exist
// yields an empty page.
func (s *Store) ListResults(ctx context.Context, opts transport.ListOptions) (*transport.ResultList, error) {
	opts = opts.Normalize()
	asc := opts.Order == "asc"

	q := newQuery("SELECT " + selectColumns + " FROM chat_results WHERE deleted_at IS NULL")
	q.tenant(ctx)
	if opts.Model != "" {
		q.where("model = %s", opts.Model)
	}

	// "after" walks forward in list order, "before" backward.
	cursor, forward := opts.After, true
	if cursor == "" && opts.Before != "" {
		cursor, forward = opts.Before, false
	}
	if cursor != "" {
		op := "<"
		if asc == forward {
			op = ">"
		}
		q.where("(created_at, id) "+op+" (SELECT created_at, id FROM chat_results WHERE id = %s)", cursor)
	}

	dir := "DESC"
	if asc {
		dir = "ASC"
	}
	fmt.Fprintf(&q.sql, " ORDER BY created_at %s, id %s", dir, dir)
	q.args = append(q.args, opts.Limit+1)
	fmt.Fprintf(&q.sql, " LIMIT $%d", len(q.args))

	rows, err := s.pool.Query(ctx, q.sql.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list results: %w", err)
	}
	defer rows.Close()

	var results []*api.ChatResponse
	for rows.Next() {
		resp, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan result: %w", err)
		}
		results = append(results, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list results: %w", err)
	}

	list := &transport.ResultList{Object: "list", Data: []*api.ChatResponse{}}
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
		list.HasMore = true
	}
	if len(results) > 0 {
		list.Data = results
		list.FirstID = results[0].ID
		list.LastID = results[len(results)-1].ID
	}
	return list, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// query builds a statement with numbered placeholders.
type query struct {
	sql  strings.Builder
	args []any
}

func newQuery(base string) *query {
	q := &query{}
	q.sql.WriteString(base)
	return q
}

// where appends "AND cond", with %s replaced by the next placeholder.
func (q *query) where(cond string, arg any) {
	q.args = append(q.args, arg)
	q.sql.WriteString(" AND ")
	fmt.Fprintf(&q.sql, cond, fmt.Sprintf("$%d", len(q.args)))
}

func (q *query) tenant(ctx context.Context) {
	if tenantID := storage.GetTenant(ctx); tenantID != "" {
		q.where("tenant_id = %s", tenantID)
	}
}

func scanResult(row pgx.Row) (*api.ChatResponse, error) {
	var resp api.ChatResponse
	var finish string
	var toolCallsJSON, usageJSON []byte

	if err := row.Scan(
		&resp.ID, &resp.Model, &resp.Text, &resp.Reasoning,
		&toolCallsJSON, &finish, &usageJSON, &resp.CreatedAt,
	); err != nil {
		return nil, err
	}
	resp.FinishReason = api.FinishReason(finish)

	if err := json.Unmarshal(toolCallsJSON, &resp.ToolCalls); err != nil {
		return nil, fmt.Errorf("unmarshal tool calls: %w", err)
	}
	if len(resp.ToolCalls) == 0 {
		resp.ToolCalls = nil
	}
	if len(usageJSON) > 0 {
		resp.Usage = &api.TokenUsage{}
		if err := json.Unmarshal(usageJSON, resp.Usage); err != nil {
			return nil, fmt.Errorf("unmarshal usage: %w", err)
		}
	}
	return &resp, nil
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
