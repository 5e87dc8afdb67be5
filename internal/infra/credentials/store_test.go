package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"codexgen/internal/provider"
)

type stubExecutor struct {
	tokens map[string]string
	err    error
	asked  []string
	exec   struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	tag, _ := args[0].(string)
	s.asked = append(s.asked, tag)
	if s.err != nil {
		return stubRow{err: s.err}
	}
	token, ok := s.tokens[tag]
	if !ok {
		return stubRow{err: pgx.ErrNoRows}
	}
	return stubRow{token: token}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestToken(t *testing.T) {
	store := NewStore(&stubExecutor{tokens: map[string]string{"prodia": " abc123 "}})
	key, err := store.Token(context.Background(), provider.Prodia)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestToken_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{})
	key, err := store.Token(context.Background(), provider.Dalle)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestSetToken(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetToken(context.Background(), provider.Civitai, "secret"); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != "civitai" {
		t.Fatalf("expected civitai provider argument, got %T %v", exec.exec.args[0], exec.exec.args[0])
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetTokenEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetToken(context.Background(), provider.Leonardo, " "); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestFillOnlyLooksUpMissingTokens(t *testing.T) {
	exec := &stubExecutor{tokens: map[string]string{"leonardo": "db-leo", "dalle": "db-dalle"}}
	tokens := map[provider.Kind]string{
		provider.Leonardo: "env-leo",
		provider.Civitai:  "env-civ",
		provider.Prodia:   "env-prodia",
	}
	if err := NewStore(exec).Fill(context.Background(), tokens); err != nil {
		t.Fatalf("Fill error: %v", err)
	}
	if tokens[provider.Leonardo] != "env-leo" {
		t.Fatalf("env token must win, got %q", tokens[provider.Leonardo])
	}
	if tokens[provider.Dalle] != "db-dalle" {
		t.Fatalf("expected stored dalle token, got %q", tokens[provider.Dalle])
	}
	if _, ok := tokens[provider.Midjourney]; ok {
		t.Fatalf("missing token should stay absent")
	}
	if len(exec.asked) != 2 || exec.asked[0] != "midjourney" || exec.asked[1] != "dalle" {
		t.Fatalf("unexpected lookups: %v", exec.asked)
	}
}

func TestFillJoinsErrors(t *testing.T) {
	boom := errors.New("connection reset")
	tokens := map[provider.Kind]string{}
	err := NewStore(&stubExecutor{err: boom}).Fill(context.Background(), tokens)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	exec := &stubExecutor{}
	if err := NewStore(exec).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if exec.exec.query == "" || len(exec.exec.args) != 0 {
		t.Fatalf("unexpected exec: %q %v", exec.exec.query, exec.exec.args)
	}
}
