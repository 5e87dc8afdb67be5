package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codexgen/internal/infra"
	"codexgen/internal/provider"
	"codexgen/internal/sqlinline"
)

// Store reads provider tokens from the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// EnsureSchema creates the integration_tokens table when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QEnsureIntegrationTokens)
	return err
}

// Token returns the stored token for kind, or "" when none is stored.
func (s *Store) Token(ctx context.Context, kind provider.Kind) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, kind.Tag())
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores token for kind, replacing any previous value.
func (s *Store) SetToken(ctx context.Context, kind provider.Kind, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s token is required", kind.Tag())
	}
	return s.upsert(ctx, kind.Tag(), token, nil)
}

// Fill looks up every provider whose token is blank in tokens and writes the
// stored value in place. Lookup errors are joined; tokens found before an
// error are kept.
func (s *Store) Fill(ctx context.Context, tokens map[provider.Kind]string) error {
	var errs []error
	for _, kind := range provider.All {
		if strings.TrimSpace(tokens[kind]) != "" {
			continue
		}
		token, err := s.Token(ctx, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind.Tag(), err))
			continue
		}
		if token != "" {
			tokens[kind] = token
		}
	}
	return errors.Join(errs...)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
