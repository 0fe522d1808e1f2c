package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"styleframe/internal/infra"
	"styleframe/internal/sqlinline"
)

// Known integration providers.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderDashScope = "dashscope"
	ProviderLivepeer  = "livepeer"
)

// Store reads and writes provider API keys kept in postgres. Environments that
// set the keys via env vars never touch it.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored API key for a provider, or empty when none is set.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores or replaces the API key for a provider.
func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	provider = strings.TrimSpace(strings.ToLower(provider))
	switch provider {
	case ProviderOpenAI, ProviderGemini, ProviderDashScope, ProviderLivepeer:
	default:
		return errors.New("credentials: unknown provider " + provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("credentials: api key is required")
	}
	return s.upsert(ctx, provider, key, nil)
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
