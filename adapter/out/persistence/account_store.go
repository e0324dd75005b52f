// Package persistence implements the Postgres-backed stores: the cloud
// account allow-list and the team directory.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AccountStore answers allow-list membership from the supported_accounts
// table. Rows are written by the onboarding tooling; this side only reads.
type AccountStore struct {
	db *sqlx.DB
}

func NewAccountStore(db *sqlx.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) IsSupported(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM supported_accounts WHERE account_id = $1)`
	if err := s.db.GetContext(ctx, &exists, query, accountID); err != nil {
		return false, fmt.Errorf("account lookup: %w", err)
	}
	return exists, nil
}

// TeamDirectory maps team names to their chat webhook URLs.
type TeamDirectory struct {
	db *sqlx.DB
}

func NewTeamDirectory(db *sqlx.DB) *TeamDirectory {
	return &TeamDirectory{db: db}
}

// ErrTeamNotFound is returned when no directory row exists for a team.
var ErrTeamNotFound = errors.New("team not found in directory")

func (d *TeamDirectory) WebhookURL(ctx context.Context, teamName string) (string, error) {
	var url string
	query := `SELECT webhook_url FROM team_directory WHERE team_name = $1`
	if err := d.db.GetContext(ctx, &url, query, teamName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrTeamNotFound, teamName)
		}
		return "", fmt.Errorf("team directory lookup: %w", err)
	}
	if url == "" {
		return "", fmt.Errorf("%w: %s has no webhook url", ErrTeamNotFound, teamName)
	}
	return url, nil
}
