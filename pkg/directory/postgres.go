package directory

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the schema backing Postgres, applied with pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the files.
const MigrationsDir = "migrations"

// Querier is the part of *pgxpool.Pool and pgx.Tx used by Postgres.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres reads the directory from the management database.
type Postgres struct {
	db Querier
}

// NewPostgres creates a directory over db.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

const membershipColumns = `user_id, reference_type, reference_id, role_scope, role_name`

func (p *Postgres) FindByRole(ctx context.Context, scope RoleScope, role string) ([]Membership, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE role_scope = $1 AND role_name = $2`,
		string(scope), role)
	if err != nil {
		return nil, fmt.Errorf("query memberships by role: %w", err)
	}
	return collectMemberships(rows)
}

func (p *Postgres) FindByReferencesAndRole(ctx context.Context, refType ReferenceType, refIDs []string, scope RoleScope, role string) ([]Membership, error) {
	if len(refIDs) == 0 {
		return nil, nil
	}

	rows, err := p.db.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships
		 WHERE reference_type = $1 AND reference_id = ANY($2) AND role_scope = $3 AND role_name = $4`,
		string(refType), refIDs, string(scope), role)
	if err != nil {
		return nil, fmt.Errorf("query memberships by references: %w", err)
	}
	return collectMemberships(rows)
}

func (p *Postgres) FindAPIByID(ctx context.Context, id string) (*API, error) {
	var api API
	err := p.db.QueryRow(ctx, `SELECT id, name, groups FROM apis WHERE id = $1`, id).
		Scan(&api.ID, &api.Name, &api.Groups)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAPINotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query api %q: %w", id, err)
	}
	return &api, nil
}

func (p *Postgres) SearchSubscriptions(ctx context.Context, criteria SubscriptionCriteria) ([]Subscription, error) {
	query := `SELECT id, api, application, status FROM subscriptions
		WHERE (cardinality($1::text[]) = 0 OR api = ANY($1))
		  AND (cardinality($2::text[]) = 0 OR application = ANY($2))
		ORDER BY id`

	apis := criteria.APIs
	if apis == nil {
		apis = []string{}
	}
	apps := criteria.Applications
	if apps == nil {
		apps = []string{}
	}

	rows, err := p.db.Query(ctx, query, apis, apps)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}

	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Subscription, error) {
		var s Subscription
		err := row.Scan(&s.ID, &s.API, &s.Application, &s.Status)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan subscriptions: %w", err)
	}
	return subs, nil
}

// SaveAPI upserts an API definition.
func (p *Postgres) SaveAPI(ctx context.Context, api API) error {
	groups := api.Groups
	if groups == nil {
		groups = []string{}
	}
	_, err := p.db.Exec(ctx,
		`INSERT INTO apis (id, name, groups) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, groups = EXCLUDED.groups`,
		api.ID, api.Name, groups)
	if err != nil {
		return fmt.Errorf("save api %q: %w", api.ID, err)
	}
	return nil
}

// SaveSubscription upserts a subscription.
func (p *Postgres) SaveSubscription(ctx context.Context, s Subscription) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO subscriptions (id, api, application, status) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET api = EXCLUDED.api, application = EXCLUDED.application, status = EXCLUDED.status`,
		s.ID, s.API, s.Application, s.Status)
	if err != nil {
		return fmt.Errorf("save subscription %q: %w", s.ID, err)
	}
	return nil
}

// SaveMembership inserts a membership, ignoring exact duplicates.
func (p *Postgres) SaveMembership(ctx context.Context, m Membership) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO memberships (`+membershipColumns+`) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
		m.UserID, string(m.ReferenceType), m.ReferenceID, string(m.RoleScope), m.RoleName)
	if err != nil {
		return fmt.Errorf("save membership: %w", err)
	}
	return nil
}

func collectMemberships(rows pgx.Rows) ([]Membership, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Membership, error) {
		var (
			m              Membership
			refType, scope string
		)
		if err := row.Scan(&m.UserID, &refType, &m.ReferenceID, &scope, &m.RoleName); err != nil {
			return m, err
		}
		m.ReferenceType = ReferenceType(refType)
		m.RoleScope = RoleScope(scope)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan memberships: %w", err)
	}
	return out, nil
}
