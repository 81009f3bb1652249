package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"opsboard.org/internal/ids"
)

var (
	_ PrincipalStore = (*PGStore)(nil)
	_ LoginLogStore  = (*PGStore)(nil)
)

// PGStore implements the persistence contracts using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindPrincipal(ctx context.Context, username, domain string) (*Principal, error) {
	row := s.db.QueryRowContext(ctx,
		`select u.id, u.username, u.password_hash, d.code, coalesce(o.name, ''), u.enabled
		 from users u
		 join domains d on d.id = u.domain_id
		 left join organizations o on o.id = u.organization_id
		 where u.username = $1 and d.code = $2 and u.deleted_at is null`,
		username, domain,
	)
	var p Principal
	if err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.Domain, &p.Organization, &p.Enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}

	roles, err := s.roleCodes(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Roles = roles
	return &p, nil
}

func (s *PGStore) roleCodes(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select r.code
		 from roles r
		 join user_roles ur on ur.role_id = r.id
		 where ur.user_id = $1
		 order by r.code asc`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load role codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan role code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role codes: %w", err)
	}
	return dedupeRoles(codes), nil
}

func (s *PGStore) Append(ctx context.Context, entry *LoginLog) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into login_logs(id, user_id, username, domain, login_at, ip, user_agent, request_id)
		 values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.Username, entry.Domain, entry.LoginAt,
		entry.IP, entry.UserAgent, entry.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append login log: %w", err)
	}
	return nil
}
