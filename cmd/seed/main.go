// Command seed creates an administrator account for development and first
// boot. The password is hashed with the same argon2id scheme the login path
// verifies against.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"opsboard.org/internal/auth"
	"opsboard.org/internal/ids"
)

func main() {
	log.SetFlags(0)
	var (
		dsn      = flag.String("dsn", os.Getenv("OPSBOARD_PG_DSN"), "PostgreSQL DSN")
		username = flag.String("username", "admin", "administrator username")
		domain   = flag.String("domain", "built-in", "domain code")
		role     = flag.String("role", "ROLE_SUPER", "role code to assign")
		password = flag.String("password", os.Getenv("OPSBOARD_SEED_PASSWORD"), "administrator password")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or OPSBOARD_PG_DSN")
	}
	if *password == "" {
		log.Fatal("missing password: provide via -password or OPSBOARD_SEED_PASSWORD")
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	var domainID string
	if err := tx.QueryRowContext(ctx,
		`select id from domains where code = $1`, *domain,
	).Scan(&domainID); err != nil {
		log.Fatalf("domain %q not found (run migrate up first): %v", *domain, err)
	}

	userID := ids.New()
	if _, err := tx.ExecContext(ctx,
		`insert into users (id, domain_id, username, password_hash, enabled)
		 values ($1, $2, $3, $4, true)
		 on conflict (domain_id, username)
		 do update set password_hash = excluded.password_hash, enabled = true`,
		userID, domainID, *username, hash,
	); err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	// The upsert may have kept an existing row id.
	if err := tx.QueryRowContext(ctx,
		`select id from users where domain_id = $1 and username = $2`,
		domainID, *username,
	).Scan(&userID); err != nil {
		log.Fatalf("reload user: %v", err)
	}

	if _, err := tx.ExecContext(ctx,
		`insert into user_roles (user_id, role_id)
		 select $1, r.id from roles r where r.domain_id = $2 and r.code = $3
		 on conflict do nothing`,
		userID, domainID, *role,
	); err != nil {
		log.Fatalf("assign role: %v", err)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}
	log.Printf("seeded %s@%s with role %s", *username, *domain, *role)
}
