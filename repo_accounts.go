package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

var StoreRefreshFingerprintSQL = `UPDATE "admin_users"
SET
	"refresh_token_hash" = ?,
	"refresh_token_expires_at" = ?,
	"updated_at" = ?
WHERE
	"id" = ?;`

var RotateRefreshFingerprintSQL = `UPDATE "admin_users"
SET
	"refresh_token_hash" = ?,
	"refresh_token_expires_at" = ?,
	"updated_at" = ?
WHERE
	"id" = ?
AND "refresh_token_hash" = ?;`

var ClearRefreshFingerprintSQL = `UPDATE "admin_users"
SET
	"refresh_token_hash" = NULL,
	"refresh_token_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"id" = ?;`

var TrackSuccessfulLoginSQL = `UPDATE "admin_users"
SET
	"last_login_at" = ?,
	"updated_at" = ?
WHERE
	"id" = ?;`

// Accounts is the account store. It owns the refresh fingerprint pair, the
// only shared mutable state of the session flow.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*AdminAccount, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*AdminAccount, error)
	GetByIdentifier(ctx context.Context, identifier string) (*AdminAccount, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*AdminAccount, error)
	ExistsTx(ctx context.Context, tx bun.IDB, username, email string) (bool, error)

	Create(ctx context.Context, record *AdminAccount) (*AdminAccount, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *AdminAccount) (*AdminAccount, error)

	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error

	StoreRefreshFingerprintTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string, expiresAt time.Time) error
	RotateRefreshFingerprintTx(ctx context.Context, tx bun.IDB, id uuid.UUID, previous, hash string, expiresAt time.Time) (bool, error)
	ClearRefreshFingerprint(ctx context.Context, id uuid.UUID) error
	ClearRefreshFingerprintTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type accounts struct {
	repo repository.Repository[*AdminAccount]
	db   *bun.DB
	now  Clock
}

var _ Accounts = (*accounts)(nil)

type AccountsOption func(*accounts)

// WithAccountsClock overrides the clock used for updated_at stamps
func WithAccountsClock(now Clock) AccountsOption {
	return func(a *accounts) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*AdminAccount](db, repository.ModelHandlers[*AdminAccount]{
		NewRecord: func() *AdminAccount { return &AdminAccount{} },
		GetID: func(a *AdminAccount) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *AdminAccount, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	a := &accounts{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*AdminAccount, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *accounts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*AdminAccount, error) {
	record := &AdminAccount{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (a *accounts) GetByIdentifier(ctx context.Context, identifier string) (*AdminAccount, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

// GetByIdentifierTx looks the account up by email when identifier looks like
// one, then by username
func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*AdminAccount, error) {
	for _, opt := range resolveAccountIdentifier(identifier) {
		record := &AdminAccount{}
		err := tx.NewSelect().
			Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accounts) ExistsTx(ctx context.Context, tx bun.IDB, username, email string) (bool, error) {
	return tx.NewSelect().
		Model((*AdminAccount)(nil)).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		WhereOr("?TableAlias.email = ?", normalizeEmail(email)).
		Exists(ctx)
}

func (a *accounts) Create(ctx context.Context, record *AdminAccount) (*AdminAccount, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *AdminAccount) (*AdminAccount, error) {
	prepareAccountDefaults(record, a.now())

	created, err := a.repo.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return created, nil
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) error {
	_, err := tx.NewRaw(TrackSuccessfulLoginSQL, at, a.now(), id.String()).Exec(ctx)
	return err
}

// StoreRefreshFingerprintTx overwrites whatever fingerprint was live
func (a *accounts) StoreRefreshFingerprintTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string, expiresAt time.Time) error {
	res, err := tx.NewRaw(StoreRefreshFingerprintSQL, hash, expiresAt, a.now(), id.String()).Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return nil
}

// RotateRefreshFingerprintTx swaps the fingerprint only if it still equals
// previous. It returns false when another rotation or a logout got there first.
func (a *accounts) RotateRefreshFingerprintTx(ctx context.Context, tx bun.IDB, id uuid.UUID, previous, hash string, expiresAt time.Time) (bool, error) {
	res, err := tx.NewRaw(RotateRefreshFingerprintSQL, hash, expiresAt, a.now(), id.String(), previous).Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (a *accounts) ClearRefreshFingerprint(ctx context.Context, id uuid.UUID) error {
	return a.ClearRefreshFingerprintTx(ctx, a.db, id)
}

func (a *accounts) ClearRefreshFingerprintTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewRaw(ClearRefreshFingerprintSQL, a.now(), id.String()).Exec(ctx)
	return err
}

func prepareAccountDefaults(record *AdminAccount, now time.Time) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Role == "" {
		record.Role = RoleAdmin
	}

	record.Username = strings.TrimSpace(record.Username)
	record.Email = normalizeEmail(record.Email)

	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  normalizeEmail(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed: unique")
}
