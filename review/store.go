// Package review is the moderation queue for submitted payment gateways and
// sponsors. Every route it mounts sits behind the access guard.
package review

import (
	"context"
	"time"

	auth "github.com/goliatone/go-admin-auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const (
	TextCodeGatewayNotFound = "GATEWAY_NOT_FOUND"
	TextCodeSponsorNotFound = "SPONSOR_NOT_FOUND"
)

// Store reads the pending queues and records review decisions
type Store interface {
	PendingGateways(ctx context.Context) ([]*PaymentGateway, error)
	ReviewGateway(ctx context.Context, id int64, decision Decision, reviewer string) (*PaymentGateway, error)
	PendingSponsors(ctx context.Context) ([]*Sponsor, error)
	ReviewSponsor(ctx context.Context, id int64, decision Decision, reviewer string) (*Sponsor, error)
}

type store struct {
	db  *bun.DB
	now auth.Clock
}

var _ Store = (*store)(nil)

type StoreOption func(*store)

// WithStoreClock overrides the clock used for reviewed_at stamps
func WithStoreClock(now auth.Clock) StoreOption {
	return func(s *store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(db *bun.DB, opts ...StoreOption) Store {
	s := &store{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// PendingGateways lists gateways awaiting review, newest submission first
func (s *store) PendingGateways(ctx context.Context) ([]*PaymentGateway, error) {
	out := []*PaymentGateway{}
	err := s.db.NewSelect().
		Model(&out).
		Where("?TableAlias.approval_status = ?", StatusPending).
		OrderExpr("?TableAlias.submitted_at DESC").
		Scan(ctx)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}
	return out, nil
}

func (s *store) ReviewGateway(ctx context.Context, id int64, decision Decision, reviewer string) (*PaymentGateway, error) {
	gateway := &PaymentGateway{}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(gateway).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return notFound("Gateway not found", TextCodeGatewayNotFound, id)
			}
			return err
		}

		now := s.now()
		gateway.ApprovalStatus = decision.status()
		gateway.ReviewedAt = &now
		gateway.ReviewedBy = &reviewer
		gateway.UpdatedAt = &now

		_, err = tx.NewUpdate().
			Table("payment_gateways").
			Set("approval_status = ?", gateway.ApprovalStatus).
			Set("reviewed_at = ?", now).
			Set("reviewed_by = ?", reviewer).
			Set("updated_at = ?", now).
			Where("id = ?", gateway.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return gateway, nil
}

// PendingSponsors lists sponsors awaiting review with their gateway loaded
func (s *store) PendingSponsors(ctx context.Context) ([]*Sponsor, error) {
	out := []*Sponsor{}
	err := s.db.NewSelect().
		Model(&out).
		Relation("Gateway").
		Where("?TableAlias.approval_status = ?", StatusPending).
		OrderExpr("?TableAlias.submitted_at DESC").
		Scan(ctx)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}
	return out, nil
}

// ReviewSponsor records the decision. An approved sponsor also becomes active.
func (s *store) ReviewSponsor(ctx context.Context, id int64, decision Decision, reviewer string) (*Sponsor, error) {
	sponsor := &Sponsor{}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model(sponsor).
			Relation("Gateway").
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return notFound("Sponsor not found", TextCodeSponsorNotFound, id)
			}
			return err
		}

		now := s.now()
		sponsor.ApprovalStatus = decision.status()
		sponsor.ReviewedAt = &now
		sponsor.ReviewedBy = &reviewer

		if decision == Approve {
			sponsor.Status = SponsorStatusActive
		}

		_, err = tx.NewUpdate().
			Table("sponsors").
			Set("approval_status = ?", sponsor.ApprovalStatus).
			Set("reviewed_at = ?", now).
			Set("reviewed_by = ?", reviewer).
			Set("status = ?", sponsor.Status).
			Where("id = ?", sponsor.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sponsor, nil
}

func notFound(msg, textCode string, id int64) error {
	return errors.New(msg, errors.CategoryNotFound).
		WithTextCode(textCode).
		WithCode(errors.CodeNotFound).
		WithMetadata(map[string]any{
			"id": id,
		})
}

// IsNotFound reports whether err is an unknown submission id
func IsNotFound(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryNotFound
}
