package review

import (
	"time"

	"github.com/uptrace/bun"
)

// ApprovalStatus is the moderation state of a submission
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// SponsorStatusActive is set on a sponsor once it is approved
const SponsorStatusActive = "active"

// Decision is the outcome an admin records on a submission
type Decision int

const (
	Approve Decision = iota
	Reject
)

func (d Decision) status() ApprovalStatus {
	if d == Approve {
		return StatusApproved
	}
	return StatusRejected
}

func (d Decision) String() string {
	if d == Approve {
		return "approve"
	}
	return "reject"
}

type PaymentGateway struct {
	bun.BaseModel  `bun:"table:payment_gateways,alias:pg"`
	ID             int64          `bun:"id,pk,autoincrement" json:"id"`
	Name           string         `bun:"name,notnull" json:"name"`
	Slug           string         `bun:"slug,notnull,unique" json:"slug"`
	Description    string         `bun:"description,notnull" json:"description"`
	WebsiteURL     *string        `bun:"website_url" json:"websiteUrl,omitempty"`
	ApprovalStatus ApprovalStatus `bun:"approval_status,notnull" json:"approvalStatus"`
	SubmittedAt    *time.Time     `bun:"submitted_at" json:"submittedAt,omitempty"`
	ReviewedAt     *time.Time     `bun:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewedBy     *string        `bun:"reviewed_by" json:"reviewedBy,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

type Sponsor struct {
	bun.BaseModel  `bun:"table:sponsors,alias:sp"`
	ID             int64           `bun:"id,pk,autoincrement" json:"id"`
	GatewayID      int64           `bun:"gateway_id,notnull" json:"gatewayId"`
	Gateway        *PaymentGateway `bun:"rel:belongs-to,join:gateway_id=id" json:"gateway,omitempty"`
	Tier           *string         `bun:"tier" json:"tier,omitempty"`
	Status         string          `bun:"status,notnull" json:"status"`
	ApprovalStatus ApprovalStatus  `bun:"approval_status,notnull" json:"approvalStatus"`
	SubmittedAt    *time.Time      `bun:"submitted_at" json:"submittedAt,omitempty"`
	ReviewedAt     *time.Time      `bun:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewedBy     *string         `bun:"reviewed_by" json:"reviewedBy,omitempty"`
}
