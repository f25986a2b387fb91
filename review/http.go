package review

import (
	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-admin-auth"
	"github.com/goliatone/go-errors"
)

type ControllerRoutes struct {
	PendingGateways string
	ApproveGateway  string
	RejectGateway   string
	PendingSponsors string
	ApproveSponsor  string
	RejectSponsor   string
}

// Controller exposes the moderation queue. It expects the access guard to
// have put the acting admin's claims on the request context.
type Controller struct {
	Store  Store
	Logger auth.Logger
	Routes *ControllerRoutes
}

type ControllerOption func(*Controller)

func WithLogger(logger auth.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func NewController(store Store, opts ...ControllerOption) *Controller {
	if store == nil {
		panic("Missing Store in review controller...")
	}

	c := &Controller{
		Store:  store,
		Logger: nopLogger{},
		Routes: &ControllerRoutes{
			PendingGateways: "/admin/gateways/pending",
			ApproveGateway:  "/admin/gateways/:id/approve",
			RejectGateway:   "/admin/gateways/:id/reject",
			PendingSponsors: "/admin/sponsors/pending",
			ApproveSponsor:  "/admin/sponsors/:id/approve",
			RejectSponsor:   "/admin/sponsors/:id/reject",
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (r *Controller) RegisterRoutes(app fiber.Router) {
	app.Get(r.Routes.PendingGateways, r.PendingGateways)
	app.Post(r.Routes.ApproveGateway, r.reviewGateway(Approve))
	app.Post(r.Routes.RejectGateway, r.reviewGateway(Reject))
	app.Get(r.Routes.PendingSponsors, r.PendingSponsors)
	app.Post(r.Routes.ApproveSponsor, r.reviewSponsor(Approve))
	app.Post(r.Routes.RejectSponsor, r.reviewSponsor(Reject))
}

func (r *Controller) PendingGateways(c *fiber.Ctx) error {
	gateways, err := r.Store.PendingGateways(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"gateways": gateways,
	})
}

func (r *Controller) PendingSponsors(c *fiber.Ctx) error {
	sponsors, err := r.Store.PendingSponsors(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"sponsors": sponsors,
	})
}

func (r *Controller) reviewGateway(decision Decision) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, reviewer, err := reviewTarget(c)
		if err != nil {
			return err
		}

		gateway, err := r.Store.ReviewGateway(c.UserContext(), id, decision, reviewer)
		if err != nil {
			return err
		}

		r.Logger.Info("gateway reviewed", "id", id, "decision", decision.String(), "reviewer", reviewer)

		return c.JSON(fiber.Map{
			"success": true,
			"gateway": gateway,
		})
	}
}

func (r *Controller) reviewSponsor(decision Decision) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, reviewer, err := reviewTarget(c)
		if err != nil {
			return err
		}

		sponsor, err := r.Store.ReviewSponsor(c.UserContext(), id, decision, reviewer)
		if err != nil {
			return err
		}

		r.Logger.Info("sponsor reviewed", "id", id, "decision", decision.String(), "reviewer", reviewer)

		return c.JSON(fiber.Map{
			"success": true,
			"sponsor": sponsor,
		})
	}
}

// reviewTarget reads the submission id from the path and the reviewer from
// the typed claims, never from the request body
func reviewTarget(c *fiber.Ctx) (int64, string, error) {
	reviewer := auth.ActingAdmin(c.UserContext())
	if reviewer == "" {
		return 0, "", auth.ErrUnauthorized
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, "", errors.New("Invalid id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{
				"id": c.Params("id"),
			})
	}

	return int64(id), reviewer, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
