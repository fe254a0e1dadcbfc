// Package app dispatches UI action requests to the session engine. It gates
// every action on the caller's role, translates parameters, and maps typed
// domain errors onto stable error kinds for the rendering layer.
package app

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"growvertising/internal/analytics"
	"growvertising/internal/core"
	"growvertising/pkg/domain"
)

// ErrorKind classifies a failed request for the rendering layer.
type ErrorKind string

const (
	ErrorValidation    ErrorKind = "validation"
	ErrorNotFound      ErrorKind = "not_found"
	ErrorAccessDenied  ErrorKind = "access_denied"
	ErrorRuleViolation ErrorKind = "rule_violation"
	ErrorUnknownAction ErrorKind = "unknown_action"
	ErrorInternal      ErrorKind = "internal"
)

// Request is one UI action or query, carrying the caller's role and
// free-form string parameters.
type Request struct {
	Action string            `json:"action"`
	Actor  string            `json:"actor"`
	Role   domain.Role       `json:"role"`
	Params map[string]string `json:"params,omitempty"`
}

// Response carries either a view model payload or a classified error.
type Response struct {
	OK      bool      `json:"ok"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

func (r Request) param(key string) string {
	return strings.TrimSpace(r.Params[key])
}

// Dispatcher routes requests to the session service and analytics aggregator.
type Dispatcher struct {
	service    *core.Service
	aggregator *analytics.Aggregator
	logger     core.Logger
}

// NewDispatcher constructs a dispatcher over the given collaborators. The
// aggregator may be nil when dashboards are not served.
func NewDispatcher(service *core.Service, aggregator *analytics.Aggregator, logger core.Logger) *Dispatcher {
	if logger == nil {
		logger = core.NewSlogLogger(nil)
	}
	return &Dispatcher{service: service, aggregator: aggregator, logger: logger}
}

// actionViews maps each action to the page-level view that gates it.
var actionViews = map[string]domain.View{
	"list_campaigns":       domain.ViewHome,
	"request_seed_kit":     domain.ViewHome,
	"counters":             domain.ViewHome,
	"start_growing":        domain.ViewMyPlants,
	"advance_progress":     domain.ViewMyPlants,
	"harvest":              domain.ViewMyPlants,
	"list_active_plants":   domain.ViewMyPlants,
	"list_harvest_history": domain.ViewMyPlants,
	"submit_upload":        domain.ViewCommunity,
	"submit_comment":       domain.ViewCommunity,
	"like_upload":          domain.ViewCommunity,
	"like_comment":         domain.ViewCommunity,
	"list_feed_uploads":    domain.ViewCommunity,
	"list_feed_comments":   domain.ViewCommunity,
	"create_campaign":      domain.ViewSponsorDashboard,
	"analytics_snapshot":   domain.ViewSponsorDashboard,
	"admin_overview":       domain.ViewAdminPanel,
}

// Dispatch authorizes and executes one request. Every failure is returned as
// a classified response; the error return is reserved for context
// cancellation and store-level failures.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	view, known := actionViews[req.Action]
	if !known {
		return failure(ErrorUnknownAction, "unknown action "+req.Action)
	}
	if err := domain.Authorize(req.Role, view); err != nil {
		d.logger.Warn("request denied", "action", req.Action, "role", req.Role)
		return d.toResponse(nil, err)
	}

	payload, err := d.invoke(ctx, req)
	return d.toResponse(payload, err)
}

func (d *Dispatcher) invoke(ctx context.Context, req Request) (any, error) {
	switch req.Action {
	case "start_growing":
		plantedAt, err := parseTime(req.param("planted_at"))
		if err != nil {
			return nil, err
		}
		plant, _, err := d.service.StartGrowing(ctx, domain.Species(req.param("species")), plantedAt, req.Params["notes"])
		return plant, err

	case "advance_progress":
		delta, err := parseInt(req.param("delta"), "delta")
		if err != nil {
			return nil, err
		}
		plant, _, err := d.service.AdvanceProgress(ctx, req.param("id"), delta)
		return plant, err

	case "harvest":
		record, _, err := d.service.Harvest(ctx, req.param("id"))
		return record, err

	case "list_active_plants":
		return d.service.ListActivePlants(ctx)

	case "list_harvest_history":
		return d.service.ListHarvestHistory(ctx)

	case "submit_upload":
		upload, _, err := d.service.SubmitUpload(ctx, req.Actor, req.param("image_ref"), req.Params["caption"], req.Params["location"])
		return upload, err

	case "submit_comment":
		comment, _, err := d.service.SubmitComment(ctx, req.Actor, req.Params["text"])
		return comment, err

	case "like_upload":
		upload, _, err := d.service.LikeUpload(ctx, req.param("id"))
		return upload, err

	case "like_comment":
		comment, _, err := d.service.LikeComment(ctx, req.param("id"))
		return comment, err

	case "list_feed_uploads":
		return d.service.ListFeedUploads(ctx)

	case "list_feed_comments":
		return d.service.ListFeedComments(ctx)

	case "list_campaigns":
		return d.service.ListCampaigns(ctx)

	case "request_seed_kit":
		total, _, err := d.service.RequestSeedKit(ctx, req.param("campaign_id"))
		return total, err

	case "counters":
		return d.service.Counters(), nil

	case "create_campaign":
		investment := 0.0
		if raw := req.param("investment"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, domain.ValidationError{Field: "investment", Reason: "not a number: " + raw}
			}
			investment = parsed
		}
		campaign, _, err := d.service.CreateCampaign(ctx, domain.Campaign{
			Name:        req.Params["name"],
			Description: req.Params["description"],
			Sponsor:     req.Params["sponsor"],
			ImageRef:    req.Params["image_ref"],
			Investment:  investment,
		})
		return campaign, err

	case "analytics_snapshot":
		if d.aggregator == nil {
			return nil, errors.New("analytics not configured")
		}
		return d.aggregator.Snapshot(ctx)

	case "admin_overview":
		return d.adminOverview(ctx)
	}
	return nil, errors.New("unhandled action " + req.Action)
}

// AdminOverview combines the engagement totals with collection sizes for the
// admin panel.
type AdminOverview struct {
	Counters    domain.EngagementCounters `json:"counters"`
	Plants      int                       `json:"plants"`
	Harvests    int                       `json:"harvests"`
	Uploads     int                       `json:"uploads"`
	Comments    int                       `json:"comments"`
	Campaigns   int                       `json:"campaigns"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

func (d *Dispatcher) adminOverview(ctx context.Context) (AdminOverview, error) {
	var overview AdminOverview
	err := d.service.Store().View(ctx, func(view domain.RuleView) error {
		overview.Counters = view.Counters()
		overview.Plants = len(view.ListPlants())
		overview.Harvests = len(view.ListHarvests())
		overview.Uploads = len(view.ListUploads())
		overview.Comments = len(view.ListComments())
		overview.Campaigns = len(view.ListCampaigns())
		return nil
	})
	overview.GeneratedAt = time.Now().UTC()
	return overview, err
}

func (d *Dispatcher) toResponse(payload any, err error) Response {
	if err == nil {
		return Response{OK: true, Payload: payload}
	}

	var validation domain.ValidationError
	var notFound domain.NotFoundError
	var denied domain.AccessDeniedError
	var ruleViolation domain.RuleViolationError
	switch {
	case errors.As(err, &validation):
		return failure(ErrorValidation, validation.Error())
	case errors.As(err, &notFound):
		return failure(ErrorNotFound, notFound.Error())
	case errors.As(err, &denied):
		return failure(ErrorAccessDenied, denied.Error())
	case errors.As(err, &ruleViolation):
		return failure(ErrorRuleViolation, ruleViolation.Error())
	default:
		d.logger.Error("request failed", "error", err)
		return failure(ErrorInternal, err.Error())
	}
}

func failure(kind ErrorKind, message string) Response {
	return Response{Kind: kind, Message: message}
}

func parseInt(raw, field string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationError{Field: field, Reason: "not an integer: " + raw}
	}
	return value, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: "planted_at", Reason: "not an RFC3339 timestamp: " + raw}
	}
	return parsed, nil
}
