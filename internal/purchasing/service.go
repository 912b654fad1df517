package purchasing

import (
	"context"
	"net/url"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
)

type PurchaseRequest struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	CreatedAt        string  `json:"createdAt,omitempty"`
	Status           Status  `json:"status"`
	ExpectedDate     *string `json:"expectedDate"`
	IgnoredUntil     *string `json:"ignoredUntil"`
	IgnoredReason    *string `json:"ignoredReason"`
	DescriptionSmall string  `json:"descriptionSmall,omitempty"`
	CreatedByID      string  `json:"createdById,omitempty"`
	AssignedUserID   *string `json:"assignedUserId,omitempty"`
}

type Filters struct {
	Status  Status
	Search  string
	MaxSize int
	Offset  int
	OrderBy string
	Order   string
}

var listFields = []string{"createdAt", "ignoredReason", "ignoredUntil", "expectedDate", "status", "descriptionSmall", "name"}

type Service struct {
	api    espo.API
	events events.Emitter
	log    *zap.Logger
}

func NewService(api espo.API, em events.Emitter, log *zap.Logger) *Service {
	return &Service{api: api, events: events.OrNop(em), log: logx.OrNop(log).Named("purchasing")}
}

func path(id string) string { return "/PurchaseRequest/" + url.PathEscape(id) }

func (s *Service) List(ctx context.Context, f Filters) (espo.List[PurchaseRequest], error) {
	lp := query.ListParams{
		MaxSize: f.MaxSize,
		Offset:  f.Offset,
		OrderBy: f.OrderBy,
		Order:   f.Order,
		Select:  listFields,
	}
	if lp.MaxSize <= 0 {
		lp.MaxSize = 100
	}
	if lp.OrderBy == "" {
		lp.OrderBy, lp.Order = "expectedDate", "asc"
	}
	if f.Status != "" {
		lp.Where = append(lp.Where, query.Equals("status", string(f.Status)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		lp.Where = append(lp.Where, query.Contains("name", q))
	}

	var out espo.List[PurchaseRequest]
	err := s.api.Get(ctx, "/PurchaseRequest", lp.Values(), &out)
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (*PurchaseRequest, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	var pr PurchaseRequest
	if err := s.api.Get(ctx, path(id), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ignoredPatch always carries both ignore fields; nil marshals as null.
type ignoredPatch struct {
	Status        Status  `json:"status"`
	IgnoredReason *string `json:"ignoredReason"`
	IgnoredUntil  *string `json:"ignoredUntil"`
}

type purchasedPatch struct {
	Status       Status  `json:"status"`
	ExpectedDate *string `json:"expectedDate,omitempty"`
}

type statusPatch struct {
	Status Status `json:"status"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ignore parks a New request with an optional reason and an optional date it is ignored until.
func (s *Service) Ignore(ctx context.Context, id, reason, until string) (*PurchaseRequest, error) {
	reason = strings.TrimSpace(reason)
	if err := validDate("ignoredUntil", until); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, ActionIgnore, func(to Status) any {
		return ignoredPatch{Status: to, IgnoredReason: optional(reason), IgnoredUntil: optional(until)}
	}, events.PurchaseRequestChanged{IgnoredReason: reason, IgnoredUntil: until})
}

// Unignore returns an Ignored request to New and clears both ignore fields.
func (s *Service) Unignore(ctx context.Context, id string) (*PurchaseRequest, error) {
	return s.transition(ctx, id, ActionUnignore, func(to Status) any {
		return ignoredPatch{Status: to}
	}, events.PurchaseRequestChanged{})
}

func (s *Service) MarkAsPurchased(ctx context.Context, id, expectedDate string) (*PurchaseRequest, error) {
	if err := validDate("expectedDate", expectedDate); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, ActionPurchase, func(to Status) any {
		return purchasedPatch{Status: to, ExpectedDate: optional(expectedDate)}
	}, events.PurchaseRequestChanged{ExpectedDate: expectedDate})
}

// MarkAsDone closes a Purchased request. Done is terminal.
func (s *Service) MarkAsDone(ctx context.Context, id string) (*PurchaseRequest, error) {
	return s.transition(ctx, id, ActionDone, func(to Status) any {
		return statusPatch{Status: to}
	}, events.PurchaseRequestChanged{})
}

// transition sends the status and its side fields in one PATCH so no
// half-applied state is ever stored.
func (s *Service) transition(ctx context.Context, id string, a Action, body func(Status) any, ev events.PurchaseRequestChanged) (*PurchaseRequest, error) {
	log := logx.From(ctx, s.log).With(zap.String("purchase_request_id", id), zap.String("action", string(a)))

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := cur.Status.OrDefault()
	to, err := Next(id, from, a)
	if err != nil {
		log.Info("transition rejected", zap.String("from", string(from)))
		return nil, err
	}

	var out PurchaseRequest
	if err := s.api.Patch(ctx, path(id), body(to), &out); err != nil {
		log.Error("transition failed", zap.Error(err))
		return nil, err
	}
	log.Info("purchase request transitioned", zap.String("from", string(from)), zap.String("to", string(to)))

	ev.PurchaseRequestID, ev.Action, ev.From, ev.To = id, string(a), string(from), string(to)
	if err := s.events.Emit(ctx, events.TopicPurchaseRequestEvents, events.EventPurchaseRequestChanged, id, ev); err != nil {
		log.Warn("emit event failed", zap.Error(err))
	}
	return &out, nil
}
