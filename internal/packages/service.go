package packages

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

const (
	defaultPageSize = 20
	itemsPageSize   = 100
)

var listFields = []string{
	"createdAt", "name", "salesOrderId", "salesOrderName", "carrierId", "carrierName",
	"shippingAddressFirstName", "shippingAddressLastName", "lastTrackingStatus", "lastTrackingStatusNormalized",
	"status", "errorMessage",
}

type Service struct {
	api          espo.API
	events       events.Emitter
	log          *zap.Logger
	downloadBase string
}

// NewService wires the package service. downloadBase is the CRM site root that
// serves the download entry point, without the /api/v1 suffix.
func NewService(api espo.API, downloadBase string, em events.Emitter, log *zap.Logger) *Service {
	return &Service{
		api:          api,
		events:       events.OrNop(em),
		log:          logx.OrNop(log).Named("packages"),
		downloadBase: strings.TrimRight(downloadBase, "/"),
	}
}

func (s *Service) List(ctx context.Context, q ListQuery) (espo.List[Package], error) {
	if q.MaxSize <= 0 {
		q.MaxSize = defaultPageSize
	}
	params := query.ListParams{
		MaxSize: q.MaxSize,
		Offset:  q.Offset,
		OrderBy: "createdAt",
		Order:   "desc",
		Select:  listFields,
		Where:   []query.Predicate{query.Text(q.Search)},
	}.Values()

	var out espo.List[Package]
	if err := s.api.Get(ctx, "/Package", params, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	var d Detail
	if err := s.api.Get(ctx, "/Package/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) Items(ctx context.Context, id string) ([]Item, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "required")
	}
	params := query.ListParams{MaxSize: itemsPageSize}.Values()
	var out espo.List[Item]
	if err := s.api.Get(ctx, "/Package/"+url.PathEscape(id)+"/packageItems", params, &out); err != nil {
		return nil, err
	}
	if out.List == nil {
		return []Item{}, nil
	}
	return out.List, nil
}

// LabelURL is the browser download link for a package label attachment.
func (s *Service) LabelURL(labelID string) string {
	return s.downloadBase + "/?entryPoint=download&id=" + url.QueryEscape(labelID)
}

func (s *Service) MarkAsPacked(ctx context.Context, id string) (Package, error) {
	return s.transition(ctx, id, ActionMarkAsPacked)
}

func (s *Service) ReceiveReturn(ctx context.Context, id string) (Package, error) {
	return s.transition(ctx, id, ActionReceiveReturn)
}

func (s *Service) SendToExpedition(ctx context.Context, id string) (Package, error) {
	return s.transition(ctx, id, ActionSendToExpedition)
}

// transition checks the action against the current remote status before
// asking the CRM to perform it, so an illegal action never reaches the wire.
func (s *Service) transition(ctx context.Context, id string, a Action) (Package, error) {
	log := logx.From(ctx, s.log).With(zap.String("package_id", id), zap.String("action", string(a)))

	d, err := s.Get(ctx, id)
	if err != nil {
		return Package{}, err
	}
	from := d.Status.OrDefault()
	next, err := Apply(d.Package, a)
	if err != nil {
		log.Info("transition rejected", zap.String("from", string(from)))
		return d.Package, err
	}

	if err := s.api.Post(ctx, "/Package/"+url.PathEscape(id)+"/"+string(a), struct{}{}, nil); err != nil {
		log.Error("transition failed", zap.Error(err))
		return d.Package, err
	}
	log.Info("package transitioned", zap.String("from", string(from)), zap.String("to", string(next.Status)))
	s.emit(ctx, eventFor(a), id, events.PackageTransitioned{
		PackageID: id, Action: string(a), From: string(from), To: string(next.Status),
	})
	return next, nil
}

// MarkError records an external fulfillment failure. Every status may move to ERROR.
func (s *Service) MarkError(ctx context.Context, id, reason string) (Package, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Package{}, apperr.Invalid("errorMessage", "required")
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return Package{}, err
	}
	from := d.Status.OrDefault()
	next := Fail(d.Package, reason)

	body := struct {
		Status       Status `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	}{next.Status, next.ErrorMessage}
	if err := s.api.Put(ctx, "/Package/"+url.PathEscape(id), body, nil); err != nil {
		logx.From(ctx, s.log).Error("mark error failed", zap.String("package_id", id), zap.Error(err))
		return d.Package, err
	}
	logx.From(ctx, s.log).Warn("package failed", zap.String("package_id", id), zap.String("from", string(from)), zap.String("reason", reason))
	s.emit(ctx, events.EventPackageFailed, id, events.PackageTransitioned{
		PackageID: id, Action: string(ActionFail), From: string(from), To: string(StatusError), ErrorMessage: reason,
	})
	return next, nil
}

// emit never fails the operation: the CRM has already accepted the change.
func (s *Service) emit(ctx context.Context, eventType, key string, payload any) {
	if err := s.events.Emit(ctx, events.TopicPackageEvents, eventType, key, payload); err != nil {
		logx.From(ctx, s.log).Warn("emit event failed", zap.String("event_type", eventType), zap.String("package_id", key), zap.Error(err))
	}
}

func eventFor(a Action) string {
	switch a {
	case ActionMarkAsPacked:
		return events.EventPackagePacked
	case ActionReceiveReturn:
		return events.EventPackageReturnReceived
	case ActionSendToExpedition:
		return events.EventPackageSentToExpedition
	}
	return events.EventPackageFailed
}
