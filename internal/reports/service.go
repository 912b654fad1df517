package reports

import (
	"context"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const PageSize = 200

var orderFields = []string{"createdAt", "priceWithVat", "priceWithoutVat", "currency", "channel", "carrierId", "carrierName"}

type Service struct {
	api espo.API
	est Estimates
	log *zap.Logger
	now func() time.Time
}

func NewService(api espo.API, est Estimates, log *zap.Logger) *Service {
	return &Service{api: api, est: est, log: logx.OrNop(log).Named("reports"), now: time.Now}
}

// ChannelReport fetches every order of channel created in the last daysBack days
// and aggregates it by period.
func (s *Service) ChannelReport(ctx context.Context, channel string, period Period, daysBack int) ([]Row, error) {
	if channel == "" {
		return nil, apperr.Invalid("channel", "required")
	}
	if daysBack < 0 {
		return nil, apperr.Invalid("daysBack", "must not be negative")
	}
	from := s.now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")
	log := logx.From(ctx, s.log).With(zap.String("channel", channel), zap.String("period", string(period)), zap.String("from", from))

	params := query.ListParams{
		OrderBy: "createdAt",
		Order:   "desc",
		Select:  orderFields,
		Where: []query.Predicate{
			query.Equals("channel", channel),
			query.After("createdAt", from),
		},
	}.Values()

	orders, err := espo.FetchAll[RawOrder](ctx, s.api, "/SalesOrder", params, PageSize, log)
	if err != nil {
		log.Error("fetch orders failed", zap.Error(err))
		return nil, err
	}
	log.Info("orders fetched", zap.Int("count", len(orders)))
	return Aggregate(orders, period, s.est)
}

// MultiChannel is the joined result of a per-channel fan-out. A channel whose
// fetch failed has an empty row set and an entry in Failures.
type MultiChannel struct {
	Rows     map[string][]Row `json:"rows"`
	Failures map[string]error `json:"-"`
}

// Err reports the failed branches as a PartialFailure, or nil when all succeeded.
func (m *MultiChannel) Err() error {
	if len(m.Failures) == 0 {
		return nil
	}
	return &apperr.PartialFailure{Total: len(m.Rows), Failures: m.Failures}
}

// AllChannels runs ChannelReport for every channel concurrently. It never fails
// as a whole: a failing channel degrades to an empty result and is recorded.
func (s *Service) AllChannels(ctx context.Context, channels []string, period Period, daysBack int) *MultiChannel {
	rows := make([][]Row, len(channels))
	errs := make([]error, len(channels))

	var g errgroup.Group
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			r, err := s.ChannelReport(ctx, ch, period, daysBack)
			if err != nil {
				errs[i] = err
				return nil
			}
			rows[i] = r
			return nil
		})
	}
	_ = g.Wait()

	out := &MultiChannel{Rows: make(map[string][]Row, len(channels)), Failures: map[string]error{}}
	for i, ch := range channels {
		if errs[i] != nil {
			logx.From(ctx, s.log).Warn("channel report degraded to empty", zap.String("channel", ch), zap.Error(errs[i]))
			out.Failures[ch] = errs[i]
			out.Rows[ch] = []Row{}
			continue
		}
		if rows[i] == nil {
			rows[i] = []Row{}
		}
		out.Rows[ch] = rows[i]
	}
	return out
}
