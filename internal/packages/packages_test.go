package packages

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo/espotest"
	"github.com/ariefcatur/go-warehouse-ops/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransitions(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		to     Status
		ok     bool
	}{
		{StatusToPack, ActionMarkAsPacked, StatusPacked, true},
		{"", ActionMarkAsPacked, StatusPacked, true},
		{StatusPacked, ActionMarkAsPacked, "", false},
		{StatusError, ActionMarkAsPacked, "", false},
		{StatusToReturn, ActionReceiveReturn, StatusReturned, true},
		{StatusToPack, ActionReceiveReturn, "", false},
		{StatusReturned, ActionReceiveReturn, "", false},
		{StatusError, ActionSendToExpedition, StatusToPack, true},
		{StatusToPack, ActionSendToExpedition, "", false},
		{StatusPacked, ActionSendToExpedition, "", false},
		{StatusPacked, ActionFail, StatusError, true},
		{StatusToPack, Action("explode"), "", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+string(tc.action), func(t *testing.T) {
			in := Package{ID: "p1", Status: tc.from, ErrorMessage: "boom"}
			out, err := Apply(in, tc.action)
			if !tc.ok {
				var ite *apperr.InvalidTransitionError
				require.ErrorAs(t, err, &ite)
				assert.Equal(t, string(tc.from.OrDefault()), ite.From)
				assert.Equal(t, in, out)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, out.Status)
		})
	}
}

func TestApplySideEffects(t *testing.T) {
	p, err := Apply(Package{Status: StatusToPack}, ActionMarkAsPacked)
	require.NoError(t, err)
	assert.True(t, p.PackageIssuedFlag)

	p, err = Apply(Package{Status: StatusToReturn}, ActionReceiveReturn)
	require.NoError(t, err)
	assert.True(t, p.PackageReceivedFlag)

	p, err = Apply(Package{Status: StatusError, ErrorMessage: "carrier rejected"}, ActionSendToExpedition)
	require.NoError(t, err)
	assert.Equal(t, StatusToPack, p.Status)
	assert.Empty(t, p.ErrorMessage)
}

func TestFailFromAnyStatus(t *testing.T) {
	for _, s := range []Status{"", StatusToPack, StatusPacked, StatusToReturn, StatusReturned, StatusError} {
		p := Fail(Package{Status: s}, "label printer offline")
		assert.Equal(t, StatusError, p.Status)
		assert.Equal(t, "label printer offline", p.ErrorMessage)
	}
}

// fakeCRM keeps package state so transitions can be observed end to end.
type fakeCRM struct {
	mu       sync.Mutex
	packages map[string]*Package
	items    map[string][]Item // by package id
}

func (f *fakeCRM) routes(r chi.Router) {
	r.Get("/Package", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var list []Package
		if r.URL.Query().Get("whereGroup[0][attribute]") == "salesOrderId" {
			for _, p := range f.packages {
				if p.SalesOrderID == r.URL.Query().Get("whereGroup[0][value]") {
					list = append(list, *p)
				}
			}
		}
		espotest.JSON(w, http.StatusOK, espotest.ListOf(len(list), list))
	})
	r.Post("/Package", func(w http.ResponseWriter, r *http.Request) {
		var p Package
		_ = decode(r, &p)
		f.mu.Lock()
		p.ID = "sibling-1"
		f.packages[p.ID] = &p
		f.mu.Unlock()
		espotest.JSON(w, http.StatusOK, p)
	})
	r.Get("/Package/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		p, ok := f.packages[chi.URLParam(r, "id")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		espotest.JSON(w, http.StatusOK, Detail{Package: *p, LabelID: "lbl-1"})
	})
	r.Put("/Package/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body Package
		_ = decode(r, &body)
		f.mu.Lock()
		defer f.mu.Unlock()
		p := f.packages[chi.URLParam(r, "id")]
		p.Status, p.ErrorMessage = body.Status, body.ErrorMessage
		espotest.JSON(w, http.StatusOK, p)
	})
	r.Post("/Package/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		p := f.packages[chi.URLParam(r, "id")]
		next, err := Apply(*p, Action(chi.URLParam(r, "action")))
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		*p = next
		espotest.JSON(w, http.StatusOK, true)
	})
	r.Get("/Package/{id}/packageItems", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		items := f.items[chi.URLParam(r, "id")]
		espotest.JSON(w, http.StatusOK, espotest.ListOf(len(items), items))
	})
	r.Put("/PackageItem/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PackageID  string   `json:"packageId"`
			Quantity   *float64 `json:"quantity"`
			OutageFlag *bool    `json:"outageFlag"`
		}
		_ = decode(r, &body)
		f.mu.Lock()
		defer f.mu.Unlock()
		id := chi.URLParam(r, "id")
		for pkgID, items := range f.items {
			for i, it := range items {
				if it.ID != id {
					continue
				}
				if body.Quantity != nil {
					it.Quantity = *body.Quantity
				}
				if body.OutageFlag != nil {
					it.OutageFlag = *body.OutageFlag
				}
				f.items[pkgID] = append(items[:i:i], items[i+1:]...)
				f.items[body.PackageID] = append(f.items[body.PackageID], it)
				espotest.JSON(w, http.StatusOK, it)
				return
			}
		}
		http.Error(w, "not found", http.StatusNotFound)
	})
}

func decode(r *http.Request, v any) error { return json.NewDecoder(r.Body).Decode(v) }

func setup(t *testing.T, pkgs ...Package) (*Service, *fakeCRM, *espotest.Server, *events.Recorder) {
	f := &fakeCRM{packages: map[string]*Package{}, items: map[string][]Item{}}
	for i := range pkgs {
		f.packages[pkgs[i].ID] = &pkgs[i]
	}
	srv, c := espotest.New(t, f.routes)
	rec := &events.Recorder{}
	return NewService(c, "https://crm.example.com/", rec, nil), f, srv, rec
}

func TestMarkAsPacked(t *testing.T) {
	s, f, srv, rec := setup(t, Package{ID: "p1"})
	ctx := context.Background()

	p, err := s.MarkAsPacked(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusPacked, p.Status)
	assert.Equal(t, StatusPacked, f.packages["p1"].Status)
	require.Len(t, srv.CallsTo(http.MethodPost, "/Package/p1/markAsPacked"), 1)
	assert.JSONEq(t, `{}`, string(srv.CallsTo(http.MethodPost, "/Package/p1/markAsPacked")[0].Body))

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TopicPackageEvents, evs[0].Topic)
	assert.Equal(t, events.EventPackagePacked, evs[0].Type)
	assert.Equal(t, events.PackageTransitioned{PackageID: "p1", Action: "markAsPacked", From: "TO_PACK", To: "PACKED"}, evs[0].Payload)

	_, err = s.MarkAsPacked(ctx, "p1")
	assert.True(t, apperr.IsInvalidTransition(err))
	assert.Len(t, srv.CallsTo(http.MethodPost, "/Package/p1/markAsPacked"), 1, "rejected locally")
	assert.Len(t, rec.Events(), 1)
}

func TestErrorRecoveryCycle(t *testing.T) {
	s, f, _, rec := setup(t, Package{ID: "p1", Status: StatusPacked})
	ctx := context.Background()

	_, err := s.SendToExpedition(ctx, "p1")
	assert.True(t, apperr.IsInvalidTransition(err))

	_, err = s.MarkError(ctx, "p1", "  ")
	assert.True(t, apperr.IsValidation(err))

	p, err := s.MarkError(ctx, "p1", "address rejected by carrier")
	require.NoError(t, err)
	assert.Equal(t, StatusError, p.Status)
	assert.Equal(t, "address rejected by carrier", f.packages["p1"].ErrorMessage)

	_, err = s.MarkAsPacked(ctx, "p1")
	assert.True(t, apperr.IsInvalidTransition(err))

	p, err = s.SendToExpedition(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusToPack, p.Status)
	assert.Empty(t, p.ErrorMessage)
	assert.Equal(t, StatusToPack, f.packages["p1"].Status)

	assert.Equal(t, []string{events.EventPackageFailed, events.EventPackageSentToExpedition}, rec.Types())
}

func TestReceiveReturn(t *testing.T) {
	s, _, _, _ := setup(t, Package{ID: "p1", Status: StatusToReturn})
	p, err := s.ReceiveReturn(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, p.Status)
	assert.True(t, p.PackageReceivedFlag)
}

func TestTransitionOnMissingPackage(t *testing.T) {
	s, _, _, _ := setup(t)
	_, err := s.MarkAsPacked(context.Background(), "nope")
	var te *apperr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
}

func TestListAndItems(t *testing.T) {
	s, f, srv, _ := setup(t, Package{ID: "p1", Name: "PKG-1"})
	f.items["p1"] = []Item{{ID: "i1", Quantity: 2}}
	ctx := context.Background()

	_, err := s.List(ctx, ListQuery{Search: "novak"})
	require.NoError(t, err)
	q := srv.CallsTo(http.MethodGet, "/Package")[0].Query
	assert.Equal(t, "textFilter", q.Get("whereGroup[0][type]"))
	assert.Equal(t, "*novak*", q.Get("whereGroup[0][value]"))
	assert.Equal(t, "20", q.Get("maxSize"))
	assert.Equal(t, "createdAt", q.Get("orderBy"))

	_, err = s.List(ctx, ListQuery{Search: "   ", MaxSize: 5, Offset: 10})
	require.NoError(t, err)
	q = srv.CallsTo(http.MethodGet, "/Package")[1].Query
	assert.Empty(t, q.Get("whereGroup[0][type]"))
	assert.Equal(t, "10", q.Get("offset"))

	items, err := s.Items(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "100", srv.CallsTo(http.MethodGet, "/Package/p1/packageItems")[0].Query.Get("maxSize"))

	d, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://crm.example.com/?entryPoint=download&id=lbl-1", s.LabelURL(d.LabelID))
}

func TestPlanSplit(t *testing.T) {
	items := []Item{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}, {ID: "c", Quantity: 3}}
	qty := 1.0
	outage := true

	kept, moved, err := planSplit(items, SplitRequest{
		ItemIDs:   []string{"c", "b"},
		Overrides: map[string]Override{"b": {Quantity: &qty, OutageFlag: &outage}},
	})
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: "a", Quantity: 1}}, kept)
	assert.Equal(t, []Item{{ID: "b", Quantity: 1, OutageFlag: true}, {ID: "c", Quantity: 3}}, moved)
	assert.Equal(t, len(items), len(kept)+len(moved))

	zero := 0.0
	bad := []SplitRequest{
		{},
		{ItemIDs: []string{"a", "b", "c"}},
		{ItemIDs: []string{"x"}},
		{ItemIDs: []string{"a", "a"}},
		{ItemIDs: []string{"a"}, Overrides: map[string]Override{"b": {}}},
		{ItemIDs: []string{"a"}, Overrides: map[string]Override{"a": {Quantity: &zero}}},
	}
	for _, req := range bad {
		_, _, err := planSplit(items, req)
		assert.True(t, apperr.IsValidation(err), "%+v", req)
	}
}

func TestSplitPackage(t *testing.T) {
	s, f, srv, rec := setup(t, Package{ID: "p1", Name: "PKG-1", SalesOrderID: "so-1", CarrierID: "ppl"})
	f.items["p1"] = []Item{{ID: "a", Quantity: 1}, {ID: "b", Quantity: 2}, {ID: "c", Quantity: 3}}
	outage := true

	res, err := s.SplitPackage(context.Background(), "so-1", SplitRequest{
		ItemIDs:   []string{"b"},
		Overrides: map[string]Override{"b": {OutageFlag: &outage}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sibling-1", res.Sibling.ID)
	assert.Equal(t, "PKG-1-2", res.Sibling.Name)
	assert.Equal(t, StatusToPack, res.Sibling.Status)
	assert.Len(t, res.Kept, 2)
	assert.Len(t, res.Moved, 1)

	assert.Len(t, f.items["p1"], 2)
	require.Len(t, f.items["sibling-1"], 1)
	assert.True(t, f.items["sibling-1"][0].OutageFlag)

	var body map[string]any
	srv.CallsTo(http.MethodPut, "/PackageItem/b")[0].Decode(t, &body)
	assert.Equal(t, map[string]any{"packageId": "sibling-1", "outageFlag": true}, body)

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.PackageSplit{SalesOrderID: "so-1", PackageID: "p1", SiblingID: "sibling-1", MovedItemIDs: []string{"b"}}, evs[0].Payload)
}

func TestSplitPackageFailures(t *testing.T) {
	s, f, srv, _ := setup(t, Package{ID: "p1", SalesOrderID: "so-1"})
	f.items["p1"] = []Item{{ID: "a"}}
	ctx := context.Background()

	_, err := s.SplitPackage(ctx, "so-2", SplitRequest{ItemIDs: []string{"a"}})
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Package", nf.Entity)

	_, err = s.SplitPackage(ctx, "so-1", SplitRequest{ItemIDs: []string{"a"}})
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, srv.CallsTo(http.MethodPost, "/Package"), "nothing created for a rejected plan")

	before := len(srv.Calls())
	_, err = s.SplitPackage(ctx, "so-1", SplitRequest{})
	assert.True(t, apperr.IsValidation(err))
	assert.Len(t, srv.Calls(), before, "validated before any request")
}
