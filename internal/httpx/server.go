package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/audit"
	"github.com/ariefcatur/go-warehouse-ops/internal/catalog"
	"github.com/ariefcatur/go-warehouse-ops/internal/inventory"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/orders"
	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/ariefcatur/go-warehouse-ops/internal/production"
	"github.com/ariefcatur/go-warehouse-ops/internal/purchasing"
	"github.com/ariefcatur/go-warehouse-ops/internal/reports"
	"github.com/ariefcatur/go-warehouse-ops/internal/session"
	"github.com/ariefcatur/go-warehouse-ops/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps are the services behind the API. Audit may be nil when no database is configured.
type Deps struct {
	Sessions       *session.Manager
	Orders         *orders.Service
	Reports        *reports.Service
	ReportChannels []string
	Packages       *packages.Service
	Inventory      *inventory.Service
	Purchasing     *purchasing.Service
	Catalog        *catalog.Service
	Production     *production.Service
	Users          *users.Service
	Audit          audit.Store
	Log            *zap.Logger
}

func NewRouter(d Deps) *chi.Mux {
	log := logx.OrNop(d.Log).Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := &handlers{Deps: d, log: log, lookups: newLookups(d.Catalog, log)}
	r.Post("/session", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/session", h.currentSession)
		r.Delete("/session", h.logout)
		r.Get("/me", h.profile)
		r.Put("/me", h.updateProfile)
		r.Put("/me/password", h.changePassword)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Patch("/{id}", h.updateOrder)
			r.Delete("/{id}", h.deleteOrder)
			r.Get("/{id}/items", h.orderItems)
			r.Patch("/{id}/status", h.updateOrderStatus)
			r.Put("/{id}/star", h.starOrder)
			r.Delete("/{id}/star", h.unstarOrder)
			r.Get("/{id}/package", h.packageForOrder)
			r.Post("/{id}/package/split", h.splitPackage)
		})

		r.Get("/reports/orders", h.channelReport)
		r.Get("/reports/orders/all", h.allChannelsReport)

		r.Route("/packages", func(r chi.Router) {
			r.Get("/", h.listPackages)
			r.Get("/{id}", h.getPackage)
			r.Get("/{id}/items", h.packageItems)
			r.Post("/{id}/pack", h.packageAction(h.Packages.MarkAsPacked))
			r.Post("/{id}/receive-return", h.packageAction(h.Packages.ReceiveReturn))
			r.Post("/{id}/send-to-expedition", h.packageAction(h.Packages.SendToExpedition))
			r.Post("/{id}/fail", h.failPackage)
		})

		r.Route("/inventory-transactions", func(r chi.Router) {
			r.Get("/", h.listTransactions)
			r.Post("/", h.createTransaction)
			r.Get("/items", h.loadTransactionItems)
			r.Get("/{id}", h.getTransaction)
			r.Put("/{id}", h.updateTransaction)
			r.Delete("/{id}", h.deleteTransaction)
			r.Get("/{id}/items", h.transactionItems)
			r.Put("/{id}/items", h.syncItemsLegacy)
			r.Post("/{id}/items", h.addItem)
			r.Put("/{id}/items/{itemID}", h.updateItem)
			r.Delete("/{id}/items/{itemID}", h.deleteItem)
		})
		r.Get("/products/{id}/inventory-cards", h.productCards)
		r.Get("/products/{id}/inventory-cards/summary", h.productCardsSummary)
		r.Get("/products/{id}/bom", h.productBOM)
		r.Post("/products/{id}/bom", h.createMainBOM)
		r.Delete("/products/{id}/bom", h.deleteMainBOM)
		r.Post("/bom", h.createBOMItem)
		r.Put("/bom/{id}", h.updateBOMItem)
		r.Delete("/bom/{id}", h.deleteBOMItem)

		r.Route("/purchase-requests", func(r chi.Router) {
			r.Get("/", h.listPurchaseRequests)
			r.Get("/{id}", h.getPurchaseRequest)
			r.Post("/{id}/ignore", h.ignorePurchaseRequest)
			r.Post("/{id}/unignore", h.purchaseAction(h.Purchasing.Unignore))
			r.Post("/{id}/purchase", h.markPurchased)
			r.Post("/{id}/done", h.purchaseAction(h.Purchasing.MarkAsDone))
		})

		r.Route("/production-orders", func(r chi.Router) {
			r.Get("/", h.listProductionOrders)
			r.Post("/", h.createProductionOrder)
			r.Get("/{id}", h.getProductionOrder)
			r.Put("/{id}", h.updateProductionOrder)
			r.Delete("/{id}", h.deleteProductionOrder)
		})

		r.Get("/catalog/{kind}", h.listCatalog)
		r.Get("/settings/smart", h.smartSettings)
		r.Post("/reload/{target}", h.reload)
		r.Get("/search", h.globalSearch)
		r.Get("/autocomplete/{kind}", h.autocomplete)
		r.Get("/audit/{entity}/{id}", h.auditHistory)
	})
	return r
}

type handlers struct {
	Deps
	log     *zap.Logger
	lookups *lookups
}

// requestLogger is the zap counterpart of chi's Logger middleware; it also
// puts the request id on the context for downstream logs and events.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			r = r.WithContext(logx.WithRequestID(r.Context(), reqID))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("request_id", reqID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
