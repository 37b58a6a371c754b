package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"invenflow.org/internal/account"
	"invenflow.org/internal/audit"
	"invenflow.org/internal/auth"
	"invenflow.org/internal/inventory"
	"invenflow.org/internal/obs"
	"invenflow.org/internal/stream"
)

// ReadyProbe checks the backing stores before the service reports ready.
type ReadyProbe struct {
	DB    *sql.DB
	Redis *redis.Client
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		if err := rp.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Options wires the API's collaborators.
type Options struct {
	Accounts      *account.Service
	Sessions      *auth.Issuer
	Inventory     inventory.Service
	Stream        *stream.Stream
	Ready         ReadyProbe
	Version       string
	SecureCookies bool
	UnlockSecret  string
	LowStockMin   int

	// General per-IP limit applied in front of every route; the per-hour
	// limits on the credential endpoints stack on top of it.
	RateBurst     int
	RatePerSecond int
}

// API is the HTTP layer.
type API struct {
	mux           *http.ServeMux
	accounts      *account.Service
	sessions      *auth.Issuer
	inv           inventory.Service
	stream        *stream.Stream
	readyProbe    ReadyProbe
	version       string
	secureCookies bool
	unlockSecret  string
	lowStockMin   int
	rateBurst     int
	ratePerSecond int
}

func New(opts Options) *API {
	a := &API{
		mux:           http.NewServeMux(),
		accounts:      opts.Accounts,
		sessions:      opts.Sessions,
		inv:           opts.Inventory,
		stream:        opts.Stream,
		readyProbe:    opts.Ready,
		version:       opts.Version,
		secureCookies: opts.SecureCookies,
		unlockSecret:  opts.UnlockSecret,
		lowStockMin:   opts.LowStockMin,
		rateBurst:     opts.RateBurst,
		ratePerSecond: opts.RatePerSecond,
	}
	if a.lowStockMin <= 0 {
		a.lowStockMin = 10
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 100
	}
	if a.ratePerSecond <= 0 {
		a.ratePerSecond = 50
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	// The credential and code-request endpoints carry tight per-IP caps;
	// everything else shares the session gate only.
	a.mux.HandleFunc("/api/auth", a.handleAuthRoot)
	a.mux.Handle("/api/auth/login", RateLimitPerHour(http.HandlerFunc(a.login), 5))
	a.mux.Handle("/api/auth/register", RateLimitPerHour(http.HandlerFunc(a.register), 5))
	a.mux.Handle("/api/auth/logout", http.HandlerFunc(a.logout))
	a.mux.Handle("/api/auth/forgot-password", RateLimitPerHour(http.HandlerFunc(a.forgotPassword), 3))
	a.mux.Handle("/api/auth/reset-password", RateLimitPerHour(http.HandlerFunc(a.resetPassword), 3))
	a.mux.Handle("/api/auth/otp", RateLimitPerHour(http.HandlerFunc(a.requestOTP), 3))
	a.mux.Handle("/api/auth/unlock", RateLimitPerHour(http.HandlerFunc(a.unlock), 3))

	a.mux.HandleFunc("/api/suppliers", a.handleSuppliersCollection)
	a.mux.HandleFunc("/api/suppliers/", a.handleSupplierResource)
	a.mux.HandleFunc("/api/categories", a.handleCategoriesCollection)
	a.mux.HandleFunc("/api/categories/", a.handleCategoryResource)
	a.mux.HandleFunc("/api/products", a.handleProductsCollection)
	a.mux.HandleFunc("/api/products/", a.handleProductResource)
	a.mux.HandleFunc("/api/sales", a.handleSalesCollection)
	a.mux.HandleFunc("/api/sales/", a.handleSaleResource)
	a.mux.Handle("/api/reports/sales-by-product", RequireRole("Admin", http.HandlerFunc(a.salesByProduct)))
	a.mux.Handle("/api/reports/sales-by-date", RequireRole("Admin", http.HandlerFunc(a.salesByDate)))

	a.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/" {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeMessage(w, http.StatusOK, "welcome to the invenflow api")
	})

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSecond)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "invenflow-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// audit records the event, attaching the request id from context. Failures
// are swallowed; the operation itself already succeeded.
func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(audit.WithRequestID(ctx, RequestIDFromContext(ctx)), event, fields)
}
