package httpserver

import (
	"net/http"

	"facilitywatch/internal/http/handlers"
	"facilitywatch/internal/http/middleware"
)

// Routes groups handler groups and the auth collaborators the router wires in.
type Routes struct {
	Auth        *handlers.AuthHandlers
	Users       *handlers.UserHandlers
	Sync        *handlers.SyncHandlers
	Sensors     *handlers.SensorHandlers
	Dashboard   *handlers.DashboardHandlers
	RoomLive    *handlers.RoomLiveHandlers
	ActivityLog *handlers.ActivityLogHandlers
	Predictions *handlers.PredictionHandlers
	Health      http.HandlerFunc
	Metrics     http.Handler
	LiveFeed    http.HandlerFunc

	Tokens   middleware.TokenValidator
	Sessions middleware.SessionValidator
}

// NewRouter registers endpoints. Authenticated routes sit behind the token
// middleware; sync control and user management additionally require the
// admin role.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.Auth(routes.Tokens, routes.Sessions)
	admin := middleware.RequireRole("admin")

	protected := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, auth)
	}
	adminOnly := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, auth, admin)
	}

	mux.Handle("/api/auth/login", method(http.MethodPost, routes.Auth.Login))
	mux.Handle("/api/auth/refresh", method(http.MethodPost, routes.Auth.Refresh))
	mux.Handle("/api/auth/logout", methodH(http.MethodPost, protected(routes.Auth.Logout)))
	mux.Handle("/api/auth/logout-all", methodH(http.MethodPost, protected(routes.Auth.LogoutAll)))
	mux.Handle("/api/auth/sessions", methodH(http.MethodGet, protected(routes.Auth.Sessions)))
	mux.Handle("DELETE /api/auth/sessions/{id}", protected(routes.Auth.RevokeSession))

	mux.Handle("/api/users", methodSplit(map[string]http.Handler{
		http.MethodPost: adminOnly(routes.Users.Create),
		http.MethodGet:  adminOnly(routes.Users.List),
	}))
	mux.Handle("PATCH /api/users/{id}", adminOnly(routes.Users.Update))
	mux.Handle("DELETE /api/users/{id}", adminOnly(routes.Users.Delete))

	mux.Handle("/api/sync/trigger", methodH(http.MethodPost, adminOnly(routes.Sync.Trigger)))
	mux.Handle("/api/sync/start", methodH(http.MethodPost, adminOnly(routes.Sync.Start)))
	mux.Handle("/api/sync/stop", methodH(http.MethodPost, adminOnly(routes.Sync.Stop)))
	mux.Handle("/api/sync/status", methodH(http.MethodGet, protected(routes.Sync.Status)))

	mux.Handle("/api/sensors/readings", method(http.MethodPost, routes.Sensors.IngestReadings))
	mux.Handle("/api/sensors/sync", methodH(http.MethodPost, adminOnly(routes.Sensors.SyncInventory)))
	mux.Handle("/api/sensors", methodH(http.MethodGet, protected(routes.Sensors.List)))

	mux.Handle("/api/dashboard/current-reading", methodH(http.MethodGet, protected(routes.Dashboard.CurrentReading)))
	mux.Handle("/api/dashboard/sensor-list", methodH(http.MethodGet, protected(routes.Dashboard.SensorList)))
	mux.Handle("/api/dashboard/temperature-record", methodH(http.MethodGet, protected(routes.Dashboard.TemperatureRecord)))
	mux.Handle("/api/dashboard/humidity-record", methodH(http.MethodGet, protected(routes.Dashboard.HumidityRecord)))
	mux.Handle("/api/dashboard/temperature-drift", methodH(http.MethodGet, protected(routes.Dashboard.TemperatureDrift)))
	mux.Handle("/api/dashboard/humidity-drift", methodH(http.MethodGet, protected(routes.Dashboard.HumidityDrift)))

	mux.Handle("/api/room-live/logs", method(http.MethodPost, routes.RoomLive.IngestLogs))
	mux.Handle("/api/room-live/status", methodH(http.MethodGet, protected(routes.RoomLive.Status)))
	mux.Handle("/api/room-live/intruders", methodH(http.MethodGet, protected(routes.RoomLive.Intruders)))
	mux.Handle("/api/room-live/history", methodH(http.MethodGet, protected(routes.RoomLive.History)))
	if routes.LiveFeed != nil {
		mux.Handle("/api/room-live/ws", routes.LiveFeed)
	}

	mux.Handle("/api/activity-logs", methodH(http.MethodGet, protected(routes.ActivityLog.List)))

	mux.Handle("/api/predictions", methodSplit(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(routes.Predictions.Create),
		http.MethodGet:  protected(routes.Predictions.List),
	}))
	mux.Handle("GET /api/predictions/{datetime}", protected(routes.Predictions.Get))

	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}

func methodH(expected string, handler http.Handler) http.HandlerFunc {
	return method(expected, handler.ServeHTTP)
}

func methodSplit(byMethod map[string]http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	}
}
