package report

import (
	"log/slog"
	"net/http"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

// HealthHandler reports whether the PDF renderer is reachable.
func HealthHandler(client *Client, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := client.Ping(r.Context()); err != nil {
			logger.Warn("gotenberg ping failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf renderer unreachable")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
