package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/buildscope/internal/api/response"
)

// Pinger is satisfied by optional backing services such as the rate-limit cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthInfo describes what the running service is configured with.
type HealthInfo struct {
	PrimaryProvider   string
	SecondaryProvider string
	Tools             []string
}

type healthResponse struct {
	Status    string            `json:"status"`
	Providers map[string]string `json:"providers"`
	Tools     []string          `json:"tools"`
	Cache     string            `json:"cache,omitempty"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /health. cache may be
// nil when rate limiting is disabled.
func NewHealthHandler(info HealthInfo, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status: "ok",
			Providers: map[string]string{
				"primary":   orNone(info.PrimaryProvider),
				"secondary": orNone(info.SecondaryProvider),
			},
			Tools: info.Tools,
		}

		if cache != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cache.Ping(ctx); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", map[string]string{"cache": "degraded"})
				return
			}
			resp.Cache = "ok"
		}

		response.JSON(w, resp)
	}
}

func orNone(name string) string {
	if name == "" {
		return "none"
	}
	return name
}
