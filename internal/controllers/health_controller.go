package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/casaflow/booking-service/internal/utils"
)

type HealthController struct {
	pool *pgxpool.Pool
}

func NewHealthController(pool *pgxpool.Pool) *HealthController {
	return &HealthController{pool: pool}
}

func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if c.pool != nil {
		if err := c.pool.Ping(ctx); err != nil {
			utils.RespondErrorWithCode(w, http.StatusServiceUnavailable, utils.ErrCodeInternal, "database unreachable", nil, err)
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
