package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sunny18-max/crowdfunding-sub001/internal/api"
	"github.com/sunny18-max/crowdfunding-sub001/internal/ledger"
	"github.com/sunny18-max/crowdfunding-sub001/internal/logger"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// @Summary      Reconcile pledges against the wallet ledger
// @Description  Backfills missing wallet debits for recorded pledges
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ledger.ReconcileSummary
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/reconcile [post]
func ReconcileHandler(engine ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := engine.Reconcile(c.Request.Context())
		if err != nil {
			logger.WithError(err).Error("reconcile run failed")
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "reconcile run failed"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
