package reporting

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	httperr "github.com/reportengine-lab/reportengine/internal/core/errors"
	"github.com/reportengine-lab/reportengine/internal/core/report"
	"github.com/reportengine-lab/reportengine/internal/metrics"
)

// RegisterRoutes registers the report API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	// Canonical report endpoint.
	r.GET("/reports/summary", s.HandleSummary)

	// Path used by the original dashboard deployment. Kept as an alias until
	// clients migrate.
	r.GET("/api/reports/summary", s.HandleSummary)
}

// HandleSummary handles GET /reports/summary
// Query parameters: start, end, groupBy, limit, cursor
func (s *Service) HandleSummary(c *gin.Context) {
	req := SummaryRequest{
		Start:   c.Query("start"),
		End:     c.Query("end"),
		GroupBy: c.Query("groupBy"),
		Limit:   c.Query("limit"),
		Cursor:  c.Query("cursor"),
	}
	// Metric labels only ever take the validated dimension values, never the
	// raw client string: arbitrary groupBy input must not mint new series.
	groupLabel := "invalid"
	if gb, parseErr := report.ParseGroupBy(req.GroupBy); parseErr == nil {
		groupLabel = string(gb)
	}

	resp, err := s.Summary(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			metrics.SummaryRequests.WithLabelValues(groupLabel, "invalid").Inc()
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{Error: queryErrorReason(err)})
			return
		}

		metrics.SummaryRequests.WithLabelValues(groupLabel, "error").Inc()
		slog.Error("[Reporting] Summary query failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{Error: httperr.HttpInternalError})
		return
	}

	metrics.SummaryRequests.WithLabelValues(groupLabel, "ok").Inc()
	c.JSON(http.StatusOK, resp)
}

// queryErrorReason strips the sentinel prefix so clients get the bare
// machine-readable reason ("invalid cursor", "limit must be > 0", ...).
func queryErrorReason(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidQuery.Error()+": ")
}
