package rollup

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/reportengine-lab/reportengine/internal/core/errors"
	"github.com/reportengine-lab/reportengine/internal/core/storage"
)

// AdminAPI exposes the rollup maintenance endpoints. Both endpoints require
// the shared admin token; when no token is configured the endpoints are
// disabled and always answer 401.
type AdminAPI struct {
	admin storage.RollupAdmin
	token string
}

// NewAdminAPI creates the admin API over the given rollup admin.
func NewAdminAPI(admin storage.RollupAdmin, token string) *AdminAPI {
	return &AdminAPI{admin: admin, token: token}
}

// RegisterRoutes registers the admin routes on the given router.
func (a *AdminAPI) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/admin/refresh-mv", a.HandleRefresh)
	r.GET("/api/admin/mv-status", a.HandleStatus)
}

// HandleRefresh handles POST /api/admin/refresh-mv
func (a *AdminAPI) HandleRefresh(c *gin.Context) {
	if !a.authorized(c) {
		c.JSON(http.StatusUnauthorized, httperr.ErrorResponse{Error: httperr.HttpUnauthorizedError})
		return
	}

	if err := a.admin.RefreshRegionRollup(c.Request.Context()); err != nil {
		slog.Error("[Rollup] Manual refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{Error: httperr.HttpRefreshFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// HandleStatus handles GET /api/admin/mv-status
func (a *AdminAPI) HandleStatus(c *gin.Context) {
	if !a.authorized(c) {
		c.JSON(http.StatusUnauthorized, httperr.ErrorResponse{Error: httperr.HttpUnauthorizedError})
		return
	}

	status, err := a.admin.RegionRollupStatus(c.Request.Context())
	if err != nil {
		slog.Error("[Rollup] Status check failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{Error: httperr.HttpStatusCheckFailed})
		return
	}

	// rowCount is null when the rollup does not exist yet, so clients can
	// distinguish "missing" from "empty".
	var rowCount *int64
	if status.Exists {
		rowCount = &status.RowCount
	}
	c.JSON(http.StatusOK, gin.H{"exists": status.Exists, "rowCount": rowCount})
}

// authorized checks the admin token from the X-Admin-Token header, falling
// back to the token query parameter for curl convenience. An unset server
// token rejects everything rather than opening the endpoints up.
func (a *AdminAPI) authorized(c *gin.Context) bool {
	if a.token == "" {
		return false
	}
	got := c.GetHeader("X-Admin-Token")
	if got == "" {
		got = c.Query("token")
	}
	return got == a.token
}
