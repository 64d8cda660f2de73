package rollup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/reportengine-lab/reportengine/internal/core/storage"
)

type fakeRollupAdmin struct {
	refreshErr   error
	refreshCalls int
	status       storage.RollupStatus
	statusErr    error
}

func (f *fakeRollupAdmin) RefreshRegionRollup(context.Context) error {
	f.refreshCalls++
	return f.refreshErr
}

func (f *fakeRollupAdmin) RegionRollupStatus(context.Context) (storage.RollupStatus, error) {
	return f.status, f.statusErr
}

func newAdminRouter(admin storage.RollupAdmin, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewAdminAPI(admin, token).RegisterRoutes(r)
	return r
}

func TestAdminAPI_Authorization(t *testing.T) {
	tests := []struct {
		name        string
		serverToken string
		header      string
		query       string
		want        int
	}{
		{"valid header token", "s3cret", "s3cret", "", http.StatusOK},
		{"valid query token", "s3cret", "", "s3cret", http.StatusOK},
		{"wrong token", "s3cret", "nope", "", http.StatusUnauthorized},
		{"missing token", "s3cret", "", "", http.StatusUnauthorized},
		{"no token configured", "", "anything", "", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			admin := &fakeRollupAdmin{}
			r := newAdminRouter(admin, tc.serverToken)

			url := "/api/admin/refresh-mv"
			if tc.query != "" {
				url += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodPost, url, nil)
			if tc.header != "" {
				req.Header.Set("X-Admin-Token", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusUnauthorized {
				require.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
				require.Zero(t, admin.refreshCalls)
			}
		})
	}
}

func TestAdminAPI_Refresh(t *testing.T) {
	admin := &fakeRollupAdmin{}
	r := newAdminRouter(admin, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh-mv", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"refreshed"}`, w.Body.String())
	require.Equal(t, 1, admin.refreshCalls)
}

func TestAdminAPI_RefreshFailure(t *testing.T) {
	admin := &fakeRollupAdmin{refreshErr: errors.New("deadlock detected")}
	r := newAdminRouter(admin, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh-mv", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"refresh_failed"}`, w.Body.String())
}

func TestAdminAPI_Status(t *testing.T) {
	tests := []struct {
		name   string
		status storage.RollupStatus
		want   string
	}{
		{"populated", storage.RollupStatus{Exists: true, RowCount: 42}, `{"exists":true,"rowCount":42}`},
		{"empty but present", storage.RollupStatus{Exists: true, RowCount: 0}, `{"exists":true,"rowCount":0}`},
		{"missing", storage.RollupStatus{Exists: false}, `{"exists":false,"rowCount":null}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newAdminRouter(&fakeRollupAdmin{status: tc.status}, "s3cret")

			req := httptest.NewRequest(http.MethodGet, "/api/admin/mv-status", nil)
			req.Header.Set("X-Admin-Token", "s3cret")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.JSONEq(t, tc.want, w.Body.String())
		})
	}
}

func TestAdminAPI_StatusFailure(t *testing.T) {
	r := newAdminRouter(&fakeRollupAdmin{statusErr: errors.New("timeout")}, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/mv-status", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "mv_check_failed", body["error"])
}
