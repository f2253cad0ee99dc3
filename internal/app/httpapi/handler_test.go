package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	app "github.com/b8oost/boost-service/internal/app"
	"github.com/b8oost/boost-service/internal/app/domain/achievement"
	"github.com/b8oost/boost-service/internal/app/domain/challenge"
	"github.com/b8oost/boost-service/internal/app/domain/points"
	"github.com/b8oost/boost-service/internal/app/domain/user"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	application, err := app.New(app.Stores{}, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(application, nil))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, payload, out interface{}) int {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestChallengeLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var ivan user.User
	status := doJSON(t, http.MethodPost, srv.URL+"/users", map[string]interface{}{
		"telegram_id": 111, "username": "ivan",
	}, &ivan)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, user.RoleEmployee, ivan.Role)

	var boss user.User
	status = doJSON(t, http.MethodPost, srv.URL+"/users", map[string]interface{}{
		"telegram_id": 222, "username": "boss",
	}, &boss)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodPatch, srv.URL+"/users/"+boss.ID, map[string]interface{}{
		"role": "manager",
	}, &boss)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, user.RoleManager, boss.Role)

	var req challenge.Request
	status = doJSON(t, http.MethodPost, srv.URL+"/challenge-requests", map[string]interface{}{
		"requester_id":  ivan.ID,
		"title":         "Ship v2",
		"category":      "IT",
		"description":   "roll out the release",
		"reward_points": 50,
	}, &req)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, challenge.StatusPending, req.Status)

	var resolved challenge.Request
	status = doJSON(t, http.MethodPost, srv.URL+"/challenge-requests/"+req.ID+"/resolve", map[string]interface{}{
		"resolver_id": boss.ID,
		"decision":    "approved",
	}, &resolved)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, challenge.StatusApproved, resolved.Status)
	require.Equal(t, boss.ID, resolved.ResolverID)

	// A second resolve of the same request must conflict.
	status = doJSON(t, http.MethodPost, srv.URL+"/challenge-requests/"+req.ID+"/resolve", map[string]interface{}{
		"resolver_id": boss.ID,
		"decision":    "rejected",
	}, nil)
	require.Equal(t, http.StatusConflict, status)

	var board []points.LeaderboardEntry
	status = doJSON(t, http.MethodGet, srv.URL+"/leaderboard", nil, &board)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, board, 2)
	require.Equal(t, ivan.ID, board[0].UserID)
	require.Equal(t, 50, board[0].TotalPoints)
	require.Equal(t, boss.ID, board[1].UserID)
	require.Zero(t, board[1].TotalPoints)

	var recs []achievement.Record
	status = doJSON(t, http.MethodGet, srv.URL+"/achievements?user_id="+ivan.ID, nil, &recs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, recs, 1)
	require.Equal(t, "First Challenge Approved", recs[0].Name)
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	status := doJSON(t, http.MethodPost, srv.URL+"/users", map[string]interface{}{
		"telegram_id": 0, "username": "ivan",
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	var ivan user.User
	status = doJSON(t, http.MethodPost, srv.URL+"/users", map[string]interface{}{
		"telegram_id": 1, "username": "ivan",
	}, &ivan)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/challenge-requests", map[string]interface{}{
		"requester_id":  ivan.ID,
		"title":         "Ship v2",
		"category":      "Finance",
		"description":   "desc",
		"reward_points": 50,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/challenge-requests", map[string]interface{}{
		"requester_id":  ivan.ID,
		"title":         "Ship v2",
		"category":      "IT",
		"description":   "desc",
		"reward_points": -5,
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Unknown fields are rejected at the boundary.
	resp, err := http.Post(srv.URL+"/users", "application/json",
		strings.NewReader(`{"telegram_id": 2, "username": "x", "admin": true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotFoundResponses(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusNotFound,
		doJSON(t, http.MethodGet, srv.URL+"/users/missing", nil, nil))
	require.Equal(t, http.StatusNotFound,
		doJSON(t, http.MethodGet, srv.URL+"/challenge-requests/missing", nil, nil))
	require.Equal(t, http.StatusNotFound,
		doJSON(t, http.MethodPost, srv.URL+"/challenge-requests/missing/resolve", map[string]interface{}{
			"resolver_id": "also-missing", "decision": "approved",
		}, nil))
	require.Equal(t, http.StatusNotFound,
		doJSON(t, http.MethodGet, srv.URL+"/achievements?user_id=missing", nil, nil))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusMethodNotAllowed,
		doJSON(t, http.MethodDelete, srv.URL+"/users", nil, nil))
	require.Equal(t, http.StatusMethodNotAllowed,
		doJSON(t, http.MethodPost, srv.URL+"/leaderboard", nil, nil))
}
