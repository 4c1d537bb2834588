package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dkeye/Huddle/internal/adapters/bridge"
	"github.com/dkeye/Huddle/internal/adapters/controlapi"
	"github.com/dkeye/Huddle/internal/adapters/memory"
	"github.com/dkeye/Huddle/internal/app/gateway"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*gin.Engine, *memory.Plane) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>huddle</html>"), 0o600))

	plane := memory.NewPlane("us-east-1")
	gw := gateway.New(gateway.Config{Region: "us-east-1"}, plane, plane, zerolog.Nop())
	apiFor := func(clientID string) core.ControlAPI { return controlapi.NewLocal(gw, clientID) }
	cfg := &config.Config{Mode: "test", StaticPath: static, Secret: "test-secret"}
	r := SetupRouter(context.Background(), cfg, Deps{
		Gateway:  gw,
		Bridge:   bridge.NewHandler(bridge.Config{}, apiFor, nil),
		Meetings: plane,
	})
	return r, plane
}

func post(r http.Handler, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndIndex(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "huddle")
}

func TestDoMeetingWithClientIDQuery(t *testing.T) {
	r, plane := newRouter(t)

	w := post(r, "/api/meeting?clientId=c1", `{"action":"DO_MEETING","MEETING_ID":"null","USERNAME":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var reply gateway.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	require.NotNil(t, reply.Info)
	assert.Equal(t, "alice#c1", reply.Info.Attendee.Attendee.ExternalUserID)
	assert.Len(t, plane.List(), 1)
}

func TestClientTokenCookieIsStable(t *testing.T) {
	r, _ := newRouter(t)

	w := post(r, "/api/meeting", `{"action":"DO_MEETING","USERNAME":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	var first gateway.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	name, client, ok := strings.Cut(first.Info.Attendee.Attendee.ExternalUserID, "#")
	require.True(t, ok)
	assert.Equal(t, "alice", name)
	assert.NotEmpty(t, client)

	w = post(r, "/api/meeting", `{"action":"DO_MEETING","USERNAME":"bob"}`, cookies...)
	var second gateway.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, "bob#"+client, second.Info.Attendee.Attendee.ExternalUserID)
}

func TestMalformedBody(t *testing.T) {
	r, _ := newRouter(t)

	w := post(r, "/api/meeting?clientId=c1", `{"action":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"malformed request body"}`, w.Body.String())
}

func TestUnknownActionAndMissingMeeting(t *testing.T) {
	r, _ := newRouter(t)

	w := post(r, "/api/meeting?clientId=c1", `{"action":"PING"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())

	w = post(r, "/api/meeting?clientId=c1&meetingId=gone", `{"action":"DO_MEETING","MEETING_ID":"gone","USERNAME":"bob"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestRecordingAndListing(t *testing.T) {
	r, _ := newRouter(t)

	w := post(r, "/api/recording?clientId=c1", `{"action":"CREATE_MEETING"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var reply gateway.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	meetingID := reply.Info.Meeting.Meeting.MeetingID

	w = post(r, "/api/recording?clientId=c1", `{"action":"START_RECORDING","MEETING_ID":"`+meetingID+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "MediaPipelineId")

	w = post(r, "/api/recording?clientId=c1", `{"action":"START_RECORDING","MEETING_ID":"gone"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/meetings", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), meetingID)
}

func TestSessionsEndpoints(t *testing.T) {
	r, _ := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
