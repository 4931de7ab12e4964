package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/audiounlock"
	"github.com/simonhull/audiounlock/internal/testutil"
)

type fixture struct {
	server  *Server
	session *audiounlock.Session
	events  *audiounlock.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := audiounlock.NewEventBus(100)
	session := audiounlock.NewSession(audiounlock.WithReporter(bus), audiounlock.WithLogger(logger))
	t.Cleanup(func() { _ = session.Close() })

	srv, err := New(Options{Session: session, Events: bus, Logger: logger})
	require.NoError(t, err)
	return &fixture{server: srv, session: session, events: bus}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, files map[string][]byte) []TaskView {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := f.do(t, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var views []TaskView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.session.Wait(ctx))
	return views
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func TestNew_RequiresSession(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestCreateTasks_AndDownload(t *testing.T) {
	f := newFixture(t)
	cover := testutil.PNG(64, 64)
	raw := testutil.NCM(t, testutil.Metadata("Upload", "mp3"), cover, testutil.MP3())

	views := f.upload(t, map[string][]byte{"song.ncm": raw})
	require.Len(t, views, 1)
	id := views[0].ID.String()

	rec := f.get(t, "/api/tasks/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	var view TaskView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, audiounlock.TaskFinished, view.State)
	assert.Equal(t, "Upload.mp3", view.Output)
	assert.Equal(t, "ID3v2", view.Format)
	assert.Contains(t, view.Artwork, "PNG")

	rec = f.get(t, "/api/tasks/"+id+"/audio")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="Upload.mp3"`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("ID3")))

	rec = f.get(t, "/api/tasks/"+id+"/artwork")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, cover, rec.Body.Bytes())
}

func TestCreateTasks_RejectedInput(t *testing.T) {
	f := newFixture(t)
	views := f.upload(t, map[string][]byte{"clip.xyz": []byte("x")})
	require.Len(t, views, 1)
	assert.Equal(t, audiounlock.TaskError, views[0].State, "rejection is visible in the submit response")
	assert.Equal(t, "format", views[0].Kind)
	assert.Contains(t, views[0].Message, "invalid file type")

	rec := f.get(t, "/api/tasks/"+views[0].ID.String()+"/audio")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.get(t, "/api/tasks/"+views[0].ID.String()+"/artwork")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTasks_BadRequests(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, f.do(t, req).Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/tasks", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, f.do(t, req).Code)
}

func TestListTasks_SubmissionOrder(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string][]byte{"a.xyz": nil})
	f.upload(t, map[string][]byte{"b.qmc3": testutil.QMC(testutil.MP3())})

	rec := f.get(t, "/api/tasks")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []TaskView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "a.xyz", views[0].Name)
	assert.Equal(t, "b.qmc3", views[1].Name)
	assert.Equal(t, "b.mp3", views[1].Output)
}

func TestGetTask_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/tasks/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/tasks/6f1c2a9e-3b7d-4c1e-9a43-8d2f0b5e7a11").Code)
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string][]byte{"a.xyz": nil})
	f.upload(t, map[string][]byte{"b.xyz": nil})

	rec := f.get(t, "/api/events?since=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []audiounlock.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "b.xyz", events[0].Name)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/events?since=-4").Code)
}

func TestStreamEvents(t *testing.T) {
	f := newFixture(t)
	f.upload(t, map[string][]byte{"backlog.xyz": nil})

	ts := httptest.NewServer(f.server)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws?since=0", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev audiounlock.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "backlog.xyz", ev.Name)

	_, err = f.session.Submit(audiounlock.BytesSource{Filename: "live.xyz"})
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "live.xyz", ev.Name)
	assert.Equal(t, int64(2), ev.Seq)
}
