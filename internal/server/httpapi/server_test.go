package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

type fakeAuth struct {
	tokens map[string]int64
	err    error
}

func (a *fakeAuth) Authenticate(_ context.Context, token string) (int64, error) {
	if a.err != nil {
		return 0, a.err
	}
	id, ok := a.tokens[token]
	if !ok {
		return 0, common.ErrorUnauthorized
	}
	return id, nil
}

type fakeUsers struct {
	registerErr error
	loginHeader string
	logoutToken string
}

func (u *fakeUsers) Register(_ context.Context, email, password string) (*models.User, error) {
	if u.registerErr != nil {
		return nil, u.registerErr
	}
	if email == "" {
		return nil, common.ErrMissingEmail
	}
	if password == "" {
		return nil, common.ErrMissingPassword
	}
	return &models.User{ID: 1, Email: email}, nil
}

func (u *fakeUsers) Login(_ context.Context, header string) (string, error) {
	u.loginHeader = header
	if header == "" {
		return "", common.ErrorBadCredentialFormat
	}
	if header != "Basic YUB4LmNvbTpwdzE=" {
		return "", common.ErrorUnauthorized
	}
	return "tok", nil
}

func (u *fakeUsers) Logout(_ context.Context, token string) error {
	u.logoutToken = token
	if token != "tok" {
		return common.ErrorUnauthorized
	}
	return nil
}

func (u *fakeUsers) WhoAmI(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Email: fmt.Sprintf("u%d@x.com", id)}, nil
}

type getCall struct {
	id        int64
	caller    int64
	hasCaller bool
	size      string
}

type fakeFiles struct {
	createIn   services.CreateFileInput
	createErr  error
	listArgs   [3]int64
	getCalls   []getCall
	visibility *bool
	err        error
}

var sample = &models.File{ID: 5, UserID: 1, Name: "cat.png", Type: models.FileTypeImage, ParentID: 2}

func (f *fakeFiles) Create(_ context.Context, owner int64, in services.CreateFileInput) (*models.File, error) {
	f.createIn = in
	if f.createErr != nil && !strings.Contains(f.createErr.Error(), common.ErrEnqueueFailed.Error()) {
		return nil, f.createErr
	}
	rec := *sample
	rec.UserID = owner
	rec.Name = in.Name
	return &rec, f.createErr
}

func (f *fakeFiles) Get(_ context.Context, id, caller int64, hasCaller bool) (*models.File, error) {
	f.getCalls = append(f.getCalls, getCall{id, caller, hasCaller, ""})
	if f.err != nil {
		return nil, f.err
	}
	return sample, nil
}

func (f *fakeFiles) List(_ context.Context, owner, parentID int64, page int) ([]*models.File, error) {
	f.listArgs = [3]int64{owner, parentID, int64(page)}
	if f.err != nil {
		return nil, f.err
	}
	return []*models.File{sample}, nil
}

func (f *fakeFiles) SetVisibility(_ context.Context, id, caller int64, isPublic bool) (*models.File, error) {
	f.visibility = &isPublic
	if f.err != nil {
		return nil, f.err
	}
	rec := *sample
	rec.IsPublic = isPublic
	return &rec, nil
}

func (f *fakeFiles) GetContent(_ context.Context, id, caller int64, hasCaller bool, size string) (*services.Content, error) {
	f.getCalls = append(f.getCalls, getCall{id, caller, hasCaller, size})
	if f.err != nil {
		return nil, f.err
	}
	return &services.Content{Data: []byte("PNGDATA"), ContentType: "image/png"}, nil
}

type fakeApp struct{ statsErr error }

func (fakeApp) Status(context.Context) services.Status { return services.Status{Redis: true, DB: false} }

func (a fakeApp) Stats(context.Context) (*services.Stats, error) {
	if a.statsErr != nil {
		return nil, a.statsErr
	}
	return &services.Stats{Users: 3, Files: 9}, nil
}

type testServer struct {
	*Server
	users *fakeUsers
	files *fakeFiles
	auth  *fakeAuth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	setupGinTestMode()
	ts := &testServer{
		users: &fakeUsers{},
		files: &fakeFiles{},
		auth:  &fakeAuth{tokens: map[string]int64{"tok": 1, "other": 2}},
	}
	ts.Server = NewServer(":0", logging.NewNopLogger(), ts.users, ts.files, fakeApp{}, ts.auth)
	return ts
}

func (ts *testServer) do(method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.TokenHeaderName, token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestStatusAndStats(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/status", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"redis":true,"db":false}`, w.Body.String())

	w = ts.do(http.MethodGet, "/stats", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":3,"files":9}`, w.Body.String())

	ts.app = fakeApp{statsErr: fmt.Errorf("db down")}
	w = ts.do(http.MethodGet, "/stats", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgServerError, errorOf(t, w))
}

func TestPostUser(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/users", "", `{"email":"a@x.com","password":"pw1"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"email":"a@x.com"}`, w.Body.String())

	w = ts.do(http.MethodPost, "/users", "", `{"password":"pw1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing email", errorOf(t, w))

	w = ts.do(http.MethodPost, "/users", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing email", errorOf(t, w))

	w = ts.do(http.MethodPost, "/users", "", `{"email":"a@x.com"}`)
	assert.Equal(t, "Missing password", errorOf(t, w))

	w = ts.do(http.MethodPost, "/users", "", `{"email":42,"password":"pw1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation error", errorOf(t, w))

	ts.users.registerErr = common.ErrUserAlreadyExists
	w = ts.do(http.MethodPost, "/users", "", `{"email":"a@x.com","password":"pw1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Already exist", errorOf(t, w))
}

func TestConnectDisconnectMe(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/connect", "", "", "Authorization", "Basic YUB4LmNvbTpwdzE=")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"tok"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/connect", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/connect", "", "", "Authorization", "Basic d3Jvbmc6cHc=")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/users/me", "tok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"email":"u1@x.com"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", errorOf(t, w))

	w = ts.do(http.MethodGet, "/disconnect", "tok", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tok", ts.users.logoutToken)

	w = ts.do(http.MethodGet, "/disconnect", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/disconnect", "stale", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostFile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/files", "", `{"name":"a"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/files", "tok", `{"name":"cat.png","type":"image","parentId":2,"isPublic":true,"data":"UE5H"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":5,"userId":1,"name":"cat.png","type":"image","isPublic":false,"parentId":2}`, w.Body.String())
	assert.Equal(t, services.CreateFileInput{Name: "cat.png", Type: "image", ParentID: 2, IsPublic: true, Data: "UE5H"}, ts.files.createIn)

	ts.files.createErr = fmt.Errorf("%w: redis down", common.ErrEnqueueFailed)
	w = ts.do(http.MethodPost, "/files", "tok", `{"name":"cat.png","type":"image","data":"UE5H"}`)
	assert.Equal(t, http.StatusCreated, w.Code, "queue failure does not fail the upload")

	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{common.ErrMissingName, http.StatusBadRequest, "Missing name"},
		{common.ErrMissingType, http.StatusBadRequest, "Missing type"},
		{common.ErrMissingData, http.StatusBadRequest, "Missing data"},
		{common.ErrParentNotFound, http.StatusBadRequest, "Parent not found"},
		{common.ErrParentNotAFolder, http.StatusBadRequest, "Parent is not a folder"},
		{common.ErrorInternal, http.StatusInternalServerError, msgServerError},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			ts.files.createErr = tt.err
			w := ts.do(http.MethodPost, "/files", "tok", `{}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, errorOf(t, w))
		})
	}
}

func TestPostFile_WrongFieldTypes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string parent id", `{"name":"a.txt","type":"file","parentId":"7","data":"eA=="}`},
		{"string visibility", `{"name":"a.txt","type":"file","isPublic":"true","data":"eA=="}`},
		{"numeric name", `{"name":1,"type":"file","data":"eA=="}`},
		{"object data", `{"name":"a.txt","type":"file","data":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			w := ts.do(http.MethodPost, "/files", "tok", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Validation error", errorOf(t, w))
			assert.Equal(t, services.CreateFileInput{}, ts.files.createIn, "nothing created")
		})
	}
}

func TestGetFile_OptionalAuth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/files/5", "tok", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/files/5", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/files/5", "expired", "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []getCall{
		{5, 1, true, ""},
		{5, 0, false, ""},
		{5, 0, false, ""},
	}, ts.files.getCalls)

	w = ts.do(http.MethodGet, "/files/abc", "tok", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.files.err = common.ErrorNotFound
	w = ts.do(http.MethodGet, "/files/5", "other", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", errorOf(t, w))

	ts.auth.err = common.ErrorInternal
	w = ts.do(http.MethodGet, "/files/5", "tok", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListFiles(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/files", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/files?parentId=2&page=3", "tok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [3]int64{1, 2, 3}, ts.files.listArgs)
	assert.JSONEq(t, `[{"id":5,"userId":1,"name":"cat.png","type":"image","isPublic":false,"parentId":2}]`, w.Body.String())

	w = ts.do(http.MethodGet, "/files?page=x", "tok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [3]int64{1, 0, 0}, ts.files.listArgs)

	ts.files.listArgs = [3]int64{}
	w = ts.do(http.MethodGet, "/files?parentId=nope", "tok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, [3]int64{}, ts.files.listArgs)
}

func TestPublishUnpublish(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPut, "/files/5/publish", "tok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, ts.files.visibility)
	assert.True(t, *ts.files.visibility)
	assert.Contains(t, w.Body.String(), `"isPublic":true`)

	w = ts.do(http.MethodPut, "/files/5/unpublish", "tok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, *ts.files.visibility)

	w = ts.do(http.MethodPut, "/files/5/publish", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	ts.files.err = common.ErrorNotFound
	w = ts.do(http.MethodPut, "/files/5/publish", "other", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFileData(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/files/5/data?size=100", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PNGDATA", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, getCall{5, 0, false, "100"}, ts.files.getCalls[0])

	for _, tt := range []struct {
		err    error
		status int
		msg    string
	}{
		{common.ErrWrongImageSize, http.StatusBadRequest, "Wrong image size"},
		{common.ErrFolderHasNoContent, http.StatusBadRequest, "A folder doesn't have content"},
		{common.ErrorNotFound, http.StatusNotFound, "Not found"},
	} {
		ts.files.err = tt.err
		w = ts.do(http.MethodGet, "/files/5/data", "tok", "")
		assert.Equal(t, tt.status, w.Code)
		assert.Equal(t, tt.msg, errorOf(t, w))
	}
}

func TestRecover(t *testing.T) {
	ts := newTestServer(t)
	ts.engine.GET("/panic", func(*gin.Context) { panic("boom") })

	w := ts.do(http.MethodGet, "/panic", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgServerError, errorOf(t, w))
}

func TestStatusFor(t *testing.T) {
	status, msg := statusFor(fmt.Errorf("wrapped: %w", common.ErrParentNotFound))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Parent not found", msg)

	status, _ = statusFor(common.ErrorNotFound)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = statusFor(fmt.Errorf("x"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestRun_GracefulShutdown(t *testing.T) {
	setupGinTestMode()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := NewServer(addr, logging.NewNopLogger(), &fakeUsers{}, &fakeFiles{}, fakeApp{}, &fakeAuth{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/status")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_ListenError(t *testing.T) {
	setupGinTestMode()
	s := NewServer("bad-address", logging.NewNopLogger(), &fakeUsers{}, &fakeFiles{}, fakeApp{}, &fakeAuth{})

	assert.Error(t, s.Run(context.Background()))
}
