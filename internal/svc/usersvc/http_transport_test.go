package usersvc_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mkrupp/taskapp/internal/svc/usersvc"
)

type userAPI struct {
	t       *testing.T
	handler http.Handler
}

func setupUserAPI(t *testing.T) *userAPI {
	t.Helper()

	svc, _, _ := setupUserService(t)

	mux := http.NewServeMux()
	NewHTTPTransport(svc, testAvatarConfig).Register(mux)

	return &userAPI{t: t, handler: mux}
}

func (a *userAPI) do(method, path, token string, body string) *httptest.ResponseRecorder {
	a.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	return rec
}

func (a *userAPI) register(email string) string {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/users", "",
		`{"name":"Alice","email":"`+email+`","password":"red12345!","age":27}`)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body.Token
}

func TestHTTPTransport_Register(t *testing.T) {
	t.Parallel()

	api := setupUserAPI(t)

	rec := api.do(http.MethodPost, "/users", "",
		`{"name":"Alice","email":"alice@example.com","password":"red12345!","age":27,"admin":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User["email"])
	assert.NotEmpty(t, resp.User["_id"])

	for _, secret := range []string{"password", "tokens", "avatar"} {
		assert.NotContains(t, resp.User, secret)
	}

	t.Run("validation error", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/users", "", `{"name":"Bob","email":"bob@example.com","password":"password1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"password"`)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/users", "", `{"name":"Eve","email":"ALICE@example.com","password":"red12345!"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/users", "", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHTTPTransport_Sessions(t *testing.T) {
	t.Parallel()

	api := setupUserAPI(t)
	token1 := api.register("alice@example.com")

	rec := api.do(http.MethodGet, "/user/me", token1, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Alice"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do(http.MethodPost, "/users/login", "", `{"email":"alice@example.com","password":"nope12345"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Wrong password!"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/users/login", "", `{"email":"bob@example.com","password":"red12345!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Wrong email!"}`, rec.Body.String())

	rec = api.do(http.MethodPost, "/users/login", "", `{"email":"alice@example.com","password":"red12345!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	token2 := login.Token

	rec = api.do(http.MethodPost, "/users/logout", token1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/user/me", token1, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Please authenticate."}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/user/me", token2, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/users/logoutAll", token2, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/user/me", token2, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPTransport_Update(t *testing.T) {
	t.Parallel()

	api := setupUserAPI(t)
	token := api.register("alice@example.com")

	rec := api.do(http.MethodPatch, "/users/me", token, `{"name":"Alicia","isAdmin":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid updates!"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/user/me", token, "")
	assert.Contains(t, rec.Body.String(), `"name":"Alice"`)

	rec = api.do(http.MethodPatch, "/users/me", token, `{"age":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPatch, "/users/me", token, `{"name":"Alicia","age":28}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Alicia"`)
	assert.Contains(t, rec.Body.String(), `"age":28`)

	rec = api.do(http.MethodDelete, "/users/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Alicia"`)

	rec = api.do(http.MethodGet, "/user/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func (a *userAPI) upload(token, field, filename string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(a.t, err)

	_, err = part.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	return rec
}

func TestHTTPTransport_Avatar(t *testing.T) {
	t.Parallel()

	api := setupUserAPI(t)
	token := api.register("alice@example.com")

	rec := api.do(http.MethodGet, "/users/me/avatar", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no avatar found")

	rec = api.upload(token, "avatar", "me.pdf", encodePNG(t, 10, 10))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"only jpg, jpeg and png files are allowed"}`, rec.Body.String())

	rec = api.upload(token, "picture", "me.png", encodePNG(t, 10, 10))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, size := range []int{1_050_000, 3_000_000} {
		rec = api.upload(token, "avatar", "me.png", bytes.Repeat([]byte{0x89}, size))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"image too large"}`, rec.Body.String())
	}

	rec = api.upload(token, "avatar", "me.png", encodePNG(t, 400, 400))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodGet, "/users/me/avatar", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	cfg, err := png.DecodeConfig(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Width)

	rec = api.do(http.MethodGet, "/user/me", token, "")
	assert.NotContains(t, rec.Body.String(), "avatar")

	rec = api.do(http.MethodDelete, "/users/me/avatar", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/users/me/avatar", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPTransport_RequiresAuth(t *testing.T) {
	t.Parallel()

	api := setupUserAPI(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/users/logout"},
		{http.MethodPost, "/users/logoutAll"},
		{http.MethodGet, "/user/me"},
		{http.MethodPatch, "/users/me"},
		{http.MethodDelete, "/users/me"},
		{http.MethodPost, "/users/me/avatar"},
		{http.MethodGet, "/users/me/avatar"},
		{http.MethodDelete, "/users/me/avatar"},
	} {
		rec := api.do(route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.method+" "+route.path)
	}
}
