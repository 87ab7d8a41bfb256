package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SergeyParamoshkin/feeds/internal/auth"
	"github.com/SergeyParamoshkin/feeds/internal/config"
	"github.com/SergeyParamoshkin/feeds/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type envelopeBody struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type articleBody struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Author       string   `json:"author"`
	AuthorName   string   `json:"authorName"`
	Images       []string `json:"images"`
	Tags         []string `json:"tags"`
	Likes        []string `json:"likes"`
	Dislikes     []string `json:"dislikes"`
	Blocks       []string `json:"blocks"`
	IsLiked      bool     `json:"isLiked"`
	IsDisliked   bool     `json:"isDisliked"`
	IsBlocked    bool     `json:"isBlocked"`
	LikeCount    int      `json:"likeCount"`
	DislikeCount int      `json:"dislikeCount"`
}

type testServer struct {
	*httptest.Server
	uploads string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.Default()
	cfg.Uploads.Dir = filepath.Join(t.TempDir(), "uploads")
	cfg.Auth.Secret = "test-secret"

	r, err := New(cfg, database, zap.NewNop().Sugar(), nil)
	require.NoError(t, err)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, uploads: cfg.Uploads.Dir}
}

func (ts *testServer) do(t *testing.T, method, path, token, contentType string, body io.Reader) (int, envelopeBody) {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelopeBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))

	return resp.StatusCode, env
}

func (ts *testServer) json(t *testing.T, method, path, token string, v interface{}) (int, envelopeBody) {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return ts.do(t, method, path, token, "application/json", bytes.NewReader(b))
}

type form struct {
	fields map[string][]string
	files  []string
}

func (ts *testServer) form(t *testing.T, method, path, token string, f form) (int, envelopeBody) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, vs := range f.fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, name := range f.files {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(pngData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return ts.do(t, method, path, token, mw.FormDataContentType(), body)
}

func (ts *testServer) signup(t *testing.T, email string, prefs ...string) string {
	t.Helper()

	status, env := ts.json(t, http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"firstName":   "Ada",
		"lastName":    "Lovelace",
		"email":       email,
		"password":    "secret1",
		"preferences": prefs,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, "User created successfully", env.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)

	return data.Token
}

func articleForm(category string, files ...string) form {
	return form{
		fields: map[string][]string{
			"title":       {"Go 1.21 released"},
			"description": {"What is new"},
			"category":    {category},
			"content":     {"Lots of things."},
			"tags":        {"go,release"},
		},
		files: files,
	}
}

func (ts *testServer) createArticle(t *testing.T, token, category string) articleBody {
	t.Helper()

	status, env := ts.form(t, http.MethodPost, "/api/articles", token, articleForm(category, "a.png", "b.png"))
	require.Equal(t, http.StatusCreated, status, env.Message)

	return decodeArticle(t, env)
}

func decodeArticle(t *testing.T, env envelopeBody) articleBody {
	t.Helper()

	var a articleBody
	require.NoError(t, json.Unmarshal(env.Data, &a))

	return a
}

func decodeArticles(t *testing.T, env envelopeBody) []articleBody {
	t.Helper()

	var list []articleBody
	require.NoError(t, json.Unmarshal(env.Data, &list))

	return list
}

func (ts *testServer) stored(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(ts.uploads)
	require.NoError(t, err)

	refs := []string{}
	for _, e := range entries {
		refs = append(refs, "uploads/"+e.Name())
	}

	return refs
}

func TestPing(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(b))
}

func TestFeedAndReactions(t *testing.T) {
	ts := newTestServer(t)

	reader := ts.signup(t, "reader@example.com", "tech", "space")
	writer := ts.signup(t, "writer@example.com", "news")

	created := ts.createArticle(t, writer, "tech")
	assert.Equal(t, "Ada Lovelace", created.AuthorName)
	assert.Len(t, created.Images, 2)
	assert.Equal(t, []string{"go", "release"}, created.Tags)

	status, env := ts.do(t, http.MethodGet, "/api/articles", reader, "", nil)
	require.Equal(t, http.StatusOK, status)
	feed := decodeArticles(t, env)
	require.Len(t, feed, 1)
	assert.Equal(t, created.ID, feed[0].ID)
	assert.False(t, feed[0].IsLiked)
	assert.False(t, feed[0].IsDisliked)

	interact := func(action string) (int, articleBody) {
		status, env := ts.json(t, http.MethodPost, "/api/articles/"+created.ID+"/interact", reader,
			map[string]string{"action": action})
		if status != http.StatusOK {
			return status, articleBody{}
		}
		return status, decodeArticle(t, env)
	}

	status, a := interact("like")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, a.IsLiked)
	assert.Len(t, a.Likes, 1)

	status, env = ts.do(t, http.MethodGet, "/api/articles", reader, "", nil)
	require.Equal(t, http.StatusOK, status)
	feed = decodeArticles(t, env)
	require.Len(t, feed, 1)
	assert.True(t, feed[0].IsLiked)
	assert.Equal(t, 1, feed[0].LikeCount)

	_, a = interact("like")
	assert.Empty(t, a.Likes)
	assert.Empty(t, a.Dislikes)

	_, a = interact("like")
	_, a = interact("dislike")
	assert.Empty(t, a.Likes)
	assert.Len(t, a.Dislikes, 1)
	assert.True(t, a.IsDisliked)
	assert.False(t, a.IsLiked)

	_, a = interact("block")
	_, a = interact("block")
	assert.Len(t, a.Blocks, 1)
	assert.True(t, a.IsBlocked)

	status, _ = interact("love")
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.json(t, http.MethodPost, "/api/articles/missing/interact", reader, map[string]string{"action": "like"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "article not found", env.Message)

	status, env = ts.do(t, http.MethodGet, "/api/articles?excludeBlocked=true", reader, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeArticles(t, env))
}

func TestEmptyPreferences(t *testing.T) {
	ts := newTestServer(t)

	reader := ts.signup(t, "reader@example.com")
	writer := ts.signup(t, "writer@example.com")
	ts.createArticle(t, writer, "tech")

	status, env := ts.do(t, http.MethodGet, "/api/articles", reader, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))

	status, _ = ts.json(t, http.MethodPut, "/api/users/preferences", reader,
		map[string]interface{}{"action": "add", "preferences": []string{"tech"}})
	require.Equal(t, http.StatusOK, status)

	status, env = ts.do(t, http.MethodGet, "/api/articles", reader, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeArticles(t, env), 1)
}

func TestSearchAndUserArticles(t *testing.T) {
	ts := newTestServer(t)

	writer := ts.signup(t, "writer@example.com", "tech", "space")
	tagged := ts.createArticle(t, writer, "tech")

	f := articleForm("space", "a.png", "b.png")
	f.fields["tags"] = []string{"nasa"}
	status, _ := ts.form(t, http.MethodPost, "/api/articles", writer, f)
	require.Equal(t, http.StatusCreated, status)

	status, env := ts.do(t, http.MethodGet, "/api/articles/search?tag=go", writer, "", nil)
	require.Equal(t, http.StatusOK, status)
	list := decodeArticles(t, env)
	require.Len(t, list, 1)
	assert.Equal(t, tagged.ID, list[0].ID)

	status, _ = ts.do(t, http.MethodGet, "/api/articles/search", writer, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	for _, path := range []string{"/api/articles/user", "/api/articles/articles/user"} {
		status, env = ts.do(t, http.MethodGet, path, writer, "", nil)
		require.Equal(t, http.StatusOK, status, path)
		assert.Len(t, decodeArticles(t, env), 2, path)
	}

	status, env = ts.do(t, http.MethodGet, "/api/articles?limit=1&offset=1", writer, "", nil)
	require.Equal(t, http.StatusOK, status)
	list = decodeArticles(t, env)
	require.Len(t, list, 1)
	assert.Equal(t, tagged.ID, list[0].ID)

	status, _ = ts.do(t, http.MethodGet, "/api/articles?limit=zero", writer, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "writer@example.com", "tech")

	tests := []struct {
		name string
		f    form
	}{
		{name: "one image", f: articleForm("tech", "a.png")},
		{name: "bad category", f: articleForm("weather", "a.png", "b.png")},
		{name: "bad type", f: articleForm("tech", "a.png", "b.svg")},
		{name: "missing title", f: func() form {
			f := articleForm("tech", "a.png", "b.png")
			delete(f.fields, "title")
			return f
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := ts.form(t, http.MethodPost, "/api/articles", token, tt.f)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, env.Message)
		})
	}

	status, _ := ts.form(t, http.MethodPost, "/api/articles", "", articleForm("tech", "a.png", "b.png"))
	assert.Equal(t, http.StatusUnauthorized, status)

	assert.Empty(t, ts.stored(t))
}

func TestUploadsServed(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "writer@example.com", "tech")
	created := ts.createArticle(t, token, "tech")

	get := func(path string) (int, []byte) {
		resp, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp.StatusCode, b
	}

	for _, ref := range created.Images {
		status, body := get("/" + ref)
		assert.Equal(t, http.StatusOK, status, ref)
		assert.Equal(t, pngData, body)
	}

	for _, path := range []string{"/uploads/", "/uploads/missing.png", "/uploads/../go.mod"} {
		status, body := get(path)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.NotContains(t, string(body), strings.TrimPrefix(created.Images[0], "uploads/"), path)
	}
}

func TestUpdateImages(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "writer@example.com", "tech")

	created := ts.createArticle(t, token, "tech")
	a, b := created.Images[0], created.Images[1]

	status, env := ts.form(t, http.MethodPut, "/api/articles/"+created.ID, token, form{
		fields: map[string][]string{"existingImages[]": {a}, "title": {"Edited"}},
		files:  []string{"c.png"},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	updated := decodeArticle(t, env)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, a, updated.Images[0])
	assert.NotEqual(t, b, updated.Images[1])
	assert.Equal(t, "Edited", updated.Title)
	assert.Equal(t, []string{"go", "release"}, updated.Tags)
	assert.ElementsMatch(t, updated.Images, ts.stored(t))

	resp, err := ts.Client().Get(ts.URL + "/" + a)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ = ts.form(t, http.MethodPut, "/api/articles/"+created.ID, token, form{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.do(t, http.MethodGet, "/api/articles/"+created.ID, token, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, updated.Images, decodeArticle(t, env).Images)
	assert.ElementsMatch(t, updated.Images, ts.stored(t))
}

func TestOwnershipAndDelete(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signup(t, "owner@example.com", "tech")
	other := ts.signup(t, "other@example.com", "tech")

	created := ts.createArticle(t, owner, "tech")

	status, _ := ts.form(t, http.MethodPut, "/api/articles/"+created.ID, other, form{
		fields: map[string][]string{"existingImages": created.Images},
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodDelete, "/api/articles/"+created.ID, other, "", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := ts.do(t, http.MethodDelete, "/api/articles/"+created.ID, owner, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Article deleted", env.Message)
	assert.Empty(t, ts.stored(t))

	status, _ = ts.do(t, http.MethodGet, "/api/articles/"+created.ID, owner, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodDelete, "/api/articles/"+created.ID, owner, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	for _, token := range []string{"", "not-a-token"} {
		status, env := ts.do(t, http.MethodGet, "/api/articles", token, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.NotEmpty(t, env.Message)

		status, _ = ts.json(t, http.MethodPost, "/api/articles/any/interact", token, map[string]string{"action": "like"})
		assert.Equal(t, http.StatusUnauthorized, status)
	}
}

func TestNew_RequiresSecret(t *testing.T) {
	database, err := db.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.Default()
	cfg.Uploads.Dir = t.TempDir()

	_, err = New(cfg, database, zap.NewNop().Sugar(), nil)
	assert.Error(t, err)
}

func TestForeignTokens(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "ada@example.com", "tech")

	for _, secret := range []string{"change-me", "", "test-secret-2"} {
		forged, err := auth.NewJWT([]byte(secret), time.Hour).Issue("any-user-id")
		require.NoError(t, err)

		status, _ := ts.do(t, http.MethodGet, "/api/articles/user", forged, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, "secret %q", secret)
	}
}

func TestSignupEmailForms(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.json(t, http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"firstName": "Ada", "email": "Ada <ada@example.com>", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := ts.json(t, http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"firstName": "Ada", "email": "  Ada@Example.com ", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = ts.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "ada@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusOK, status, env.Message)
}

func TestAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "ada@example.com", "tech")

	status, _ := ts.json(t, http.MethodPost, "/api/auth/signup", "", map[string]interface{}{
		"firstName": "Ada", "email": "ADA@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, env := ts.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", env.Message)

	status, env = ts.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"identifier": "ada@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	var login struct {
		Token string `json:"token"`
		User  string `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "Ada", login.User)

	status, env = ts.do(t, http.MethodGet, "/api/users/profile", login.Token, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "password")
	assert.True(t, strings.Contains(string(env.Data), `"name":"Ada Lovelace"`), string(env.Data))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/articles", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
