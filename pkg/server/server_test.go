package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YspCoder/menuctl/pkg/config"
	"github.com/YspCoder/menuctl/pkg/richmenu"
	"github.com/YspCoder/menuctl/pkg/templates"
)

const lineToken = "gateway-test-token"

// stubLINE serves both LINE hosts from one listener.
type stubLINE struct {
	mu      sync.Mutex
	menus   map[string]json.RawMessage
	images  map[string][]byte
	aliases map[string]string
	def     string
	next    int
}

func (l *stubLINE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reply := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	notFound := func() { reply(http.StatusNotFound, map[string]string{"message": "Not found"}) }

	if r.Header.Get("Authorization") != "Bearer "+lineToken {
		reply(http.StatusUnauthorized, map[string]string{"message": "Authentication failed"})
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/richmenu/list":
		list := make([]json.RawMessage, 0, len(l.menus))
		for _, m := range l.menus {
			list = append(list, m)
		}
		reply(http.StatusOK, map[string]interface{}{"richmenus": list})
	case r.Method == http.MethodPost && path == "/richmenu":
		var m map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&m)
		l.next++
		id := fmt.Sprintf("richmenu-%d", l.next)
		m["richMenuId"] = id
		l.menus[id], _ = json.Marshal(m)
		reply(http.StatusOK, map[string]string{"richMenuId": id})
	case r.Method == http.MethodPost && path == "/richmenu/validate":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && path == "/richmenu/alias/list":
		list := []richmenu.Alias{}
		for a, m := range l.aliases {
			list = append(list, richmenu.Alias{RichMenuAliasID: a, RichMenuID: m})
		}
		reply(http.StatusOK, map[string]interface{}{"aliases": list})
	case r.Method == http.MethodPost && path == "/richmenu/alias":
		var a richmenu.Alias
		_ = json.NewDecoder(r.Body).Decode(&a)
		if _, dup := l.aliases[a.RichMenuAliasID]; dup {
			reply(http.StatusConflict, map[string]string{"message": "conflict"})
			return
		}
		l.aliases[a.RichMenuAliasID] = a.RichMenuID
		w.WriteHeader(http.StatusOK)
	case path == "/user/all/richmenu" && r.Method == http.MethodGet:
		if l.def == "" {
			notFound()
			return
		}
		reply(http.StatusOK, map[string]string{"richMenuId": l.def})
	case strings.HasPrefix(path, "/user/all/richmenu/") && r.Method == http.MethodPost:
		l.def = strings.TrimPrefix(path, "/user/all/richmenu/")
		w.WriteHeader(http.StatusOK)
	case strings.HasPrefix(path, "/richmenu/bulk/"):
		w.WriteHeader(http.StatusAccepted)
	case strings.HasSuffix(path, "/content"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/richmenu/"), "/content")
		if _, ok := l.menus[id]; !ok {
			notFound()
			return
		}
		if r.Method == http.MethodPost {
			l.images[id], _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
			return
		}
		img, ok := l.images[id]
		if !ok {
			notFound()
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	case strings.HasPrefix(path, "/richmenu/"):
		id := strings.TrimPrefix(path, "/richmenu/")
		m, ok := l.menus[id]
		if !ok {
			notFound()
			return
		}
		if r.Method == http.MethodDelete {
			delete(l.menus, id)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(m)
	default:
		notFound()
	}
}

type harness struct {
	t       *testing.T
	line    *stubLINE
	client  *richmenu.Client
	store   *templates.Store
	cfg     *config.Config
	handler http.Handler
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	line := &stubLINE{menus: map[string]json.RawMessage{}, images: map[string][]byte{}, aliases: map[string]string{}}
	upstream := httptest.NewServer(line)
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.Gateway.RateLimitRPS = 0
	cfg.Templates.Dir = t.TempDir()
	for _, m := range mutate {
		m(cfg)
	}

	client := richmenu.New(richmenu.Options{
		AccessToken:    lineToken,
		APIBase:        upstream.URL,
		DataAPIBase:    upstream.URL,
		RetryBaseDelay: time.Millisecond,
	})
	store := templates.NewStore(cfg.TemplatesPath())
	return &harness{
		t:       t,
		line:    line,
		client:  client,
		store:   store,
		cfg:     cfg,
		handler: NewServer(cfg, client, store).Handler(),
	}
}

func (h *harness) do(method, target string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) doJSON(method, target string, v interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(h.t, err)
	return h.do(method, target, bytes.NewReader(data), "Content-Type", "application/json")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const menuJSON = `{
  "size": {"width": 2500, "height": 843},
  "selected": false,
  "name": "Gateway menu",
  "chatBarText": "Menu",
  "areas": [{"bounds": {"x": 0, "y": 0, "width": 2500, "height": 843},
             "action": {"type": "message", "text": "hi"}}]
}`

func (h *harness) createMenu() string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/richmenus", strings.NewReader(menuJSON), "Content-Type", "application/json")
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := decodeBody(h.t, rec)["richMenuId"].(string)
	require.NotEmpty(h.t, id)
	return id
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMenuRoutes(t *testing.T) {
	h := newHarness(t)
	id := h.createMenu()

	rec := h.do(http.MethodGet, "/api/richmenus", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	menus := decodeBody(t, rec)["richmenus"].([]interface{})
	assert.Len(t, menus, 1)

	rec = h.do(http.MethodGet, "/api/richmenus/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gateway menu", decodeBody(t, rec)["name"])

	rec = h.do(http.MethodPost, "/api/richmenus/validate", strings.NewReader(menuJSON))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = h.do(http.MethodDelete, "/api/richmenus/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/richmenus/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 404, body["status"])
	assert.Equal(t, map[string]interface{}{"message": "Not found"}, body["details"])
}

func TestCreateMenuRejectsInvalidDefinitionLocally(t *testing.T) {
	h := newHarness(t)
	bad := strings.Replace(menuJSON, `"width": 2500, "height": 843},
  "selected"`, `"width": 100, "height": 100},
  "selected"`, 1)

	rec := h.do(http.MethodPost, "/api/richmenus", strings.NewReader(bad))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "unsupported rich menu size")
	assert.Empty(t, h.line.menus)

	rec = h.do(http.MethodPost, "/api/richmenus", strings.NewReader(`{"size":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/richmenus", strings.NewReader(`{"bogus":1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMenuFromTemplate(t *testing.T) {
	h := newHarness(t)
	var menu richmenu.RichMenu
	require.NoError(t, json.Unmarshal([]byte(menuJSON), &menu))
	require.NoError(t, h.store.Save("footer", &menu))

	rec := h.do(http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"templates":["footer"]}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/templates/footer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gateway menu", decodeBody(t, rec)["name"])

	rec = h.do(http.MethodGet, "/api/templates/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/api/richmenus?template=footer", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, h.line.menus, 1)
}

func TestImageUploadAndDownload(t *testing.T) {
	h := newHarness(t)
	id := h.createMenu()
	img := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{7}, 200)...)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "menu.png")
	require.NoError(t, err)
	_, _ = part.Write(img)
	require.NoError(t, mw.Close())

	rec := h.do(http.MethodPost, "/api/richmenus/"+id+"/image", &buf, "Content-Type", mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/richmenus/"+id+"/image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, img, rec.Body.Bytes())

	raw := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{9}, 50)...)
	rec = h.do(http.MethodPost, "/api/richmenus/"+id+"/image", bytes.NewReader(raw), "Content-Type", "image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, raw, h.line.images[id])
}

func TestImageUploadRejections(t *testing.T) {
	h := newHarness(t)
	id := h.createMenu()

	rec := h.do(http.MethodPost, "/api/richmenus/"+id+"/image",
		bytes.NewReader(make([]byte, richmenu.MaxImageBytes+1)), "Content-Type", "image/png")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "limit is 1048576")

	rec = h.do(http.MethodPost, "/api/richmenus/"+id+"/image", strings.NewReader("GIF89a"), "Content-Type", "image/gif")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "x")
	require.NoError(t, mw.Close())
	rec = h.do(http.MethodPost, "/api/richmenus/"+id+"/image", &buf, "Content-Type", mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, h.line.images)
}

func TestDefaultAndOverview(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"richmenus":[],"aliases":[],"defaultRichMenuId":""}`, rec.Body.String())

	id := h.createMenu()
	rec = h.do(http.MethodPost, "/api/default-richmenu/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.doJSON(http.MethodPost, "/api/aliases", richmenu.Alias{RichMenuAliasID: "home", RichMenuID: id})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.doJSON(http.MethodPost, "/api/aliases", richmenu.Alias{RichMenuAliasID: "home", RichMenuID: id})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodGet, "/api/default-richmenu", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"richMenuId":%q}`, id), rec.Body.String())

	rec = h.do(http.MethodGet, "/api/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, id, body["defaultRichMenuId"])
	assert.Len(t, body["richmenus"], 1)
	assert.Len(t, body["aliases"], 1)
}

func TestBulkLinkLimit(t *testing.T) {
	h := newHarness(t)
	users := make([]string, richmenu.MaxBulkUsers+1)
	for i := range users {
		users[i] = fmt.Sprintf("U%d", i)
	}

	rec := h.doJSON(http.MethodPost, "/api/richmenus/bulk/link", map[string]interface{}{"richMenuId": "richmenu-1", "userIds": users})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.doJSON(http.MethodPost, "/api/richmenus/bulk/unlink", map[string]interface{}{"userIds": users[:10]})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMissingTokenThenRuntimeUpdate(t *testing.T) {
	h := newHarness(t)
	h.client.SetAccessToken("")

	rec := h.do(http.MethodGet, "/api/richmenus", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 401, body["status"])
	assert.NotContains(t, body, "details")

	rec = h.doJSON(http.MethodPost, "/api/token", map[string]string{"token": "  " + lineToken + "  "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"configured":true}`, rec.Body.String())
	assert.Equal(t, lineToken, h.cfg.GetAccessToken())

	rec = h.do(http.MethodGet, "/api/richmenus", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.doJSON(http.MethodPost, "/api/token", map[string]string{"token": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransportFailureIsBadGateway(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	cfg := config.DefaultConfig()
	cfg.Gateway.RateLimitRPS = 0
	client := richmenu.New(richmenu.Options{AccessToken: lineToken, APIBase: dead.URL, DataAPIBase: dead.URL})
	handler := NewServer(cfg, client, templates.NewStore(t.TempDir())).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aliases", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "LINE API request failed", body["error"])
	assert.EqualValues(t, 502, body["status"])
}

func TestUnusableSuccessBodyIsBadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.Gateway.RateLimitRPS = 0
	client := richmenu.New(richmenu.Options{AccessToken: lineToken, APIBase: upstream.URL, DataAPIBase: upstream.URL})
	handler := NewServer(cfg, client, templates.NewStore(t.TempDir())).Handler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/richmenus", strings.NewReader(menuJSON))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "LINE API returned no richMenuId", body["error"])
	assert.EqualValues(t, 502, body["status"])
}

func TestRequestIDAndCORS(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = h.do(http.MethodGet, "/health", nil, RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = h.do(http.MethodOptions, "/api/richmenus", nil, "Origin", "http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	restricted := newHarness(t, func(c *config.Config) { c.Gateway.AllowedOrigins = []string{"https://admin.example.com"} })
	rec = restricted.do(http.MethodOptions, "/api/richmenus", nil, "Origin", "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInboundRateLimit(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Gateway.RateLimitRPS = 0.001
		c.Gateway.RateLimitBurst = 2
	})

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/templates", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/templates", nil).Code)
	rec := h.do(http.MethodGet, "/api/templates", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", nil).Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 404, decodeBody(t, rec)["status"])
}

func TestRecoveryRendersJSON(t *testing.T) {
	handler := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID, Recovery)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","status":500}`, rec.Body.String())
}
