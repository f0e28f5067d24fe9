package richmenu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const testToken = "test-channel-token"

// fakeLINE is an in-memory stand-in for the two LINE API hosts. Requests to
// the wrong host for a path are answered with 404 so plane mix-ups surface.
type fakeLINE struct {
	mu       sync.Mutex
	menus    map[string]RichMenu
	images   map[string][]byte
	imageCT  map[string]string
	aliases  map[string]string
	users    map[string]string
	def      string
	nextID   int
	apiHits  []string
	dataHits []string

	api  *httptest.Server
	data *httptest.Server
}

func newFakeLINE(t *testing.T) *fakeLINE {
	t.Helper()
	f := &fakeLINE{
		menus:   map[string]RichMenu{},
		images:  map[string][]byte{},
		imageCT: map[string]string{},
		aliases: map[string]string{},
		users:   map[string]string{},
	}
	f.api = httptest.NewServer(http.HandlerFunc(f.serveAPI))
	f.data = httptest.NewServer(http.HandlerFunc(f.serveData))
	t.Cleanup(func() {
		f.api.Close()
		f.data.Close()
	})
	return f
}

func (f *fakeLINE) client() *Client {
	c := New(Options{
		AccessToken:    testToken,
		APIBase:        f.api.URL,
		DataAPIBase:    f.data.URL,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	})
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func (f *fakeLINE) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authentication failed"})
		return false
	}
	return true
}

func (f *fakeLINE) serveData(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataHits = append(f.dataHits, r.Method+" "+r.URL.Path)
	if !f.authorized(w, r) {
		return
	}

	id, ok := strings.CutPrefix(r.URL.Path, "/richmenu/")
	id, ok2 := strings.CutSuffix(id, "/content")
	if !ok || !ok2 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}
	if _, exists := f.menus[id]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		f.images[id] = body
		f.imageCT[id] = r.Header.Get("Content-Type")
		writeJSON(w, http.StatusOK, map[string]string{})
	case http.MethodGet:
		img, ok := f.images[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
			return
		}
		w.Header().Set("Content-Type", f.imageCT[id])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeLINE) serveAPI(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiHits = append(f.apiHits, r.Method+" "+r.URL.Path)
	if !f.authorized(w, r) {
		return
	}

	path := r.URL.Path
	notFound := func() { writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"}) }

	switch {
	case r.Method == http.MethodGet && path == "/richmenu/list":
		list := make([]RichMenu, 0, len(f.menus))
		for _, m := range f.menus {
			list = append(list, m)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"richmenus": list})

	case r.Method == http.MethodPost && path == "/richmenu":
		var m RichMenu
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "The request body has 1 error(s)"})
			return
		}
		f.nextID++
		m.RichMenuID = fmt.Sprintf("richmenu-%04d", f.nextID)
		f.menus[m.RichMenuID] = m
		writeJSON(w, http.StatusOK, map[string]string{"richMenuId": m.RichMenuID})

	case r.Method == http.MethodPost && path == "/richmenu/validate":
		writeJSON(w, http.StatusOK, map[string]string{})

	case r.Method == http.MethodGet && path == "/richmenu/alias/list":
		list := make([]Alias, 0, len(f.aliases))
		for a, m := range f.aliases {
			list = append(list, Alias{RichMenuAliasID: a, RichMenuID: m})
		}
		if len(list) == 0 {
			writeJSON(w, http.StatusOK, map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"aliases": list})

	case r.Method == http.MethodPost && path == "/richmenu/alias":
		var a Alias
		_ = json.NewDecoder(r.Body).Decode(&a)
		if _, dup := f.aliases[a.RichMenuAliasID]; dup {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "conflict richmenu alias id"})
			return
		}
		f.aliases[a.RichMenuAliasID] = a.RichMenuID
		writeJSON(w, http.StatusOK, map[string]string{})

	case strings.HasPrefix(path, "/richmenu/alias/"):
		aliasID := strings.TrimPrefix(path, "/richmenu/alias/")
		target, ok := f.aliases[aliasID]
		if !ok {
			notFound()
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, Alias{RichMenuAliasID: aliasID, RichMenuID: target})
		case http.MethodPost:
			var body struct {
				RichMenuID string `json:"richMenuId"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.aliases[aliasID] = body.RichMenuID
			writeJSON(w, http.StatusOK, map[string]string{})
		case http.MethodDelete:
			delete(f.aliases, aliasID)
			writeJSON(w, http.StatusOK, map[string]string{})
		}

	case r.Method == http.MethodPost && (path == "/richmenu/bulk/link" || path == "/richmenu/bulk/unlink"):
		var body struct {
			RichMenuID string   `json:"richMenuId"`
			UserIDs    []string `json:"userIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, u := range body.UserIDs {
			if path == "/richmenu/bulk/link" {
				f.users[u] = body.RichMenuID
			} else {
				delete(f.users, u)
			}
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("{}"))

	case path == "/user/all/richmenu":
		switch r.Method {
		case http.MethodGet:
			if f.def == "" {
				writeJSON(w, http.StatusNotFound, map[string]string{"message": "no default rich menu"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"richMenuId": f.def})
		case http.MethodDelete:
			f.def = ""
			writeJSON(w, http.StatusOK, map[string]string{})
		}

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/user/all/richmenu/"):
		id := strings.TrimPrefix(path, "/user/all/richmenu/")
		if _, ok := f.menus[id]; !ok {
			notFound()
			return
		}
		f.def = id
		writeJSON(w, http.StatusOK, map[string]string{})

	case strings.HasPrefix(path, "/user/"):
		rest := strings.TrimPrefix(path, "/user/")
		userID, tail, _ := strings.Cut(rest, "/")
		switch {
		case r.Method == http.MethodGet && tail == "richmenu":
			id, ok := f.users[userID]
			if !ok {
				notFound()
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"richMenuId": id})
		case r.Method == http.MethodDelete && tail == "richmenu":
			delete(f.users, userID)
			writeJSON(w, http.StatusOK, map[string]string{})
		case r.Method == http.MethodPost && strings.HasPrefix(tail, "richmenu/"):
			id := strings.TrimPrefix(tail, "richmenu/")
			if _, ok := f.menus[id]; !ok {
				notFound()
				return
			}
			f.users[userID] = id
			writeJSON(w, http.StatusOK, map[string]string{})
		default:
			notFound()
		}

	case strings.HasPrefix(path, "/richmenu/"):
		id := strings.TrimPrefix(path, "/richmenu/")
		m, ok := f.menus[id]
		if !ok || strings.Contains(id, "/") {
			notFound()
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, m)
		case http.MethodDelete:
			delete(f.menus, id)
			delete(f.images, id)
			writeJSON(w, http.StatusOK, map[string]string{})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	default:
		notFound()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
