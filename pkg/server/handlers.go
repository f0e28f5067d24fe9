package server

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/YspCoder/menuctl/pkg/logger"
	"github.com/YspCoder/menuctl/pkg/richmenu"
	"github.com/YspCoder/menuctl/pkg/templates"
)

func (s *Server) handleListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := s.client.ListMenus(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"richmenus": menus})
}

// menuFromRequest reads a menu definition from the body, or from the
// template named by ?template=.
func (s *Server) menuFromRequest(w http.ResponseWriter, r *http.Request) (*richmenu.RichMenu, bool) {
	if name := r.URL.Query().Get("template"); name != "" {
		menu, err := s.templates.Load(name)
		if err != nil {
			if errors.Is(err, templates.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Status: http.StatusNotFound})
				return nil, false
			}
			writeBadRequest(w, "%v", err)
			return nil, false
		}
		return menu, true
	}

	var menu richmenu.RichMenu
	if err := decodeJSON(r, &menu); err != nil {
		writeBadRequest(w, "invalid rich menu definition: %v", err)
		return nil, false
	}
	return &menu, true
}

func (s *Server) handleCreateMenu(w http.ResponseWriter, r *http.Request) {
	menu, ok := s.menuFromRequest(w, r)
	if !ok {
		return
	}
	if err := menu.Check(s.client.AllowedSizes()); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.client.CreateMenu(r.Context(), menu)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"richMenuId": id})
}

func (s *Server) handleValidateMenu(w http.ResponseWriter, r *http.Request) {
	menu, ok := s.menuFromRequest(w, r)
	if !ok {
		return
	}
	if err := menu.Check(s.client.AllowedSizes()); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.client.ValidateMenu(r.Context(), menu); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := s.client.GetMenu(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

func (s *Server) handleDeleteMenu(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteMenu(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

// handleUploadImage accepts multipart form data (field "image") or a raw
// image body typed by its Content-Type header.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Gateway.MaxUploadBytes)

	var (
		data        []byte
		contentType string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.config.Gateway.MaxUploadBytes); err != nil {
			writeBadRequest(w, "invalid multipart upload: %v", err)
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			writeBadRequest(w, "multipart field \"image\" is required")
			return
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			writeBadRequest(w, "failed to read upload: %v", err)
			return
		}
		contentType = header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = richmenu.ContentTypeForPath(header.Filename)
		}
	} else {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(r.Body); err != nil {
			writeBadRequest(w, "failed to read upload: %v", err)
			return
		}
		data = buf.Bytes()
		contentType = mediaType
		if contentType == "application/octet-stream" {
			contentType = ""
		}
	}

	if err := s.client.UploadImage(r.Context(), r.PathValue("id"), data, contentType); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) handleDownloadImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.client.DownloadImage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

type bulkRequest struct {
	RichMenuID string   `json:"richMenuId"`
	UserIDs    []string `json:"userIds"`
}

func (s *Server) handleBulkLink(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid bulk link request: %v", err)
		return
	}
	if err := s.client.BulkLink(r.Context(), req.RichMenuID, req.UserIDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, successBody)
}

func (s *Server) handleBulkUnlink(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid bulk unlink request: %v", err)
		return
	}
	if err := s.client.BulkUnlink(r.Context(), req.UserIDs); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, successBody)
}

func (s *Server) handleGetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := s.client.GetDefaultMenu(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"richMenuId": id})
}

func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	if err := s.client.SetDefaultMenu(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) handleClearDefault(w http.ResponseWriter, r *http.Request) {
	if err := s.client.ClearDefaultMenu(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) handleGetUserMenu(w http.ResponseWriter, r *http.Request) {
	id, err := s.client.GetUserMenu(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"richMenuId": id})
}

func (s *Server) handleLinkUser(w http.ResponseWriter, r *http.Request) {
	if err := s.client.LinkUser(r.Context(), r.PathValue("userId"), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) handleUnlinkUser(w http.ResponseWriter, r *http.Request) {
	if err := s.client.UnlinkUser(r.Context(), r.PathValue("userId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) handleListAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := s.client.ListAliases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"aliases": aliases})
}

func (s *Server) handleCreateAlias(w http.ResponseWriter, r *http.Request) {
	var alias richmenu.Alias
	if err := decodeJSON(r, &alias); err != nil {
		writeBadRequest(w, "invalid alias: %v", err)
		return
	}
	if err := s.client.CreateAlias(r.Context(), alias.RichMenuAliasID, alias.RichMenuID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, alias)
}

func (s *Server) handleGetAlias(w http.ResponseWriter, r *http.Request) {
	alias, err := s.client.GetAlias(r.Context(), r.PathValue("aliasId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alias)
}

func (s *Server) handleUpdateAlias(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RichMenuID string `json:"richMenuId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid alias update: %v", err)
		return
	}
	aliasID := r.PathValue("aliasId")
	if err := s.client.UpdateAlias(r.Context(), aliasID, req.RichMenuID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, richmenu.Alias{RichMenuAliasID: aliasID, RichMenuID: req.RichMenuID})
}

func (s *Server) handleDeleteAlias(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteAlias(r.Context(), r.PathValue("aliasId")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := s.templates.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": names})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	menu, err := s.templates.Load(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Status: http.StatusNotFound})
			return
		}
		writeBadRequest(w, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

type overview struct {
	RichMenus     []richmenu.RichMenu `json:"richmenus"`
	Aliases       []richmenu.Alias    `json:"aliases"`
	DefaultMenuID string              `json:"defaultRichMenuId"`
}

// handleOverview fetches menus, aliases and the default menu concurrently.
// A missing default is not an error.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	var out overview
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		menus, err := s.client.ListMenus(ctx)
		out.RichMenus = menus
		return err
	})
	g.Go(func() error {
		aliases, err := s.client.ListAliases(ctx)
		out.Aliases = aliases
		return err
	})
	g.Go(func() error {
		id, err := s.client.GetDefaultMenu(ctx)
		if richmenu.IsNotFound(err) {
			return nil
		}
		out.DefaultMenuID = id
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSetToken replaces the channel access token for subsequent calls.
// The token is kept in memory only.
func (s *Server) handleSetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid token request: %v", err)
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeBadRequest(w, "token is required")
		return
	}
	s.client.SetAccessToken(token)
	s.config.SetAccessToken(token)

	logger.InfoCF("server", "Channel access token updated", map[string]interface{}{
		logger.FieldRequestID: GetRequestID(r.Context()),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "configured": s.client.HasAccessToken()})
}
