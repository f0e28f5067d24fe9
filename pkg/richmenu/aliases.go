package richmenu

import (
	"context"
	"net/http"
	"net/url"

	"github.com/YspCoder/menuctl/pkg/logger"
)

func (c *Client) CreateAlias(ctx context.Context, aliasID, richMenuID string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if aliasID == "" || richMenuID == "" {
		return errValidation("alias ID and rich menu ID are required")
	}
	if _, err := c.Do(ctx, http.MethodPost, "/richmenu/alias", Alias{RichMenuAliasID: aliasID, RichMenuID: richMenuID}); err != nil {
		return err
	}
	logger.InfoCF("richmenu", "Rich menu alias created", map[string]interface{}{
		logger.FieldAliasID:    aliasID,
		logger.FieldRichMenuID: richMenuID,
	})
	return nil
}

// UpdateAlias points an existing alias at another menu.
func (c *Client) UpdateAlias(ctx context.Context, aliasID, richMenuID string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if aliasID == "" || richMenuID == "" {
		return errValidation("alias ID and rich menu ID are required")
	}
	body := struct {
		RichMenuID string `json:"richMenuId"`
	}{richMenuID}
	_, err := c.Do(ctx, http.MethodPost, "/richmenu/alias/"+url.PathEscape(aliasID), body)
	return err
}

func (c *Client) GetAlias(ctx context.Context, aliasID string) (*Alias, error) {
	if _, err := c.credential(); err != nil {
		return nil, err
	}
	if aliasID == "" {
		return nil, errValidation("alias ID is required")
	}
	var alias Alias
	if err := c.doInto(ctx, http.MethodGet, "/richmenu/alias/"+url.PathEscape(aliasID), nil, &alias); err != nil {
		return nil, err
	}
	return &alias, nil
}

func (c *Client) DeleteAlias(ctx context.Context, aliasID string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if aliasID == "" {
		return errValidation("alias ID is required")
	}
	_, err := c.Do(ctx, http.MethodDelete, "/richmenu/alias/"+url.PathEscape(aliasID), nil)
	return err
}

func (c *Client) ListAliases(ctx context.Context) ([]Alias, error) {
	var out struct {
		Aliases []Alias `json:"aliases"`
	}
	if err := c.doInto(ctx, http.MethodGet, "/richmenu/alias/list", nil, &out); err != nil {
		return nil, err
	}
	if out.Aliases == nil {
		return []Alias{}, nil
	}
	return out.Aliases, nil
}
