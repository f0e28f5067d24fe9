package richmenu

import (
	"context"
	"net/http"
	"net/url"

	"github.com/YspCoder/menuctl/pkg/logger"
)

func (c *Client) ListMenus(ctx context.Context) ([]RichMenu, error) {
	var out struct {
		RichMenus []RichMenu `json:"richmenus"`
	}
	if err := c.doInto(ctx, http.MethodGet, "/richmenu/list", nil, &out); err != nil {
		return nil, err
	}
	if out.RichMenus == nil {
		return []RichMenu{}, nil
	}
	return out.RichMenus, nil
}

func (c *Client) GetMenu(ctx context.Context, richMenuID string) (*RichMenu, error) {
	if _, err := c.credential(); err != nil {
		return nil, err
	}
	if richMenuID == "" {
		return nil, errValidation("rich menu ID is required")
	}
	var menu RichMenu
	if err := c.doInto(ctx, http.MethodGet, "/richmenu/"+url.PathEscape(richMenuID), nil, &menu); err != nil {
		return nil, err
	}
	return &menu, nil
}

// CreateMenu creates menu and returns the ID LINE assigned to it. Any
// RichMenuID already set on menu is not sent.
func (c *Client) CreateMenu(ctx context.Context, menu *RichMenu) (string, error) {
	if _, err := c.credential(); err != nil {
		return "", err
	}
	if menu == nil {
		return "", errValidation("rich menu definition is required")
	}
	def := *menu
	def.RichMenuID = ""

	var out struct {
		RichMenuID string `json:"richMenuId"`
	}
	if err := c.doInto(ctx, http.MethodPost, "/richmenu", &def, &out); err != nil {
		return "", err
	}
	if out.RichMenuID == "" {
		return "", &Error{Kind: KindUnknown, StatusCode: http.StatusOK, Message: "LINE API returned no richMenuId"}
	}

	logger.InfoCF("richmenu", "Rich menu created", map[string]interface{}{
		logger.FieldRichMenuID: out.RichMenuID,
		logger.FieldName:       def.Name,
	})
	return out.RichMenuID, nil
}

// ValidateMenu asks LINE to check menu without creating it.
func (c *Client) ValidateMenu(ctx context.Context, menu *RichMenu) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if menu == nil {
		return errValidation("rich menu definition is required")
	}
	def := *menu
	def.RichMenuID = ""
	_, err := c.Do(ctx, http.MethodPost, "/richmenu/validate", &def)
	return err
}

func (c *Client) DeleteMenu(ctx context.Context, richMenuID string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if richMenuID == "" {
		return errValidation("rich menu ID is required")
	}
	if _, err := c.Do(ctx, http.MethodDelete, "/richmenu/"+url.PathEscape(richMenuID), nil); err != nil {
		return err
	}
	logger.InfoCF("richmenu", "Rich menu deleted", map[string]interface{}{
		logger.FieldRichMenuID: richMenuID,
	})
	return nil
}
