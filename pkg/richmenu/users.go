package richmenu

import (
	"context"
	"net/http"
	"net/url"

	"github.com/YspCoder/menuctl/pkg/logger"
)

// GetDefaultMenu returns the ID of the menu shown to users without their own
// binding. LINE answers 404 when no default is set.
func (c *Client) GetDefaultMenu(ctx context.Context) (string, error) {
	var out struct {
		RichMenuID string `json:"richMenuId"`
	}
	if err := c.doInto(ctx, http.MethodGet, "/user/all/richmenu", nil, &out); err != nil {
		return "", err
	}
	return out.RichMenuID, nil
}

func (c *Client) SetDefaultMenu(ctx context.Context, richMenuID string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if richMenuID == "" {
		return errValidation("rich menu ID is required")
	}
	if _, err := c.Do(ctx, http.MethodPost, "/user/all/richmenu/"+url.PathEscape(richMenuID), nil); err != nil {
		return err
	}
	logger.InfoCF("richmenu", "Default rich menu set", map[string]interface{}{
		logger.FieldRichMenuID: richMenuID,
	})
	return nil
}

func (c *Client) ClearDefaultMenu(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodDelete, "/user/all/richmenu", nil)
	return err
}

func (c *Client) GetUserMenu(ctx context.Context, userID string) (string, error) {
	if _, err := c.credential(); err != nil {
		return "", err
	}
	if userID == "" {
		return "", errValidation("user ID is required")
	}
	var out struct {
		RichMenuID string `json:"richMenuId"`
	}
	if err := c.doInto(ctx, http.MethodGet, "/user/"+url.PathEscape(userID)+"/richmenu", nil, &out); err != nil {
		return "", err
	}
	return out.RichMenuID, nil
}

func (c *Client) LinkUser(ctx context.Context, userID, richMenuID string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if userID == "" || richMenuID == "" {
		return errValidation("user ID and rich menu ID are required")
	}
	path := "/user/" + url.PathEscape(userID) + "/richmenu/" + url.PathEscape(richMenuID)
	_, err := c.Do(ctx, http.MethodPost, path, nil)
	return err
}

func (c *Client) UnlinkUser(ctx context.Context, userID string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if userID == "" {
		return errValidation("user ID is required")
	}
	_, err := c.Do(ctx, http.MethodDelete, "/user/"+url.PathEscape(userID)+"/richmenu", nil)
	return err
}

func (c *Client) checkUserIDs(userIDs []string) error {
	if len(userIDs) == 0 {
		return errValidation("at least one user ID is required")
	}
	if len(userIDs) > c.maxBulkUsers {
		return errValidation("%d user IDs given, limit is %d per request", len(userIDs), c.maxBulkUsers)
	}
	for i, id := range userIDs {
		if id == "" {
			return errValidation("user ID at index %d is empty", i)
		}
	}
	return nil
}

// BulkLink binds richMenuID to every user in userIDs.
func (c *Client) BulkLink(ctx context.Context, richMenuID string, userIDs []string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if richMenuID == "" {
		return errValidation("rich menu ID is required")
	}
	if err := c.checkUserIDs(userIDs); err != nil {
		return err
	}

	body := struct {
		RichMenuID string   `json:"richMenuId"`
		UserIDs    []string `json:"userIds"`
	}{richMenuID, userIDs}
	if _, err := c.Do(ctx, http.MethodPost, "/richmenu/bulk/link", body); err != nil {
		return err
	}
	logger.InfoCF("richmenu", "Rich menu bulk linked", map[string]interface{}{
		logger.FieldRichMenuID: richMenuID,
		logger.FieldUserCount:  len(userIDs),
	})
	return nil
}

func (c *Client) BulkUnlink(ctx context.Context, userIDs []string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if err := c.checkUserIDs(userIDs); err != nil {
		return err
	}

	body := struct {
		UserIDs []string `json:"userIds"`
	}{userIDs}
	_, err := c.Do(ctx, http.MethodPost, "/richmenu/bulk/unlink", body)
	return err
}
