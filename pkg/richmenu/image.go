package richmenu

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/YspCoder/menuctl/pkg/logger"
)

// ContentTypeForPath picks the upload MIME type from a file extension.
// Anything that is not .jpg or .jpeg is sent as PNG.
func ContentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return ContentTypeJPEG
	default:
		return ContentTypePNG
	}
}

// sniffContentType falls back to PNG unless the data looks like JPEG.
// normalizeContentType reduces "IMAGE/PNG; charset=binary" to "image/png".
func normalizeContentType(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func sniffContentType(data []byte) string {
	if http.DetectContentType(data) == ContentTypeJPEG {
		return ContentTypeJPEG
	}
	return ContentTypePNG
}

// UploadImage attaches image data to a menu. An empty contentType is
// detected from the data. Size and type are checked before anything is sent.
func (c *Client) UploadImage(ctx context.Context, richMenuID string, data []byte, contentType string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if richMenuID == "" {
		return errValidation("rich menu ID is required")
	}
	if len(data) == 0 {
		return errValidation("image data is empty")
	}
	if len(data) > c.maxImageBytes {
		return errValidation("image is %d bytes, limit is %d", len(data), c.maxImageBytes)
	}
	if contentType == "" {
		contentType = sniffContentType(data)
	}
	contentType = normalizeContentType(contentType)
	if !c.allowedTypes[contentType] {
		return errValidation("unsupported image type %q", contentType)
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		base:        c.dataAPIBase,
		path:        "/richmenu/" + url.PathEscape(richMenuID) + "/content",
		body:        data,
		contentType: contentType,
	})
	if err != nil {
		return err
	}
	if _, err := normalize(resp); err != nil {
		return err
	}

	logger.InfoCF("richmenu", "Rich menu image uploaded", map[string]interface{}{
		logger.FieldRichMenuID:  richMenuID,
		logger.FieldBytes:       len(data),
		logger.FieldContentType: contentType,
	})
	return nil
}

// UploadImageFile reads path and uploads it with a type derived from its
// extension.
func (c *Client) UploadImageFile(ctx context.Context, richMenuID, path string) error {
	if _, err := c.credential(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		return errValidation("image path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errValidation("invalid image path %q: %v", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errValidation("image file not found: %s", abs)
	}
	if info.IsDir() {
		return errValidation("image path is a directory: %s", abs)
	}
	if info.Size() > int64(c.maxImageBytes) {
		return errValidation("image is %d bytes, limit is %d", info.Size(), c.maxImageBytes)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return errValidation("failed to read image file %s: %v", abs, err)
	}
	return c.UploadImage(ctx, richMenuID, data, ContentTypeForPath(abs))
}

// DownloadImage fetches the menu image unmodified.
func (c *Client) DownloadImage(ctx context.Context, richMenuID string) (*Image, error) {
	if _, err := c.credential(); err != nil {
		return nil, err
	}
	if richMenuID == "" {
		return nil, errValidation("rich menu ID is required")
	}
	resp, err := c.send(ctx, request{
		method: http.MethodGet,
		base:   c.dataAPIBase,
		path:   "/richmenu/" + url.PathEscape(richMenuID) + "/content",
	})
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, newStatusError(resp.status, resp.body)
	}

	contentType := resp.header.Get("Content-Type")
	if contentType == "" {
		contentType = sniffContentType(resp.body)
	}
	return &Image{ContentType: contentType, Data: resp.body}, nil
}
