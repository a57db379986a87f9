package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

var httpClient = &http.Client{}

// UploadToPresignedURL PUTs body to a presigned storage URL.
func UploadToPresignedURL(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
