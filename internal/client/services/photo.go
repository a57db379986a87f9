package services

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/netx"
)

var upload = netx.UploadToPresignedURL

// PhotoService turns a local photo file into the reference stored on a record.
type PhotoService struct {
	remote client.Client
	oracle netx.Oracle
	log    logging.Logger
}

func NewPhotoService(remote client.Client, oracle netx.Oracle, log logging.Logger) *PhotoService {
	if log == nil {
		log = logging.Discard()
	}
	return &PhotoService{remote: remote, oracle: oracle, log: log}
}

// Attach uploads the file at path and returns its storage key. When the
// backend is unreachable or the upload fails the local path is returned so
// the record can still be saved.
func (p *PhotoService) Attach(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	local, err := filepath.Abs(path)
	if err != nil {
		local = path
	}

	if !p.oracle.IsConnected(ctx) {
		return local, nil
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key, url, err := p.remote.PresignPhotoUpload(ctx, contentType)
	if err != nil {
		p.log.Warn(ctx, "photo presign failed, keeping local path", "error", err)
		return local, nil
	}
	if err := upload(ctx, url, contentType, data); err != nil {
		p.log.Warn(ctx, "photo upload failed, keeping local path", "error", err)
		return local, nil
	}
	return key, nil
}
