package client

import (
	"context"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
)

// Client is the remote record contract. Record operations are scoped by
// kind; ListRecords returns the owner's records newest first.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*models.Session, error)

	CreateRecord(ctx context.Context, kind models.Kind, payload models.Fields) (*models.Record, error)
	ListRecords(ctx context.Context, kind models.Kind, ownerID string) ([]*models.Record, error)
	GetRecord(ctx context.Context, kind models.Kind, id string) (*models.Record, error)
	UpdateRecord(ctx context.Context, kind models.Kind, id string, patch models.Fields) (*models.Record, error)
	DeleteRecord(ctx context.Context, kind models.Kind, id string) error

	// PresignPhotoUpload returns a storage key and a URL the photo can be PUT to.
	PresignPhotoUpload(ctx context.Context, contentType string) (key, url string, err error)
}
