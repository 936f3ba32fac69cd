package port

import (
	"context"
	"io"
	"time"
)

type FileStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	GetURL(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

// RawAttachment is an attachment as submitted by the caller. File is base64 encoded.
type RawAttachment struct {
	FileName    string `json:"fileName"`
	File        string `json:"file"`
	Extension   string `json:"extension"`
	ContentType string `json:"contentType,omitempty"`
}

// AttachmentStore persists attachment content and returns a retrievable reference.
type AttachmentStore interface {
	Store(ctx context.Context, a RawAttachment) (string, error)
}

// TemplateRenderer renders the template at route with the given context.
type TemplateRenderer interface {
	Render(ctx context.Context, route string, data map[string]any) (string, error)
}
