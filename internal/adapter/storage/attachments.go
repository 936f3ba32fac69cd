// Package storage turns submitted attachments into stored object references.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strogmv/notifyevents/internal/port"
)

// AttachmentStore decodes base64 attachments and uploads them to a FileStorage.
type AttachmentStore struct {
	files  port.FileStorage
	prefix string
	now    func() time.Time
	newID  func() string
}

func NewAttachmentStore(files port.FileStorage, prefix string) *AttachmentStore {
	return &AttachmentStore{
		files:  files,
		prefix: strings.Trim(prefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Store uploads a and returns the reference a channel worker can fetch it by.
func (s *AttachmentStore) Store(ctx context.Context, a port.RawAttachment) (string, error) {
	data, err := decodeFile(a.File)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", a.FileName, err)
	}
	ext := normalizeExtension(a.Extension, a.FileName)
	key := s.objectKey(ext)

	if _, err := s.files.Upload(ctx, key, bytes.NewReader(data), contentType(a.ContentType, ext)); err != nil {
		return "", err
	}
	return s.files.GetURL(ctx, key)
}

func (s *AttachmentStore) objectKey(ext string) string {
	name := s.newID()
	if ext != "" {
		name += "." + ext
	}
	return path.Join(s.prefix, s.now().Format("2006/01/02"), name)
}

// decodeFile accepts standard or URL-safe base64, with or without a data: URI header.
func decodeFile(file string) ([]byte, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return nil, fmt.Errorf("file content is empty")
	}
	if strings.HasPrefix(file, "data:") {
		if i := strings.Index(file, ","); i >= 0 {
			file = file[i+1:]
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(file); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("file content is not base64")
}

func normalizeExtension(ext, fileName string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	}
	return ext
}

func contentType(declared, ext string) string {
	if declared != "" {
		return declared
	}
	if ext != "" {
		if ct := mime.TypeByExtension("." + ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

var _ port.AttachmentStore = (*AttachmentStore)(nil)
