package storage

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/adapter/storage/memory"
	"github.com/strogmv/notifyevents/internal/port"
)

func newTestStore(files port.FileStorage) *AttachmentStore {
	s := NewAttachmentStore(files, "/attachments/")
	s.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "fixed-id" }
	return s
}

func TestAttachmentStore_Store(t *testing.T) {
	files := memory.NewStorage()
	s := newTestStore(files)

	ref, err := s.Store(context.Background(), port.RawAttachment{FileName: "invoice.PDF", File: "aGVsbG8gd29ybGQ="})
	require.NoError(t, err)
	assert.Equal(t, "mem://attachments/2024/03/09/fixed-id.pdf", ref)
	assert.Equal(t, "application/pdf", files.ContentType("attachments/2024/03/09/fixed-id.pdf"))

	rc, err := files.Download(context.Background(), "attachments/2024/03/09/fixed-id.pdf")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestAttachmentStore_DeclaredTypeAndExtension(t *testing.T) {
	files := memory.NewStorage()
	s := newTestStore(files)

	_, err := s.Store(context.Background(), port.RawAttachment{
		FileName: "report", File: "data:text/csv;base64,YSxiCjEsMg==", Extension: ".CSV", ContentType: "text/csv",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"attachments/2024/03/09/fixed-id.csv"}, files.Keys())
	assert.Equal(t, "text/csv", files.ContentType("attachments/2024/03/09/fixed-id.csv"))
}

func TestAttachmentStore_RejectsInvalidContent(t *testing.T) {
	files := memory.NewStorage()
	s := newTestStore(files)

	_, err := s.Store(context.Background(), port.RawAttachment{FileName: "a.txt", File: ""})
	require.Error(t, err)

	_, err = s.Store(context.Background(), port.RawAttachment{FileName: "a.txt", File: "%%% not base64 %%%"})
	require.Error(t, err)
	assert.Empty(t, files.Keys())
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", contentType("", ""))
	assert.Equal(t, "application/octet-stream", contentType("", "zzunknown"))
	assert.Equal(t, "image/png", contentType("", "png"))
	assert.Equal(t, "application/json", contentType("application/json", "png"))
}
