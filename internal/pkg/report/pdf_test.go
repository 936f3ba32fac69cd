package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/notifyevents/internal/domain"
)

func TestGenerateEventReport(t *testing.T) {
	lastErr := "smtp 550"
	doc, err := NewGenerator().GenerateEventReport(EventReport{
		GeneratedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Filters:     [][2]string{{"Status", "failed"}},
		Events: []domain.NotificationEvent{
			{ID: 1, SendTo: "a@b.com", NotificationMediumID: 2, Status: domain.StatusFailed, Attempts: 3, LastError: &lastErr},
			{ID: 2, SendTo: "c@d.com", NotificationMediumID: 2, Status: domain.StatusPending},
		},
		Link: "https://notify.example.com/notification-events?status=2",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestGenerateEventReport_Empty(t *testing.T) {
	doc, err := NewGenerator().GenerateEventReport(EventReport{})
	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}
