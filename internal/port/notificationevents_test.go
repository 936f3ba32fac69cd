package port

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientsUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Recipients
		wantErr bool
	}{
		{"single", `"a@x.io"`, Recipients{"a@x.io"}, false},
		{"joined string", `"a@x.io; b@x.io"`, Recipients{"a@x.io", "b@x.io"}, false},
		{"array", `["a@x.io","b@x.io"]`, Recipients{"a@x.io", "b@x.io"}, false},
		{"empty string", `""`, Recipients{}, false},
		{"null", `null`, nil, false},
		{"number", `12`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Recipients
			err := json.Unmarshal([]byte(tt.in), &r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}
}

func TestUpdateRequestLastError(t *testing.T) {
	var absent, null, set UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":1}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"lastError":null}`), &null))
	require.NoError(t, json.Unmarshal([]byte(`{"lastError":"smtp timeout"}`), &set))

	assert.False(t, absent.LastError.Set)
	assert.True(t, null.LastError.Set)
	assert.True(t, null.LastError.Null)
	assert.Equal(t, "smtp timeout", set.LastError.Value)
	assert.Nil(t, absent.SendTo)
}

func TestCallerApplicationRef(t *testing.T) {
	assert.Nil(t, Caller{Admin: true, ApplicationID: 3}.ApplicationRef())
	ref := Caller{ApplicationID: 3}.ApplicationRef()
	require.NotNil(t, ref)
	assert.Equal(t, int64(3), *ref)
}
