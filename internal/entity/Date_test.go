package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2024, time.June, 15)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-06-15"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.True(t, parsed.Equal(d.Time))
}

func TestDate_UnmarshalRejectsBadFormat(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"15/06/2024"`), &d))
}

func TestDateOf_TruncatesTime(t *testing.T) {
	d := DateOf(time.Date(2024, time.June, 15, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, "2024-06-15", d.String())
}

func TestDate_Before(t *testing.T) {
	earlier := NewDate(2024, time.June, 14)
	later := NewDate(2024, time.June, 15)

	assert.True(t, earlier.Before(later))
	assert.False(t, later.Before(earlier))
	assert.False(t, later.Before(later))
}
