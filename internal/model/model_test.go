package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoliday_DisplayName(t *testing.T) {
	assert.Equal(t, "Diwali", Holiday{Name: "Diwali", LocalName: "Deepavali"}.DisplayName())
	assert.Equal(t, "Deepavali", Holiday{Name: " ", LocalName: "Deepavali"}.DisplayName())
}

func TestHoliday_JSONShape(t *testing.T) {
	h := Holiday{
		Date:      time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC),
		Name:      "Republic Day",
		LocalName: "Republic Day",
	}

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-01-26","name":"Republic Day","localName":"Republic Day"}`, string(data))

	var back Holiday
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Date.Equal(h.Date))
}

func TestHoliday_UnmarshalRejectsBadDate(t *testing.T) {
	var h Holiday
	err := json.Unmarshal([]byte(`{"date":"26/01/2026","name":"x"}`), &h)
	assert.Error(t, err)
}

func TestMidnight(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got := Midnight(time.Date(2026, 10, 19, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, loc), got)
}
