package milestone

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ok := Milestone{
		ID:        "m1",
		ProjectID: "p1",
		Name:      "Sprint 1",
		StartDate: NewDate(2024, time.March, 1),
		EndDate:   NewDate(2024, time.March, 1),
		Status:    StatusOpen,
	}
	require.NoError(t, ok.Validate(), "same-day milestones are allowed")

	reversed := ok
	reversed.EndDate = NewDate(2024, time.February, 28)
	assert.Error(t, reversed.Validate())

	noDates := ok
	noDates.StartDate = Date{}
	assert.Error(t, noDates.Validate())

	blank := ok
	blank.Name = "  "
	assert.Error(t, blank.Validate())
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Start Date `json:"startDate"`
		End   Date `json:"endDate"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"startDate":"2024-05-01","endDate":null}`), &payload))
	assert.Equal(t, NewDate(2024, time.May, 1), payload.Start)
	assert.True(t, payload.End.IsZero())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"startDate":"2024-05-01","endDate":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"startDate":"01/05/2024"}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"startDate":20240501}`), &payload))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 7, 9, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, "2024-07-09", d.String())

	require.NoError(t, d.Scan("2024-07-10T00:00:00Z"))
	assert.Equal(t, "2024-07-10", d.String())

	require.NoError(t, d.Scan([]byte("2024-07-11")))
	assert.Equal(t, "2024-07-11", d.String())

	assert.Error(t, d.Scan(42))

	v, err := NewDate(2024, time.July, 12).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-07-12", v)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("activate")
	require.NoError(t, err)
	assert.Equal(t, ActionActivate, a)

	_, err = ParseAction("")
	assert.Error(t, err)
	_, err = ParseAction("REOPEN")
	assert.Error(t, err)
}

func TestStatusCurrent(t *testing.T) {
	assert.True(t, StatusOpen.Current())
	assert.True(t, StatusActive.Current())
	assert.False(t, StatusClosed.Current())

	s, err := ParseStatus("closed")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, s)
}
