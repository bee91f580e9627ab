package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusNew, StatusAccepted},
		{StatusAccepted, StatusInProgress},
		{StatusInProgress, StatusDone},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	rejected := [][2]Status{
		{StatusNew, StatusDone},
		{StatusNew, StatusInProgress},
		{StatusAccepted, StatusNew},
		{StatusDone, StatusNew},
		{StatusDone, StatusDone},
		{StatusInProgress, StatusInProgress},
	}
	for _, pair := range rejected {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}

func TestWithAssigneeIsASet(t *testing.T) {
	tk := Ticket{ID: "t1", AssigneeLogins: []string{"dev"}}
	out := tk.WithAssignee("dev").WithAssignee("lead")

	assert.Equal(t, []string{"dev", "lead"}, out.AssigneeLogins)
	assert.Equal(t, []string{"dev"}, tk.AssigneeLogins)
	assert.True(t, out.IsAssignedTo("lead"))
	assert.False(t, tk.IsAssignedTo("lead"))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("BLOCKED")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := Ticket{ID: "t", ProjectID: "p", MilestoneID: "m", Title: "x", Status: StatusNew}
	assert.NoError(t, ok.Validate())

	noMilestone := ok
	noMilestone.MilestoneID = ""
	assert.Error(t, noMilestone.Validate())
}
