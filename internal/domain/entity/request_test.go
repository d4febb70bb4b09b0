package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

func TestComputeHours(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		want    float64
		wantErr bool
	}{
		{"whole hours", "09:00", "12:00", 3, false},
		{"half hour", "18:00", "20:30", 2.5, false},
		{"equal", "09:00", "09:00", 0, true},
		{"reversed", "12:00", "09:00", 0, true},
		{"bad clock", "9am", "12:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeHours(tt.start, tt.end)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps("11:00", "13:00", "09:00", "12:00"))
	assert.False(t, Overlaps("12:00", "14:00", "09:00", "12:00"))
	assert.False(t, Overlaps("07:00", "09:00", "09:00", "12:00"))
	assert.True(t, Overlaps("08:00", "13:00", "09:00", "12:00"))
}

func TestClassifyDate(t *testing.T) {
	assert.Equal(t, DayTypeSaturday, ClassifyDate(day("2024-03-02"), false))
	assert.Equal(t, DayTypeSunday, ClassifyDate(day("2024-03-03"), false))
	assert.Equal(t, DayTypeWeekday, ClassifyDate(day("2024-03-04"), false))
	assert.Equal(t, DayTypePublicHoliday, ClassifyDate(day("2024-03-03"), true))
}

func TestLatestRejectionRemark(t *testing.T) {
	r := &OvertimeRequest{
		Supervisor:       StageStamp{Remarks: "sup"},
		HR:               StageStamp{Remarks: "hr"},
		RejectionRemarks: "fallback",
	}
	assert.Equal(t, "hr", r.LatestRejectionRemark())

	r.Management.Remarks = "  "
	assert.Equal(t, "hr", r.LatestRejectionRemark())

	r.Management.Remarks = "board"
	assert.Equal(t, "board", r.LatestRejectionRemark())

	assert.Equal(t, "fallback", (&OvertimeRequest{RejectionRemarks: "fallback"}).LatestRejectionRemark())
}

func TestStamp(t *testing.T) {
	r := &OvertimeRequest{}
	r.Stamp(workflow.StageHR).ActorID = "hr-1"
	assert.Equal(t, "hr-1", r.HR.ActorID)
	assert.Nil(t, r.Stamp(workflow.Stage("nope")))
}

func TestViolationKey(t *testing.T) {
	th := &ApprovalThreshold{ID: 12}
	assert.Equal(t, "threshold-12:weekly_hours", th.ViolationKey(ViolationWeeklyHours))
}
