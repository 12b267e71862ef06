package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Freeeeeet/tutor_matching/internal/model"
)

func slot(day, start, end string) model.TimeSlot {
	return model.TimeSlot{Day: day, StartTime: start, EndTime: end}
}

func TestToMinutes(t *testing.T) {
	cases := map[string]int{
		"00:00":  0,
		"10:30":  630,
		"23:59":  1439,
		"9":      540,
		"":       0,
		"ab:15":  15,
		"10:xx":  600,
		" 8:05 ": 485,
		"24:00":  0,
		"-1:00":  0,
	}
	for input, expected := range cases {
		assert.Equal(t, expected, model.ToMinutes(input), "input %q", input)
	}
}

func TestTimeSlot_Overlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b model.TimeSlot
		want bool
	}{
		{"identical", slot("Monday", "10:00", "11:00"), slot("Monday", "10:00", "11:00"), true},
		{"partial", slot("Monday", "10:00", "11:00"), slot("Monday", "10:30", "12:00"), true},
		{"contained", slot("Monday", "09:00", "12:00"), slot("Monday", "10:00", "11:00"), true},
		{"touching edges", slot("Monday", "10:00", "11:00"), slot("Monday", "11:00", "12:00"), false},
		{"disjoint", slot("Monday", "08:00", "09:00"), slot("Monday", "10:00", "11:00"), false},
		{"different day", slot("Monday", "10:00", "11:00"), slot("Tuesday", "10:00", "11:00"), false},
		{"day case and spaces", slot(" monday ", "10:00", "11:00"), slot("MONDAY", "10:15", "10:45"), true},
		{"malformed times", slot("Monday", "xx", "yy"), slot("Monday", "10:00", "11:00"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			// overlap is symmetric
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a))
		})
	}
}

func TestTimeSlot_OverlapsNeverAcrossDays(t *testing.T) {
	days := []string{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday, model.Saturday, model.Sunday}
	for _, d1 := range days {
		for _, d2 := range days {
			if d1 == d2 {
				continue
			}
			assert.False(t, slot(d1, "00:00", "23:59").Overlaps(slot(d2, "00:00", "23:59")), "%s vs %s", d1, d2)
		}
	}
}

func TestTimeSlot_Equal(t *testing.T) {
	assert.True(t, slot("Monday", "10:00", "11:00").Equal(slot(" monday", "10:00", "11:00")))
	assert.False(t, slot("Monday", "10:00", "11:00").Equal(slot("Monday", "10:00", "11:30")))
	// literal compare: "9:00" and "09:00" are the same minute but not the same slot
	assert.False(t, slot("Monday", "9:00", "10:00").Equal(slot("Monday", "09:00", "10:00")))
	assert.False(t, slot("Monday", "10:00", "11:00").Equal(slot("Tuesday", "10:00", "11:00")))
}

func TestTutor_DefaultSlot(t *testing.T) {
	tutor := &model.Tutor{}
	assert.Equal(t, model.DefaultTimeSlot(), tutor.DefaultSlot())

	tutor.Availability = []model.TimeSlot{slot("Friday", "15:00", "16:00"), slot("Monday", "10:00", "11:00")}
	assert.Equal(t, slot("Friday", "15:00", "16:00"), tutor.DefaultSlot())
}

func TestApplication_PrimarySubject(t *testing.T) {
	app := &model.Application{Subjects: []model.ApplicationSubject{{Name: "  "}, {Name: " Math ", Medium: "English"}, {Name: "Physics"}}}

	subject, ok := app.PrimarySubject()
	assert.True(t, ok)
	assert.Equal(t, "Math", subject)
	assert.Equal(t, []string{"Math", "Physics"}, app.SubjectNames())

	_, ok = (&model.Application{}).PrimarySubject()
	assert.False(t, ok)
}
