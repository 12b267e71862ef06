package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/Freeeeeet/tutor_matching/internal/service"
)

func TestEnsureClass_IdempotentForSameArguments(t *testing.T) {
	// GIVEN
	h := newHarness()
	ctx := context.Background()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10}, 3)
	student := h.addStudent("Ann", []string{"Math"}, mon10)
	requested := mon10

	// WHEN
	first, err := h.resolver.EnsureClass(ctx, tutor, student, "Math", &requested)
	require.NoError(t, err)
	second, err := h.resolver.EnsureClass(ctx, tutor, student, "Math", &requested)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, first.Class.ID, second.Class.ID)
	assert.True(t, first.ClassCreated)
	assert.False(t, second.ClassCreated)
	assert.False(t, second.StudentAdded)

	classes := h.classes(tutor.ID)
	require.Len(t, classes, 1)
	assert.Equal(t, []model.StudentID{student.ID}, classes[0].Students)
}

func TestEnsureClass_NewSlotDoesNotMoveExistingClass(t *testing.T) {
	// GIVEN class C1 created at the tutor's default slot
	h := newHarness()
	ctx := context.Background()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10, tue15}, 3)
	s1 := h.addStudent("Ann", []string{"Math"}, mon10)
	s2 := h.addStudent("Cid", []string{"Math"}, tue15)

	c1, err := h.resolver.EnsureClass(ctx, tutor, s1, "Math", nil)
	require.NoError(t, err)
	assert.Equal(t, mon10, c1.Class.Schedule)

	// WHEN a new student asks for another slot
	requested := tue15
	c2, err := h.resolver.EnsureClass(ctx, tutor, s2, "Math", &requested)
	require.NoError(t, err)

	// THEN a second class exists and C1 is untouched
	assert.NotEqual(t, c1.Class.ID, c2.Class.ID)
	assert.Equal(t, tue15, c2.Class.Schedule)

	classes := h.classes(tutor.ID)
	require.Len(t, classes, 2)
	assert.Equal(t, c1.Class.ID, classes[0].ID)
	assert.Equal(t, mon10, classes[0].Schedule)
	assert.Equal(t, []model.StudentID{s1.ID}, classes[0].Students)
	assert.Equal(t, []model.StudentID{s2.ID}, classes[1].Students)
}

func TestEnsureClass_ExactSlotMatchExtendsRoster(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10}, 3)
	s1 := h.addStudent("Ann", nil, mon10)
	s2 := h.addStudent("Cid", nil, mon10)
	requested := mon10

	first, err := h.resolver.EnsureClass(ctx, tutor, s1, "Math", &requested)
	require.NoError(t, err)
	// subject matched case-insensitively, day normalized
	other := slot(" monday", "10:00", "11:00")
	second, err := h.resolver.EnsureClass(ctx, tutor, s2, " math ", &other)
	require.NoError(t, err)

	assert.Equal(t, first.Class.ID, second.Class.ID)
	assert.True(t, second.StudentAdded)
	assert.Equal(t, []model.StudentID{s1.ID, s2.ID}, h.classes(tutor.ID)[0].Students)
}

func TestEnsureClass_HardDefaultSlot(t *testing.T) {
	h := newHarness()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, nil, 1)
	student := h.addStudent("Ann", nil)

	enrollment, err := h.resolver.EnsureClass(context.Background(), tutor, student, "Math", nil)

	require.NoError(t, err)
	assert.Equal(t, model.DefaultTimeSlot(), enrollment.Class.Schedule)
	assert.Equal(t, model.ClassStatusScheduled, enrollment.Class.Status)
	assert.Equal(t, "Math - Bob Smith", enrollment.Class.Title)
	assert.True(t, strings.HasPrefix(enrollment.Class.SessionLink, "https://"+meetingHost+"/room-"))
}

func TestEnsureClass_SlotFallbackKeepsStudentInOwnClass(t *testing.T) {
	// GIVEN the student already sits in a Monday class
	h := newHarness()
	ctx := context.Background()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10, tue15}, 3)
	student := h.addStudent("Ann", nil, mon10, tue15)
	first, err := h.resolver.EnsureClass(ctx, tutor, student, "Math", nil)
	require.NoError(t, err)

	// WHEN asked again without a slot
	again, err := h.resolver.EnsureClass(ctx, tutor, student, "Math", nil)

	// THEN nothing changes
	require.NoError(t, err)
	assert.Equal(t, first.Class.ID, again.Class.ID)
	assert.Len(t, h.classes(tutor.ID), 1)
}

func TestEnsureClass_PrefersSubjectClassContainingStudent(t *testing.T) {
	h := newHarness()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10}, 3)
	student := h.addStudent("Ann", nil, tue15)

	h.db.PutClass(model.Class{ID: model.NewClassID(), TutorID: tutor.ID, Subject: "Math", Schedule: mon10, Title: "Math - Bob", SessionLink: "https://" + meetingHost + "/a"})
	own := model.Class{ID: model.NewClassID(), TutorID: tutor.ID, Subject: "Math", Schedule: tue15, Title: "Math - Bob", SessionLink: "https://" + meetingHost + "/b", Students: []model.StudentID{student.ID}}
	h.db.PutClass(own)

	enrollment, err := h.resolver.EnsureClass(context.Background(), tutor, student, "Math", nil)

	require.NoError(t, err)
	assert.Equal(t, own.ID, enrollment.Class.ID)
	assert.False(t, enrollment.StudentAdded)
}

func TestEnsureClass_RepairsPlaceholderTitleAndForeignLink(t *testing.T) {
	// GIVEN a legacy class with a generated title and a link to another host
	h := newHarness()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10}, 3)
	student := h.addStudent("Ann", nil, mon10)
	legacy := model.Class{
		ID:          model.NewClassID(),
		TutorID:     tutor.ID,
		Subject:     "Math",
		Schedule:    mon10,
		Title:       "Math - 64b7f0c2e4a1d3f5b6c7d8e9",
		SessionLink: "https://zoom.example.com/j/1",
	}
	h.db.PutClass(legacy)

	// WHEN
	enrollment, err := h.resolver.EnsureClass(context.Background(), tutor, student, "Math", nil)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, enrollment.Class.ID)
	assert.True(t, enrollment.StudentAdded)

	stored := h.classes(tutor.ID)[0]
	assert.Equal(t, "Math - Bob Smith", stored.Title)
	assert.True(t, h.resolver.IsCanonicalLink(stored.SessionLink))
	assert.Equal(t, []model.StudentID{student.ID}, stored.Students)
}

func TestEnsureClass_KeepsGoodMetadata(t *testing.T) {
	h := newHarness()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10}, 3)
	student := h.addStudent("Ann", nil, mon10)
	link := "https://" + meetingHost + "/room-keep"
	h.db.PutClass(model.Class{ID: model.NewClassID(), TutorID: tutor.ID, Subject: "Math", Schedule: mon10, Title: "Algebra club", SessionLink: link})

	_, err := h.resolver.EnsureClass(context.Background(), tutor, student, "Math", nil)
	require.NoError(t, err)

	stored := h.classes(tutor.ID)[0]
	assert.Equal(t, "Algebra club", stored.Title)
	assert.Equal(t, link, stored.SessionLink)
}

func TestEnsureClass_DisplayNameFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("tutor profile name", func(t *testing.T) {
		h := newHarness()
		tutor := &model.Tutor{ID: model.NewTutorID(), Name: "Dr. Who", Subjects: []string{"Math"}, Status: model.TutorStatusActive}
		h.db.PutTutor(*tutor)

		enrollment, err := h.resolver.EnsureClass(ctx, tutor, h.addStudent("Ann", nil), "Math", nil)
		require.NoError(t, err)
		assert.Equal(t, "Math - Dr. Who", enrollment.Class.Title)
	})

	t.Run("sibling class title", func(t *testing.T) {
		h := newHarness()
		tutor := &model.Tutor{ID: model.NewTutorID(), Subjects: []string{"Math", "Physics"}, Status: model.TutorStatusActive}
		h.db.PutTutor(*tutor)
		h.db.PutClass(model.Class{ID: model.NewClassID(), TutorID: tutor.ID, Subject: "Physics", Schedule: tue15, Title: "Physics - Jane Roe"})

		enrollment, err := h.resolver.EnsureClass(ctx, tutor, h.addStudent("Ann", nil), "Math", nil)
		require.NoError(t, err)
		assert.Equal(t, "Math - Jane Roe", enrollment.Class.Title)
	})

	t.Run("group", func(t *testing.T) {
		h := newHarness()
		tutor := &model.Tutor{ID: model.NewTutorID(), Subjects: []string{"Math"}, Status: model.TutorStatusActive}
		h.db.PutTutor(*tutor)

		enrollment, err := h.resolver.EnsureClass(ctx, tutor, h.addStudent("Ann", nil), "Math", nil)
		require.NoError(t, err)
		assert.Equal(t, "Math - Group", enrollment.Class.Title)
	})
}

func TestEnsureClass_ConcurrentCallsCreateOneClass(t *testing.T) {
	h := newHarness()
	tutor := h.addTutor("Bob", "Smith", []string{"Math"}, []model.TimeSlot{mon10}, 3)

	const n = 8
	students := make([]*model.Student, n)
	for i := range students {
		students[i] = h.addStudent("S", nil, mon10)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range students {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			requested := mon10
			_, errs[i] = h.resolver.EnsureClass(context.Background(), tutor, students[i], "Math", &requested)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	classes := h.classes(tutor.ID)
	require.Len(t, classes, 1)
	assert.Len(t, classes[0].Students, n)
}

func TestIsPlaceholderTitle(t *testing.T) {
	assert.True(t, service.IsPlaceholderTitle("Math - 64b7f0c2e4a1d3f5b6c7d8e9"))
	assert.True(t, service.IsPlaceholderTitle("64B7F0C2E4A1D3F5B6C7D8E9 "))
	assert.False(t, service.IsPlaceholderTitle("Math - Bob Smith"))
	assert.False(t, service.IsPlaceholderTitle("Math - 64b7f0c2e4a1"))
}

func TestLocalLocker_RespectsContext(t *testing.T) {
	locker := service.NewLocalLocker()
	id := model.NewTutorID()

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, id)
	assert.ErrorIs(t, err, context.Canceled)

	// other tutors are not blocked
	unlockOther, err := locker.Lock(context.Background(), model.NewTutorID())
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlock2, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)
	unlock2()
}
