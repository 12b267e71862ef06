package matching

import "github.com/Freeeeeet/tutor_matching/internal/model"

// SlotChoice - слот учителя и число учеников, чья доступность его пересекает
type SlotChoice struct {
	Slot  model.TimeSlot `json:"slot"`
	Count int            `json:"count"`
}

// BestSlot перебирает доступность учителя по порядку и возвращает слот,
// пересекающийся с доступностью наибольшего числа учеников. При равенстве
// побеждает первый слот. Слот с Count == 0 тоже возвращается - решает вызывающий.
// ok == false только если у учителя нет доступности.
func BestSlot(tutor *model.Tutor, students []*model.Student) (choice SlotChoice, ok bool) {
	if tutor == nil || len(tutor.Availability) == 0 {
		return SlotChoice{}, false
	}

	best := SlotChoice{Slot: tutor.Availability[0], Count: -1}
	for _, slot := range tutor.Availability {
		count := 0
		for _, s := range students {
			if s != nil && s.AvailableAt(slot) {
				count++
			}
		}
		if count > best.Count {
			best = SlotChoice{Slot: slot, Count: count}
		}
	}

	return best, true
}

// Covered возвращает учеников, чья доступность пересекает слот, в исходном порядке
func Covered(slot model.TimeSlot, students []*model.Student) []*model.Student {
	var covered []*model.Student
	for _, s := range students {
		if s != nil && s.AvailableAt(slot) {
			covered = append(covered, s)
		}
	}
	return covered
}
