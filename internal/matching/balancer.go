// Package matching содержит решения о назначении: выбор учителя по нагрузке
// и выбор слота учителя, покрывающего больше всего учеников.
package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/Freeeeeet/tutor_matching/internal/model"
)

// LoadCounter считает нагрузку учителя: сумму записанных учеников по всем его классам
type LoadCounter interface {
	CountEnrolledStudents(ctx context.Context, tutorID model.TutorID) (int, error)
}

// Candidate - учитель с посчитанной нагрузкой
type Candidate struct {
	Tutor *model.Tutor
	Load  int
}

// Balancer выбирает наименее загруженного учителя. Жадный: каждая группа
// предметов в батче балансируется независимо, совместной оптимизации нет.
type Balancer struct {
	loads LoadCounter
}

func NewBalancer(loads LoadCounter) *Balancer {
	return &Balancer{loads: loads}
}

// Eligible оставляет учителей, которые ведут предмет и могут быть назначены.
// Если у кого-то из них заполнена доступность, остальные отбрасываются.
func Eligible(subject string, tutors []*model.Tutor) []*model.Tutor {
	var matched, withAvailability []*model.Tutor
	for _, t := range tutors {
		if t == nil || !t.Teaches(subject) || !t.IsAssignable() {
			continue
		}
		matched = append(matched, t)
		if len(t.Availability) > 0 {
			withAvailability = append(withAvailability, t)
		}
	}

	if len(withAvailability) > 0 {
		return withAvailability
	}
	return matched
}

// Rank сортирует по возрастанию нагрузки, при равенстве - по убыванию опыта.
// Сортировка стабильная: при полном равенстве сохраняется входной порядок.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Load != ranked[j].Load {
			return ranked[i].Load < ranked[j].Load
		}
		return ranked[i].Tutor.ExperienceYears > ranked[j].Tutor.ExperienceYears
	})

	return ranked
}

// Candidates возвращает отранжированных кандидатов на предмет
func (b *Balancer) Candidates(ctx context.Context, subject string, tutors []*model.Tutor) ([]Candidate, error) {
	eligible := Eligible(subject, tutors)

	candidates := make([]Candidate, 0, len(eligible))
	for _, t := range eligible {
		load, err := b.loads.CountEnrolledStudents(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("count load for tutor %s: %w", t.ID, err)
		}
		candidates = append(candidates, Candidate{Tutor: t, Load: load})
	}

	return Rank(candidates), nil
}

// SelectTutor возвращает лучшего кандидата или nil, если кандидатов нет
func (b *Balancer) SelectTutor(ctx context.Context, subject string, tutors []*model.Tutor) (*model.Tutor, error) {
	candidates, err := b.Candidates(ctx, subject, tutors)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return candidates[0].Tutor, nil
}
