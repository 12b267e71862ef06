package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Дни недели для TimeSlot.Day
const (
	Monday    = "Monday"
	Tuesday   = "Tuesday"
	Wednesday = "Wednesday"
	Thursday  = "Thursday"
	Friday    = "Friday"
	Saturday  = "Saturday"
	Sunday    = "Sunday"
)

const minutesPerDay = 24 * 60

// TimeSlot - еженедельный интервал по настенным часам. Все слоты в одном часовом поясе.
type TimeSlot struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"` // "HH:MM"
	EndTime   string `json:"end_time"`   // "HH:MM"
}

// DefaultTimeSlot - слот, если у учителя нет доступности и слот не задан
func DefaultTimeSlot() TimeSlot {
	return TimeSlot{Day: Monday, StartTime: "10:00", EndTime: "11:00"}
}

// ToMinutes переводит "HH:MM" в минуты от полуночи. Отсутствующие и битые части
// считаются 0; значения за пределами суток тоже становятся 0.
func ToMinutes(value string) int {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)

	hours := atoiOrZero(parts[0])
	minutes := 0
	if len(parts) > 1 {
		minutes = atoiOrZero(parts[1])
	}

	total := hours*60 + minutes
	if total < 0 || total >= minutesPerDay {
		return 0
	}
	return total
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func normalizeDay(day string) string {
	return strings.ToLower(strings.TrimSpace(day))
}

// SameDay проверяет, что слоты в один день недели
func (s TimeSlot) SameDay(other TimeSlot) bool {
	return normalizeDay(s.Day) == normalizeDay(other.Day)
}

// Overlaps проверяет пересечение полуинтервалов [start, end) в один день
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	if !s.SameDay(other) {
		return false
	}
	start := max(ToMinutes(s.StartTime), ToMinutes(other.StartTime))
	end := min(ToMinutes(s.EndTime), ToMinutes(other.EndTime))
	return start < end
}

// Equal сравнивает нормализованный день и строки начала и конца буквально
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.SameDay(other) && s.StartTime == other.StartTime && s.EndTime == other.EndTime
}

// IsZero - слот не задан
func (s TimeSlot) IsZero() bool {
	return s.Day == "" && s.StartTime == "" && s.EndTime == ""
}

// Key - форма слота для ограничения уникальности классов
func (s TimeSlot) Key() string {
	return normalizeDay(s.Day) + "|" + s.StartTime + "|" + s.EndTime
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Day, s.StartTime, s.EndTime)
}

// OverlapsAny проверяет, пересекает ли slot хотя бы один слот доступности
func OverlapsAny(availability []TimeSlot, slot TimeSlot) bool {
	for _, a := range availability {
		if a.Overlaps(slot) {
			return true
		}
	}
	return false
}
