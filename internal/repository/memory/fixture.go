package memory

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Freeeeeet/tutor_matching/internal/model"
)

// Fixture - снимок данных для dry-run и тестов
type Fixture struct {
	Users        []model.User        `json:"users"`
	Tutors       []model.Tutor       `json:"tutors"`
	Students     []model.Student     `json:"students"`
	Classes      []model.Class       `json:"classes"`
	Applications []model.Application `json:"applications"`
}

// LoadFixture читает JSON-снимок и заполняет им новую базу
func LoadFixture(r io.Reader) (*DB, error) {
	var f Fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	db := New()
	db.Seed(f)
	return db, nil
}

// Seed вставляет записи снимка как есть, в порядке следования
func (db *DB) Seed(f Fixture) {
	for _, u := range f.Users {
		db.PutUser(u)
	}
	for _, t := range f.Tutors {
		db.PutTutor(t)
	}
	for _, s := range f.Students {
		db.PutStudent(s)
	}
	for _, c := range f.Classes {
		db.PutClass(c)
	}
	for _, a := range f.Applications {
		db.PutApplication(a)
	}
}

// Snapshot возвращает текущее состояние в порядке вставки
func (db *DB) Snapshot() Fixture {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var f Fixture
	for _, id := range db.userOrder {
		f.Users = append(f.Users, *copyUser(db.users[id]))
	}
	for _, id := range db.tutorOrder {
		f.Tutors = append(f.Tutors, *copyTutor(db.tutors[id]))
	}
	for _, id := range db.studentOrder {
		f.Students = append(f.Students, *copyStudent(db.students[id]))
	}
	for _, id := range db.classOrder {
		f.Classes = append(f.Classes, *copyClass(db.classes[id]))
	}
	for _, id := range db.appOrder {
		f.Applications = append(f.Applications, *copyApplication(db.applications[id]))
	}
	return f
}
