package model

import "github.com/google/uuid"

// Идентификаторы сущностей разведены по типам: TutorID нельзя передать туда,
// где ожидается UserID, без явного преобразования. Историческая путаница
// tutor/user в заявках чинится только через service.RepairService.

type TutorID uuid.UUID

type StudentID uuid.UUID

type UserID uuid.UUID

type ClassID uuid.UUID

type ApplicationID uuid.UUID

func NewTutorID() TutorID             { return TutorID(uuid.New()) }
func NewStudentID() StudentID         { return StudentID(uuid.New()) }
func NewUserID() UserID               { return UserID(uuid.New()) }
func NewClassID() ClassID             { return ClassID(uuid.New()) }
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

func (id TutorID) UUID() uuid.UUID       { return uuid.UUID(id) }
func (id StudentID) UUID() uuid.UUID     { return uuid.UUID(id) }
func (id UserID) UUID() uuid.UUID        { return uuid.UUID(id) }
func (id ClassID) UUID() uuid.UUID       { return uuid.UUID(id) }
func (id ApplicationID) UUID() uuid.UUID { return uuid.UUID(id) }

func (id TutorID) String() string       { return uuid.UUID(id).String() }
func (id StudentID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ClassID) String() string       { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }

func (id TutorID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id StudentID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ClassID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// JSON-представление - строка uuid, а не массив байт.

func (id TutorID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id StudentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ClassID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TutorID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *StudentID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ClassID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ApplicationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseTutorID разбирает id учителя из строки (CLI, фикстуры)
func ParseTutorID(s string) (TutorID, error) {
	id, err := uuid.Parse(s)
	return TutorID(id), err
}

// ParseApplicationID разбирает id заявки из строки
func ParseApplicationID(s string) (ApplicationID, error) {
	id, err := uuid.Parse(s)
	return ApplicationID(id), err
}
