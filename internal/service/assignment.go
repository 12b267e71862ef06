package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Freeeeeet/tutor_matching/internal/matching"
	"github.com/Freeeeeet/tutor_matching/internal/model"
	"go.uber.org/zap"
)

// MappingStatus - исход обработки одной заявки в автоназначении
type MappingStatus string

const (
	StatusMapped        MappingStatus = "mapped"
	StatusAlreadyMapped MappingStatus = "already_mapped"
	StatusNoTutor       MappingStatus = "no_tutor"
	StatusNoSlot        MappingStatus = "no_slot"
	StatusNoOverlap     MappingStatus = "no_overlap"
	StatusNeedsRepair   MappingStatus = "needs_repair"
	StatusNoSubject     MappingStatus = "no_subject"
	StatusError         MappingStatus = "error"
)

// Пометки в отчёте AutoMapStudents
const (
	NoteAssigned  = "assigned"
	NoteNoTutor   = "no_tutor"
	NoteNoSubject = "no_subject"
	NoteError     = "error"
)

type AssignResult struct {
	MeetingLink string         `json:"meeting_link"`
	Schedule    model.TimeSlot `json:"schedule"`
	ClassID     model.ClassID  `json:"class_id"`
}

type MappedApplication struct {
	ApplicationID model.ApplicationID `json:"application_id"`
	ClassID       *model.ClassID      `json:"class_id,omitempty"`
	TutorID       *model.TutorID      `json:"tutor_id,omitempty"`
	Subject       string              `json:"subject"`
	Status        MappingStatus       `json:"status"`
	Error         string              `json:"error,omitempty"`
}

type TutorGroup struct {
	TutorID        model.TutorID         `json:"tutor_id"`
	TutorName      string                `json:"tutor_name"`
	ClassID        model.ClassID         `json:"class_id"`
	Subject        string                `json:"subject"`
	ApplicationIDs []model.ApplicationID `json:"application_ids"`
}

type AutoMapResult struct {
	MappedCount   int                 `json:"mapped_count"`
	Mapped        []MappedApplication `json:"mapped"`
	GroupsByTutor []TutorGroup        `json:"groups_by_tutor"`
}

type StudentMapping struct {
	StudentID model.StudentID `json:"student_id"`
	TutorID   *model.TutorID  `json:"tutor_id,omitempty"`
	ClassID   *model.ClassID  `json:"class_id,omitempty"`
	Subject   string          `json:"subject"`
	Note      string          `json:"note"`
}

type StudentMapResult struct {
	Assigned int              `json:"assigned"`
	Items    []StudentMapping `json:"items"`
}

// AssignmentService назначает учеников из заявок учителям:
// вручную, пакетно по заявкам и по кругу для неназначенных учеников
type AssignmentService struct {
	stores   Stores
	balancer *matching.Balancer
	resolver *EnrollmentResolver
	students *StudentResolver
	notifier Notifier
	logger   *zap.Logger
}

func NewAssignmentService(stores Stores, resolver *EnrollmentResolver, students *StudentResolver, notifier Notifier, logger *zap.Logger) *AssignmentService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &AssignmentService{
		stores:   stores,
		balancer: matching.NewBalancer(stores.Classes),
		resolver: resolver,
		students: students,
		notifier: notifier,
		logger:   logger,
	}
}

// =============================================================================
// РУЧНОЕ НАЗНАЧЕНИЕ
// =============================================================================

// Assign назначает заявке выбранного учителя в его первом слоте доступности
func (s *AssignmentService) Assign(ctx context.Context, applicationID model.ApplicationID, tutorID model.TutorID) (*AssignResult, error) {
	app, err := s.stores.Applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, ErrApplicationNotFound)
	}

	tutor, err := s.stores.Tutors.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, fmt.Errorf("tutor %s: %w", tutorID, ErrTutorNotFound)
	}

	subject, ok := app.PrimarySubject()
	if !ok {
		return nil, fmt.Errorf("application %s: %w", applicationID, ErrNoSubject)
	}

	student, err := s.students.Resolve(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("resolve student: %w", err)
	}

	slot := tutor.DefaultSlot()
	enrollment, err := s.resolver.EnsureClass(ctx, tutor, student, subject, &slot)
	if err != nil {
		return nil, fmt.Errorf("ensure class: %w", err)
	}
	class := enrollment.Class

	if err := s.bindPrimaryTutor(ctx, student, tutor.ID); err != nil {
		return nil, err
	}

	assignment := &model.TutorAssignment{
		Tutor:       tutor.ID,
		MeetingLink: class.SessionLink,
		Schedule:    class.Schedule,
	}
	if err := s.stores.Applications.UpdateAssignment(ctx, app.ID, model.ApplicationStatusSelected, assignment); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	s.logger.Info("Application assigned",
		zap.String("application_id", app.ID.String()),
		zap.String("tutor_id", tutor.ID.String()),
		zap.String("class_id", class.ID.String()))

	s.notify(ctx, tutor, subject, class, []*model.Application{app})

	return &AssignResult{
		MeetingLink: class.SessionLink,
		Schedule:    class.Schedule,
		ClassID:     class.ID,
	}, nil
}

// =============================================================================
// ПАКЕТНОЕ НАЗНАЧЕНИЕ ОТОБРАННЫХ ЗАЯВОК
// =============================================================================

// subjectGroup - заявки одного предмета. anchors - уже назначенные заявки группы:
// они фиксируют учителя и участвуют в выборе слота, чтобы повторный батч
// приходил к тому же учителю и слоту.
type subjectGroup struct {
	subject string
	apps    []*model.Application
	anchors []anchor
}

type anchor struct {
	tutor   *model.Tutor
	student *model.Student
}

// AutoMapSelected группирует отобранные заявки по первому предмету, подбирает
// каждой группе учителя по нагрузке и слот с наибольшим покрытием и записывает
// в класс учеников, чья доступность этот слот пересекает.
// Ошибки отдельных заявок попадают в отчёт и не прерывают батч.
func (s *AssignmentService) AutoMapSelected(ctx context.Context) (*AutoMapResult, error) {
	apps, err := s.stores.Applications.ListByStatus(ctx, model.ApplicationStatusSelected)
	if err != nil {
		return nil, fmt.Errorf("get selected applications: %w", err)
	}

	result := &AutoMapResult{Mapped: []MappedApplication{}, GroupsByTutor: []TutorGroup{}}

	var (
		groups []*subjectGroup
		byKey  = make(map[model.SubjectKey]*subjectGroup)
	)

	group := func(subject string) *subjectGroup {
		key := model.NewSubjectKey(subject)
		g, ok := byKey[key]
		if !ok {
			g = &subjectGroup{subject: subject}
			byKey[key] = g
			groups = append(groups, g)
		}
		return g
	}

	for _, app := range apps {
		if app.TutorAssignment != nil && !app.TutorAssignment.Tutor.IsZero() {
			entry, a := s.recheckMapped(ctx, app)
			result.Mapped = append(result.Mapped, entry)
			if a != nil {
				g := group(entry.Subject)
				g.anchors = append(g.anchors, *a)
			}
			continue
		}

		subject, ok := app.PrimarySubject()
		if !ok {
			result.Mapped = append(result.Mapped, MappedApplication{ApplicationID: app.ID, Status: StatusNoSubject})
			continue
		}

		g := group(subject)
		g.apps = append(g.apps, app)
	}

	for _, g := range groups {
		if len(g.apps) == 0 {
			continue
		}
		mapped, tutorGroups := s.mapGroup(ctx, g)
		result.Mapped = append(result.Mapped, mapped...)
		result.GroupsByTutor = append(result.GroupsByTutor, tutorGroups...)
	}

	for _, m := range result.Mapped {
		if m.Status == StatusMapped {
			result.MappedCount++
		}
	}

	s.logger.Info("Auto-map of selected applications finished",
		zap.Int("applications", len(apps)),
		zap.Int("groups", len(groups)),
		zap.Int("mapped", result.MappedCount))

	return result, nil
}

// recheckMapped подтверждает запись ученика по уже записанному назначению.
// Для согласованных данных это no-op, поэтому повторный батч ничего не меняет.
func (s *AssignmentService) recheckMapped(ctx context.Context, app *model.Application) (MappedApplication, *anchor) {
	subject, _ := app.PrimarySubject()
	entry := MappedApplication{ApplicationID: app.ID, Subject: subject}
	assigned := app.TutorAssignment.Tutor

	tutor, err := s.stores.Tutors.GetByID(ctx, assigned)
	if err != nil {
		return s.itemError(entry, app, err), nil
	}
	if tutor == nil {
		s.logger.Warn("Assigned tutor does not resolve, leaving for repair",
			zap.String("application_id", app.ID.String()),
			zap.String("tutor_ref", assigned.String()))
		entry.Status = StatusNeedsRepair
		entry.Error = fmt.Errorf("tutor %s: %w", assigned, ErrReferentialCorruption).Error()
		return entry, nil
	}
	entry.TutorID = &tutor.ID

	if subject == "" {
		entry.Status = StatusNoSubject
		return entry, nil
	}

	student, err := s.students.Resolve(ctx, app)
	if err != nil {
		return s.itemError(entry, app, err), nil
	}

	var slot *model.TimeSlot
	if !app.TutorAssignment.Schedule.IsZero() {
		recorded := app.TutorAssignment.Schedule
		slot = &recorded
	}

	enrollment, err := s.resolver.EnsureClass(ctx, tutor, student, subject, slot)
	if err != nil {
		return s.itemError(entry, app, err), nil
	}
	if err := s.bindPrimaryTutor(ctx, student, tutor.ID); err != nil {
		return s.itemError(entry, app, err), nil
	}

	entry.ClassID = &enrollment.Class.ID
	entry.Status = StatusAlreadyMapped
	return entry, &anchor{tutor: tutor, student: student}
}

func (s *AssignmentService) mapGroup(ctx context.Context, g *subjectGroup) ([]MappedApplication, []TutorGroup) {
	mapped := make([]MappedApplication, 0, len(g.apps))
	markAll := func(status MappingStatus, tutorID *model.TutorID, err error) []MappedApplication {
		for _, app := range g.apps {
			entry := MappedApplication{ApplicationID: app.ID, TutorID: tutorID, Subject: g.subject, Status: status}
			if err != nil {
				entry.Error = err.Error()
			}
			mapped = append(mapped, entry)
		}
		return mapped
	}

	tutor, err := s.groupTutor(ctx, g)
	if err != nil {
		s.logger.Error("Failed to select tutor", zap.String("subject", g.subject), zap.Error(err))
		return markAll(StatusError, nil, err), nil
	}
	if tutor == nil {
		s.logger.Info("No tutor for subject", zap.String("subject", g.subject), zap.Int("applications", len(g.apps)))
		return markAll(StatusNoTutor, nil, nil), nil
	}
	tutorID := tutor.ID

	// ученики в порядке заявок; заявки, для которых ученик не разрешился, выпадают из группы
	var (
		members  []*model.Application
		students []*model.Student
	)
	for _, app := range g.apps {
		student, err := s.students.Resolve(ctx, app)
		if err != nil {
			mapped = append(mapped, s.itemError(MappedApplication{ApplicationID: app.ID, TutorID: &tutorID, Subject: g.subject}, app, err))
			continue
		}
		members = append(members, app)
		students = append(students, student)
	}

	coverage := slices.Clone(students)
	for _, a := range g.anchors {
		if a.tutor.ID == tutor.ID {
			coverage = append(coverage, a.student)
		}
	}

	choice, ok := matching.BestSlot(tutor, coverage)
	if !ok || choice.Count == 0 {
		s.logger.Info("No common slot for subject group",
			zap.String("subject", g.subject),
			zap.String("tutor_id", tutor.ID.String()))
		for _, app := range members {
			mapped = append(mapped, MappedApplication{ApplicationID: app.ID, TutorID: &tutorID, Subject: g.subject, Status: StatusNoSlot})
		}
		return mapped, nil
	}

	var (
		tutorGroups []TutorGroup
		groupIndex  = make(map[model.ClassID]int)
		classes     = make(map[model.ClassID]*model.Class)
		notified    = make(map[model.ClassID][]*model.Application)
		classOrder  []model.ClassID
		tutorName   = s.resolver.TutorName(ctx, tutor)
	)

	for i, app := range members {
		student := students[i]
		entry := MappedApplication{ApplicationID: app.ID, TutorID: &tutorID, Subject: g.subject}

		if !student.AvailableAt(choice.Slot) {
			entry.Status = StatusNoOverlap
			mapped = append(mapped, entry)
			continue
		}

		slot := choice.Slot
		enrollment, err := s.resolver.EnsureClass(ctx, tutor, student, g.subject, &slot)
		if err != nil {
			mapped = append(mapped, s.itemError(entry, app, err))
			continue
		}
		class := enrollment.Class

		if err := s.bindPrimaryTutor(ctx, student, tutor.ID); err != nil {
			mapped = append(mapped, s.itemError(entry, app, err))
			continue
		}

		assignment := &model.TutorAssignment{
			Tutor:       tutor.ID,
			MeetingLink: class.SessionLink,
			Schedule:    class.Schedule,
		}
		if err := s.stores.Applications.UpdateAssignment(ctx, app.ID, model.ApplicationStatusSelected, assignment); err != nil {
			mapped = append(mapped, s.itemError(entry, app, err))
			continue
		}

		entry.ClassID = &class.ID
		entry.Status = StatusMapped
		mapped = append(mapped, entry)

		idx, ok := groupIndex[class.ID]
		if !ok {
			idx = len(tutorGroups)
			groupIndex[class.ID] = idx
			classOrder = append(classOrder, class.ID)
			tutorGroups = append(tutorGroups, TutorGroup{
				TutorID:   tutor.ID,
				TutorName: tutorName,
				ClassID:   class.ID,
				Subject:   g.subject,
			})
		}
		tutorGroups[idx].ApplicationIDs = append(tutorGroups[idx].ApplicationIDs, app.ID)
		classes[class.ID] = class
		notified[class.ID] = append(notified[class.ID], app)
	}

	for _, id := range classOrder {
		s.notify(ctx, tutor, g.subject, classes[id], notified[id])
	}

	return mapped, tutorGroups
}

// groupTutor возвращает учителя уже назначенных заявок группы, если он по-прежнему
// проходит фильтр балансировщика (ведёт предмет, active или pending). Среди нескольких
// таких учителей выбирается наименее загруженный. Иначе группа балансируется заново.
func (s *AssignmentService) groupTutor(ctx context.Context, g *subjectGroup) (*model.Tutor, error) {
	var anchored []*model.Tutor
	seen := make(map[model.TutorID]bool)
	for _, a := range g.anchors {
		if seen[a.tutor.ID] {
			continue
		}
		seen[a.tutor.ID] = true
		anchored = append(anchored, a.tutor)
	}

	if eligible := matching.Eligible(g.subject, anchored); len(eligible) > 0 {
		return s.balancer.SelectTutor(ctx, g.subject, eligible)
	}
	if len(anchored) > 0 {
		s.logger.Info("Tutor of mapped applications is no longer eligible, rebalancing group",
			zap.String("subject", g.subject))
	}

	tutors, err := s.stores.Tutors.ListBySubject(ctx, g.subject)
	if err != nil {
		return nil, fmt.Errorf("list tutors for subject: %w", err)
	}

	return s.balancer.SelectTutor(ctx, g.subject, tutors)
}

// =============================================================================
// РАСПРЕДЕЛЕНИЕ НЕНАЗНАЧЕННЫХ УЧЕНИКОВ ПО КРУГУ
// =============================================================================

// AutoMapStudents распределяет учеников без закреплённого учителя по учителям
// предмета строго по кругу, без учёта нагрузки и слотов. Пустой subject -
// группировка по первому предмету каждого ученика.
func (s *AssignmentService) AutoMapStudents(ctx context.Context, subject string) (*StudentMapResult, error) {
	students, err := s.stores.Students.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("get unassigned students: %w", err)
	}

	result := &StudentMapResult{Items: []StudentMapping{}}

	type group struct {
		subject  string
		students []*model.Student
	}
	var (
		groups []*group
		byKey  = make(map[model.SubjectKey]*group)
	)
	add := func(subj string, st *model.Student) {
		key := model.NewSubjectKey(subj)
		g, ok := byKey[key]
		if !ok {
			g = &group{subject: subj}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.students = append(g.students, st)
	}

	subject = strings.TrimSpace(subject)
	for _, st := range students {
		if subject != "" {
			if takesSubject(st, subject) {
				add(subject, st)
			}
			continue
		}

		primary, ok := st.PrimarySubject()
		if !ok || strings.TrimSpace(primary) == "" {
			result.Items = append(result.Items, StudentMapping{StudentID: st.ID, Note: NoteNoSubject})
			continue
		}
		add(strings.TrimSpace(primary), st)
	}

	for _, g := range groups {
		result.Items = append(result.Items, s.roundRobin(ctx, g.subject, g.students)...)
	}

	for _, item := range result.Items {
		if item.Note == NoteAssigned {
			result.Assigned++
		}
	}

	s.logger.Info("Round-robin auto-map finished",
		zap.String("subject", subject),
		zap.Int("students", len(students)),
		zap.Int("assigned", result.Assigned))

	return result, nil
}

func (s *AssignmentService) roundRobin(ctx context.Context, subject string, students []*model.Student) []StudentMapping {
	items := make([]StudentMapping, 0, len(students))

	all, err := s.stores.Tutors.ListBySubject(ctx, subject)
	if err != nil {
		s.logger.Error("Failed to list tutors for subject", zap.String("subject", subject), zap.Error(err))
		for _, st := range students {
			items = append(items, StudentMapping{StudentID: st.ID, Subject: subject, Note: NoteError + ": " + err.Error()})
		}
		return items
	}

	var tutors []*model.Tutor
	for _, t := range all {
		if t.IsAssignable() {
			tutors = append(tutors, t)
		}
	}

	if len(tutors) == 0 {
		for _, st := range students {
			items = append(items, StudentMapping{StudentID: st.ID, Subject: subject, Note: NoteNoTutor})
		}
		return items
	}

	for i, st := range students {
		tutor := tutors[i%len(tutors)]
		item := StudentMapping{StudentID: st.ID, TutorID: &tutor.ID, Subject: subject}

		enrollment, err := s.resolver.EnsureClass(ctx, tutor, st, subject, nil)
		if err == nil {
			err = s.bindPrimaryTutor(ctx, st, tutor.ID)
		}
		if err != nil {
			s.logger.Warn("Failed to assign student",
				zap.String("student_id", st.ID.String()),
				zap.String("tutor_id", tutor.ID.String()),
				zap.Error(err))
			item.Note = NoteError + ": " + err.Error()
			items = append(items, item)
			continue
		}

		item.ClassID = &enrollment.Class.ID
		item.Note = NoteAssigned
		items = append(items, item)
	}

	return items
}

func takesSubject(st *model.Student, subject string) bool {
	key := model.NewSubjectKey(subject)
	for _, s := range st.Subjects {
		if model.NewSubjectKey(s) == key {
			return true
		}
	}
	return false
}

// =============================================================================
// ОБЩЕЕ
// =============================================================================

// bindPrimaryTutor закрепляет учителя за учеником, если он ещё не закреплён,
// и добавляет ученика в список учителя
func (s *AssignmentService) bindPrimaryTutor(ctx context.Context, student *model.Student, tutorID model.TutorID) error {
	return bindPrimaryTutor(ctx, s.stores, student, tutorID)
}

func bindPrimaryTutor(ctx context.Context, stores Stores, student *model.Student, tutorID model.TutorID) error {
	if student.TutorID == nil {
		if err := stores.Students.SetTutor(ctx, student.ID, tutorID); err != nil {
			return fmt.Errorf("set student tutor: %w", err)
		}
		student.TutorID = &tutorID
	}

	if err := stores.Tutors.AddStudent(ctx, tutorID, student.ID); err != nil {
		return fmt.Errorf("add student to tutor roster: %w", err)
	}
	return nil
}

func (s *AssignmentService) itemError(entry MappedApplication, app *model.Application, err error) MappedApplication {
	level := s.logger.Error
	if errors.Is(err, ErrApplicationNotFound) || errors.Is(err, ErrTutorNotFound) || errors.Is(err, ErrStudentNotFound) {
		level = s.logger.Warn
	}
	level("Failed to map application", zap.String("application_id", app.ID.String()), zap.Error(err))

	entry.Status = StatusError
	entry.Error = err.Error()
	return entry
}

// notify отправляет письма заявителям и сообщение учителю; ошибки глотаются
func (s *AssignmentService) notify(ctx context.Context, tutor *model.Tutor, subject string, class *model.Class, apps []*model.Application) {
	tutorName := s.resolver.TutorName(ctx, tutor)

	names := make([]string, 0, len(apps))
	for _, app := range apps {
		names = append(names, app.FullName())
		if strings.TrimSpace(app.Email) == "" {
			continue
		}

		err := s.notifier.NotifyApplicant(ctx, ApplicantNotice{
			Email:       app.Email,
			Name:        app.FullName(),
			Subject:     subject,
			TutorName:   tutorName,
			Schedule:    class.Schedule,
			MeetingLink: class.SessionLink,
		})
		if err != nil {
			s.logger.Warn("Failed to notify applicant", zap.String("application_id", app.ID.String()), zap.Error(err))
		}
	}

	user, err := s.stores.Users.GetByID(ctx, tutor.UserID)
	if err != nil {
		s.logger.Warn("Failed to load tutor user for notification", zap.String("tutor_id", tutor.ID.String()), zap.Error(err))
		return
	}
	if user == nil || user.TelegramID == 0 {
		return
	}

	err = s.notifier.NotifyTutor(ctx, TutorNotice{
		TelegramID:  user.TelegramID,
		TutorName:   tutorName,
		Subject:     subject,
		Schedule:    class.Schedule,
		MeetingLink: class.SessionLink,
		Students:    names,
	})
	if err != nil {
		s.logger.Warn("Failed to notify tutor", zap.String("tutor_id", tutor.ID.String()), zap.Error(err))
	}
}
