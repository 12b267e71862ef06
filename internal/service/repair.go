package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type RepairResult struct {
	FixedCount       int      `json:"fixed_count"`
	EnrolledCount    int      `json:"enrolled_count"`
	RosterFixedCount int      `json:"roster_fixed_count"`
	DanglingCount    int      `json:"dangling_count"`
	Logs             []string `json:"logs"`
}

// RepairService сверяет перекрёстные ссылки заявок, учителей, учеников и классов
type RepairService struct {
	stores   Stores
	resolver *EnrollmentResolver
	students *StudentResolver
	logger   *zap.Logger
}

func NewRepairService(stores Stores, resolver *EnrollmentResolver, students *StudentResolver, logger *zap.Logger) *RepairService {
	return &RepairService{
		stores:   stores,
		resolver: resolver,
		students: students,
		logger:   logger,
	}
}

// repairRun копит строки отчёта и дублирует их в zap
type repairRun struct {
	result *RepairResult
	logger *zap.Logger
}

func (r *repairRun) logf(level zapcore.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.result.Logs = append(r.result.Logs, msg)
	if ce := r.logger.Check(level, msg); ce != nil {
		ce.Write()
	}
}

// Repair выполняет проход сверки:
//  1. классы, чей tutor_id указывает на пользователя, переводятся на его профиль учителя;
//  2. ссылки на учителя в отобранных заявках исправляются так же, ученик гарантированно
//     записан в какой-нибудь класс этого учителя по предмету;
//  3. ученики классов дописываются в собственный список учителя класса,
//     висячие ссылки на учеников в составах классов только логируются.
func (s *RepairService) Repair(ctx context.Context) (*RepairResult, error) {
	run := &repairRun{
		result: &RepairResult{Logs: []string{}},
		logger: s.logger,
	}

	if err := s.repairClassTutors(ctx, run); err != nil {
		return nil, err
	}

	apps, err := s.stores.Applications.ListByStatus(ctx, model.ApplicationStatusSelected)
	if err != nil {
		return nil, fmt.Errorf("get selected applications: %w", err)
	}

	for _, app := range apps {
		if app.TutorAssignment == nil || app.TutorAssignment.Tutor.IsZero() {
			continue
		}
		s.repairApplication(ctx, run, app)
	}

	if err := s.sweepRosters(ctx, run); err != nil {
		return nil, err
	}

	run.logf(zapcore.InfoLevel, "repair finished: fixed=%d enrolled=%d rosters=%d dangling=%d",
		run.result.FixedCount, run.result.EnrolledCount, run.result.RosterFixedCount, run.result.DanglingCount)

	return run.result, nil
}

// resolveTutorRef разрешает ссылку на учителя: сначала как id учителя, затем как id его пользователя
func (s *RepairService) resolveTutorRef(ctx context.Context, ref model.TutorID) (tutor *model.Tutor, wasUserID bool, err error) {
	tutor, err = s.stores.Tutors.GetByID(ctx, ref)
	if err != nil {
		return nil, false, fmt.Errorf("get tutor: %w", err)
	}
	if tutor != nil {
		return tutor, false, nil
	}

	tutor, err = s.stores.Tutors.GetByUserID(ctx, model.UserID(ref.UUID()))
	if err != nil {
		return nil, false, fmt.Errorf("get tutor by user: %w", err)
	}
	if tutor != nil {
		return tutor, true, nil
	}

	return nil, false, nil
}

func (s *RepairService) repairClassTutors(ctx context.Context, run *repairRun) error {
	classes, err := s.stores.Classes.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("get classes: %w", err)
	}

	for _, class := range classes {
		tutor, wasUserID, err := s.resolveTutorRef(ctx, class.TutorID)
		if err != nil {
			run.logf(zapcore.ErrorLevel, "class %s: %v", class.ID, err)
			continue
		}
		if tutor == nil {
			run.logf(zapcore.WarnLevel, "class %s: tutor %s: %v", class.ID, class.TutorID, ErrReferentialCorruption)
			continue
		}
		if !wasUserID {
			continue
		}

		if err := s.stores.Classes.UpdateTutor(ctx, class.ID, tutor.ID); err != nil {
			run.logf(zapcore.ErrorLevel, "class %s: rewrite tutor %s -> %s: %v", class.ID, class.TutorID, tutor.ID, err)
			continue
		}
		run.result.FixedCount++
		run.logf(zapcore.InfoLevel, "class %s: tutor user id %s rewritten to tutor %s", class.ID, class.TutorID, tutor.ID)
	}

	return nil
}

func (s *RepairService) repairApplication(ctx context.Context, run *repairRun, app *model.Application) {
	ref := app.TutorAssignment.Tutor

	tutor, wasUserID, err := s.resolveTutorRef(ctx, ref)
	if err != nil {
		run.logf(zapcore.ErrorLevel, "application %s: %v", app.ID, err)
		return
	}
	if tutor == nil {
		run.logf(zapcore.WarnLevel, "application %s: tutor %s does not resolve, skipped: %v", app.ID, ref, ErrReferentialCorruption)
		return
	}

	if wasUserID {
		fixed := *app.TutorAssignment
		fixed.Tutor = tutor.ID
		if err := s.stores.Applications.UpdateAssignment(ctx, app.ID, app.Status, &fixed); err != nil {
			run.logf(zapcore.ErrorLevel, "application %s: rewrite tutor: %v", app.ID, err)
			return
		}
		app.TutorAssignment = &fixed
		run.result.FixedCount++
		run.logf(zapcore.InfoLevel, "application %s: tutor user id %s rewritten to tutor %s", app.ID, ref, tutor.ID)
	}

	subject, ok := app.PrimarySubject()
	if !ok {
		run.logf(zapcore.WarnLevel, "application %s: %v, enrollment skipped", app.ID, ErrNoSubject)
		return
	}

	student, err := s.students.Resolve(ctx, app)
	if err != nil {
		run.logf(zapcore.ErrorLevel, "application %s: resolve student: %v", app.ID, err)
		return
	}

	enrollment, err := s.resolver.EnsureClass(ctx, tutor, student, subject, nil)
	if err != nil {
		run.logf(zapcore.ErrorLevel, "application %s: ensure class: %v", app.ID, err)
		return
	}

	if err := bindPrimaryTutor(ctx, s.stores, student, tutor.ID); err != nil {
		run.logf(zapcore.ErrorLevel, "application %s: %v", app.ID, err)
		return
	}

	if enrollment.StudentAdded {
		run.result.EnrolledCount++
		run.logf(zapcore.InfoLevel, "application %s: student %s enrolled in class %s", app.ID, student.ID, enrollment.Class.ID)
	}
}

// sweepRosters дописывает учеников классов в список учителя класса. О ссылках на
// удалённых учеников только сообщает, ничего не удаляя.
func (s *RepairService) sweepRosters(ctx context.Context, run *repairRun) error {
	classes, err := s.stores.Classes.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("get classes: %w", err)
	}

	// nil-значение: учитель класса не разрешается, его список не трогаем
	rosters := make(map[model.TutorID]map[model.StudentID]bool)

	for _, class := range classes {
		roster, err := s.tutorRoster(ctx, rosters, class.TutorID)
		if err != nil {
			run.logf(zapcore.ErrorLevel, "class %s: %v", class.ID, err)
		}

		for _, studentID := range class.Students {
			student, err := s.stores.Students.GetByID(ctx, studentID)
			if err != nil {
				run.logf(zapcore.ErrorLevel, "class %s: check student %s: %v", class.ID, studentID, err)
				continue
			}
			if student == nil {
				run.result.DanglingCount++
				run.logf(zapcore.WarnLevel, "class %s: student %s: %v", class.ID, studentID, ErrDanglingReference)
				continue
			}

			if roster == nil || roster[studentID] {
				continue
			}
			if err := s.stores.Tutors.AddStudent(ctx, class.TutorID, studentID); err != nil {
				run.logf(zapcore.ErrorLevel, "class %s: add student %s to tutor %s: %v", class.ID, studentID, class.TutorID, err)
				continue
			}
			roster[studentID] = true
			run.result.RosterFixedCount++
			run.logf(zapcore.InfoLevel, "class %s: student %s added to tutor %s roster", class.ID, studentID, class.TutorID)
		}
	}

	return nil
}

// tutorRoster загружает список учеников учителя один раз за проход
func (s *RepairService) tutorRoster(ctx context.Context, cache map[model.TutorID]map[model.StudentID]bool, tutorID model.TutorID) (map[model.StudentID]bool, error) {
	if roster, ok := cache[tutorID]; ok {
		return roster, nil
	}

	tutor, err := s.stores.Tutors.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		cache[tutorID] = nil
		return nil, nil
	}

	ids, err := s.stores.Tutors.ListStudentIDs(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor roster: %w", err)
	}

	roster := make(map[model.StudentID]bool, len(ids))
	for _, id := range ids {
		roster[id] = true
	}
	cache[tutorID] = roster
	return roster, nil
}
