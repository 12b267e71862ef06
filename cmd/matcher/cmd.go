package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Freeeeeet/tutor_matching/internal/app"
	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/Freeeeeet/tutor_matching/migrations"
)

var (
	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate needs a database connection")
)

type commandLine struct {
	out io.Writer
	// newEnv подменяется в тестах
	newEnv func(ctx context.Context, opts envOptions) (*env, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                   - apply database migrations")
	fmt.Fprintln(cli.out, "  assign -application ID -tutor ID          - assign an application to a tutor")
	fmt.Fprintln(cli.out, "  automap                                   - map all selected applications to tutors")
	fmt.Fprintln(cli.out, "  automap-students [-subject NAME]          - round-robin unassigned students over tutors")
	fmt.Fprintln(cli.out, "  repair [-every DURATION]                  - reconcile tutor references and enrollments")
	fmt.Fprintln(cli.out, "Every command except migrate accepts -dry-run [-fixture FILE] to run against an in-memory copy.")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	cmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
	cmd.SetOutput(cli.out)

	var opts envOptions
	if args[1] != "migrate" {
		cmd.BoolVar(&opts.dryRun, "dry-run", false, "Run against an in-memory store instead of PostgreSQL.")
		cmd.StringVar(&opts.fixture, "fixture", "", "JSON fixture to seed the in-memory store with (requires -dry-run).")
	}

	var (
		applicationID = cmd.String("application", "", "Application id (assign).")
		tutorID       = cmd.String("tutor", "", "Tutor id (assign).")
		subject       = cmd.String("subject", "", "Subject to map; empty groups students by their first subject (automap-students).")
		every         = cmd.Duration("every", 0, "Repeat the repair pass with this interval until interrupted (repair).")
	)

	switch args[1] {
	case "migrate", "assign", "automap", "automap-students", "repair":
	default:
		cli.printUsage()
		return errHelp
	}

	if err := cmd.Parse(args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	if opts.fixture != "" && !opts.dryRun {
		return errors.New("-fixture requires -dry-run")
	}

	if args[1] == "assign" && (*applicationID == "" || *tutorID == "") {
		cmd.Usage()
		return errHelp
	}

	newEnv := cli.newEnv
	if newEnv == nil {
		newEnv = setupEnv
	}
	e, err := newEnv(ctx, opts)
	if err != nil {
		return err
	}
	defer e.close()

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx, e)
	case "assign":
		return cli.assign(ctx, e, *applicationID, *tutorID)
	case "automap":
		result, err := e.assignments.AutoMapSelected(ctx)
		if err != nil {
			return err
		}
		return cli.print(result)
	case "automap-students":
		result, err := e.assignments.AutoMapStudents(ctx, *subject)
		if err != nil {
			return err
		}
		return cli.print(result)
	default:
		return cli.repair(ctx, e, *every)
	}
}

func (cli *commandLine) migrate(ctx context.Context, e *env) error {
	if e.pool == nil {
		return errNoDatabase
	}

	migrator, err := app.NewMigrator(e.pool, migrations.FS, e.logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}

func (cli *commandLine) assign(ctx context.Context, e *env, applicationID, tutorID string) error {
	appID, err := model.ParseApplicationID(applicationID)
	if err != nil {
		return fmt.Errorf("parse application id: %w", err)
	}
	tID, err := model.ParseTutorID(tutorID)
	if err != nil {
		return fmt.Errorf("parse tutor id: %w", err)
	}

	result, err := e.assignments.Assign(ctx, appID, tID)
	if err != nil {
		return err
	}
	return cli.print(result)
}

func (cli *commandLine) repair(ctx context.Context, e *env, every time.Duration) error {
	if every <= 0 {
		result, err := e.repairs.Repair(ctx)
		if err != nil {
			return err
		}
		return cli.print(result)
	}

	scheduler := app.NewScheduler(e.repairs, every, e.logger)
	scheduler.Start(ctx)
	<-scheduler.Done()
	return nil
}

func (cli *commandLine) print(v any) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
