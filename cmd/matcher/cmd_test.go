package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixture = `{
  "users": [
    {"id": "5f0c6a1e-0000-4000-8000-000000000001", "first_name": "Bob", "last_name": "Smith", "role": "tutor"}
  ],
  "tutors": [
    {
      "id": "5f0c6a1e-0000-4000-8000-0000000000a1",
      "user_id": "5f0c6a1e-0000-4000-8000-000000000001",
      "subjects": ["Math"],
      "availability": [{"day": "Monday", "start_time": "10:00", "end_time": "11:00"}],
      "status": "active",
      "experience_years": 4
    }
  ],
  "applications": [
    {
      "id": "5f0c6a1e-0000-4000-8000-0000000000f1",
      "status": "selected",
      "first_name": "Ann",
      "last_name": "Lee",
      "email": "ann@example.com",
      "subjects": [{"name": "Math", "medium": "English"}],
      "availability": [{"day": "Monday", "start_time": "10:30", "end_time": "12:00"}]
    }
  ]
}`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	return path
}

func offlineEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DB_DSN", "REDIS_ADDR", "SENDGRID_API_KEY", "MAIL_FROM", "TELEGRAM_TOKEN", "LOCK_TTL", "MEETING_HOST", "MEETING_ROOM_PREFIX"} {
		t.Setenv(k, "")
	}
	t.Setenv("ENV", "test")
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	errStr  string
}

func Test_commandLine_usage(t *testing.T) {
	tests := []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "assign without ids", args: []string{"assign", "-tutor", "x"}, wantErr: errHelp},
		{name: "fixture without dry run", args: []string{"automap", "-fixture", "f.json"}, errStr: "-fixture requires -dry-run"},
		{name: "migrate has no dry run", args: []string{"migrate", "-dry-run"}, errStr: "flag provided but not defined"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cli := &commandLine{out: out}

			err := cli.run(context.Background(), append([]string{"matcher"}, tc.args...))

			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.errStr != "" {
				assert.Contains(t, err.Error(), tc.errStr)
			}
		})
	}
}

func Test_commandLine_migrateNeedsDatabase(t *testing.T) {
	cli := &commandLine{
		out: &bytes.Buffer{},
		newEnv: func(context.Context, envOptions) (*env, error) {
			return &env{logger: zap.NewNop()}, nil
		},
	}

	err := cli.run(context.Background(), []string{"matcher", "migrate"})
	assert.ErrorIs(t, err, errNoDatabase)
}

func Test_commandLine_automapDryRun(t *testing.T) {
	offlineEnv(t)
	out := &bytes.Buffer{}
	cli := &commandLine{out: out}

	err := cli.run(context.Background(), []string{"matcher", "automap", "-dry-run", "-fixture", writeFixture(t)})
	require.NoError(t, err)

	var result struct {
		MappedCount int `json:"mapped_count"`
		Mapped      []struct {
			ApplicationID string `json:"application_id"`
			TutorID       string `json:"tutor_id"`
			Status        string `json:"status"`
		} `json:"mapped"`
		GroupsByTutor []struct {
			TutorName string `json:"tutor_name"`
			Subject   string `json:"subject"`
		} `json:"groups_by_tutor"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))

	assert.Equal(t, 1, result.MappedCount)
	require.Len(t, result.Mapped, 1)
	assert.Equal(t, "5f0c6a1e-0000-4000-8000-0000000000f1", result.Mapped[0].ApplicationID)
	assert.Equal(t, "5f0c6a1e-0000-4000-8000-0000000000a1", result.Mapped[0].TutorID)
	assert.Equal(t, "mapped", result.Mapped[0].Status)
	require.Len(t, result.GroupsByTutor, 1)
	assert.Equal(t, "Bob Smith", result.GroupsByTutor[0].TutorName)
	assert.Equal(t, "Math", result.GroupsByTutor[0].Subject)
}

func Test_commandLine_assignDryRun(t *testing.T) {
	offlineEnv(t)
	out := &bytes.Buffer{}
	cli := &commandLine{out: out}

	err := cli.run(context.Background(), []string{
		"matcher", "assign", "-dry-run", "-fixture", writeFixture(t),
		"-application", "5f0c6a1e-0000-4000-8000-0000000000f1",
		"-tutor", "5f0c6a1e-0000-4000-8000-0000000000a1",
	})
	require.NoError(t, err)

	var result struct {
		MeetingLink string `json:"meeting_link"`
		Schedule    struct {
			Day string `json:"day"`
		} `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Contains(t, result.MeetingLink, "https://meet.jit.si/tutoring-")
	assert.Equal(t, "Monday", result.Schedule.Day)
}

func Test_commandLine_repairDryRunOnEmptyStore(t *testing.T) {
	offlineEnv(t)
	out := &bytes.Buffer{}
	cli := &commandLine{out: out}

	require.NoError(t, cli.run(context.Background(), []string{"matcher", "repair", "-dry-run"}))

	var result struct {
		FixedCount int      `json:"fixed_count"`
		Logs       []string `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Zero(t, result.FixedCount)
	assert.NotEmpty(t, result.Logs)
}
