package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/user"
	emailsvc "github.com/lingora/backend/services/email"
	dummydb "github.com/lingora/backend/storage/database/dummy"
)

var (
	usrRepo  user.Repository
	currRepo curriculum.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	currRepo = dummydb.NewCurriculumRepository(db)

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	return &commandLine{
		conf:    conf,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf),
		currSvc: curriculum.NewService(db, currRepo),
	}
}

func createTestUser(t *testing.T, name, uname, email, pwd string, roles []string) user.User {
	t.Helper()

	isActive := true
	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    email,
		IsActive: &isActive,
		Roles:    roles,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "program_week", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createTestUser(t, "User", "awesome", "awe@test.cd", "initial", nil)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	existing := createTestUser(t, "Taken", "takenuser", "taken@test.cd", "pwd", nil)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("secret"), nil }

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "name but no username nor email", args: []string{"adduser", "-name", "Jane"}, wantErr: errHelp},
		{name: "duplicate username", args: []string{"adduser", "-name", "Other", "-username", existing.Username}, wantErrStr: user.ErrUsernameExists.Error()},
		{name: "student created", args: []string{"adduser", "-name", "Jane Doe", "-username", "janedoe", "-email", "jane@test.cd", "-level", "A2"}},
		{name: "admin created", args: []string{"adduser", "-name", "Boss", "-username", "bigboss", "-email", "boss@test.cd", "-admin"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantErrStr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrStr) {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
				return
			}
			if err != nil {
				t.Fatalf("cli.run() unexpected error = %v", err)
			}
		})
	}

	usr, err := cli.usrSvc.GetByUsername(context.Background(), "janedoe")
	if err != nil {
		t.Fatalf("GetByUsername() failed: %v", err)
	}
	if !usr.IsStudent() {
		t.Errorf("expected student roles, got %v", usr.Roles)
	}
	if usr.Level != "A2" {
		t.Errorf("Level = %s, want A2", usr.Level)
	}
	if err = usr.CheckPassword("secret"); err != nil {
		t.Error("prompted password was not set")
	}

	admin, err := cli.usrSvc.GetByUsername(context.Background(), "bigboss")
	if err != nil {
		t.Fatalf("GetByUsername() failed: %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("expected admin roles, got %v", admin.Roles)
	}
}

func Test_commandLine_loadWeeks(t *testing.T) {
	cli := setup(t)

	data := "week_number,level,title,description\n" +
		"1,A1,Greetings,Basic introductions\n" +
		"2,A1,Numbers,\n" +
		"1,A2,Past tense,Regular verbs\n"

	n, err := cli.loadWeeks(strings.NewReader(data), "")
	if err != nil {
		t.Fatalf("loadWeeks() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("loadWeeks() = %d, want 3", n)
	}

	// re-import: existing weeks are skipped
	n, err = cli.loadWeeks(strings.NewReader(data), "")
	if err != nil {
		t.Fatalf("loadWeeks() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("loadWeeks() = %d, want 0", n)
	}

	// level override sends all rows to another level
	n, err = cli.loadWeeks(strings.NewReader(data), "B1")
	if err != nil {
		t.Fatalf("loadWeeks() failed: %v", err)
	}
	// weeks 1&2 are new for B1; the A2 row collides with B1 week 1
	if n != 2 {
		t.Errorf("loadWeeks() = %d, want 2", n)
	}

	weeks, err := cli.currSvc.QueryWeeks(context.Background(), "A1")
	if err != nil {
		t.Fatalf("QueryWeeks() failed: %v", err)
	}
	if len(weeks) != 2 {
		t.Fatalf("len(weeks) = %d, want 2", len(weeks))
	}
	if weeks[0].Title != "Greetings" || weeks[1].Title != "Numbers" {
		t.Errorf("unexpected titles: %s, %s", weeks[0].Title, weeks[1].Title)
	}

	if _, err = cli.loadWeeks(strings.NewReader("4,A1\n"), ""); err == nil {
		t.Error("expected error on short record")
	}
	if _, err = cli.loadWeeks(strings.NewReader("1,A1,Ok,\nnope,A1,Bad,\n"), "C1"); err == nil {
		t.Error("expected error on non-numeric week number")
	}
}
