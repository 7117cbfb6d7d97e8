package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/user"
	"github.com/lingora/backend/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *database.DB
	usrRepo user.Repository
	usrSvc  user.Service
	currSvc curriculum.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -username USERNAME -email EMAIL [-level LEVEL] [-admin] - create a user; the password is prompted next")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset a user's password")
	fmt.Println("  loadweeks -file FILE.csv [-level LEVEL] - import program weeks from a CSV file")
	fmt.Println("  createdb - create the application database if it does not exist")
	fmt.Println("  migrate COMMAND [args] - run database migrations (goose commands)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserLevel := addUserCmd.String("level", "", "The student's CEFR level (students only).")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the owner admin role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	loadWeeksCmd := flag.NewFlagSet("loadweeks", flag.ExitOnError)
	loadWeeksFile := loadWeeksCmd.String("file", "", "Path to a CSV file: week_number,level,title,description.")
	loadWeeksLevel := loadWeeksCmd.String("level", "", "Override the level column for all rows.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, *addUserLevel, pwd, *addUserAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "loadweeks":
		if err := loadWeeksCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadWeeksFile == "" {
			loadWeeksCmd.Usage()
			return errHelp
		}
		f, err := os.Open(*loadWeeksFile)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := cli.loadWeeks(f, *loadWeeksLevel)
		if err != nil {
			return err
		}
		fmt.Printf("%d week(s) imported\n", n)
		return nil
	case "createdb":
		return database.CreateIfNotExist(cli.conf)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
