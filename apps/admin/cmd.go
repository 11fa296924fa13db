package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp         = errors.New("help provided")
	errNoMigrations = errors.New("migrations are only available on the postgres engine")
)

type commandLine struct {
	db        *sql.DB // nil on the inmem engine
	validate  *validator.Validate
	usrSvc    user.ServiceInterface
	schoolSvc school.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  adduser -phone PHONE -name NAME -number NUMBER -type TYPE - create a user, the password is prompted next")
	fmt.Println("  resetpassword -phone PHONE - reset user's password")
	fmt.Println("  addschool -name NAME -province PROVINCE -city CITY - register a school")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserPhone := addUserCmd.String("phone", "", "The user's phone, used to log in.")
	addUserName := addUserCmd.String("name", "", "The user's name.")
	addUserNumber := addUserCmd.String("number", "", "The user's staff or student number.")
	addUserType := addUserCmd.String("type", user.TypeUnbound, "One of unbound, teacher, student.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordPhone := resetPasswordCmd.String("phone", "", "The user's phone. The password will be prompted next.")

	addSchoolCmd := flag.NewFlagSet("addschool", flag.ContinueOnError)
	addSchoolName := addSchoolCmd.String("name", "", "The school's name.")
	addSchoolProvince := addSchoolCmd.String("province", "", "The school's province.")
	addSchoolCity := addSchoolCmd.String("city", "", "The school's city.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserPhone == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewUser{
			Phone:    *addUserPhone,
			Password: pwd,
			Name:     *addUserName,
			Number:   *addUserNumber,
			Email:    *addUserEmail,
			Type:     *addUserType,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordPhone == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordPhone, pwd)

	case "addschool":
		if err := addSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.addSchool(school.NewSchool{
			Name:     *addSchoolName,
			Province: *addSchoolProvince,
			City:     *addSchoolCity,
		})

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
