package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type orgCreator interface {
	CreateSchool(ctx context.Context, req dto.CreateSchoolRequest) (*models.School, error)
	CreateClass(ctx context.Context, req dto.CreateClassRequest) (*dto.ClassView, error)
}

type passwordResetter interface {
	ResetPassword(ctx context.Context, username, plain string) error
}

type commandLine struct {
	org       orgCreator
	passwords passwordResetter
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createschool -name NAME -unique UNIQUE_NAME -tz OFFSET [-description TEXT] - register a school")
	fmt.Fprintln(cli.out, "  createclass -school UNIQUE_NAME -name NAME - add a class to a school")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME - reset a user's password (prompted)")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "createschool":
		fs := cli.flagSet("createschool")
		name := fs.String("name", "", "Display name of the school.")
		unique := fs.String("unique", "", "Unique name used to reference the school.")
		description := fs.String("description", "", "Optional description.")
		tz := fs.Float64("tz", 0, "UTC offset in hours, e.g. 1 or 5.5.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *name == "" || *unique == "" {
			fs.Usage()
			return errHelp
		}
		school, err := cli.org.CreateSchool(ctx, dto.CreateSchoolRequest{
			Name:           *name,
			Description:    *description,
			UniqueName:     *unique,
			TimezoneOffset: tz,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "school %s created (%s)\n", school.UniqueName, school.ID)
		return nil

	case "createclass":
		fs := cli.flagSet("createclass")
		school := fs.String("school", "", "Unique name of the school.")
		name := fs.String("name", "", "Class name.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *school == "" || *name == "" {
			fs.Usage()
			return errHelp
		}
		class, err := cli.org.CreateClass(ctx, dto.CreateClassRequest{Name: *name, School: *school})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "class %s created in %s (%s)\n", class.Name, class.School, class.ID)
		return nil

	case "resetpassword":
		fs := cli.flagSet("resetpassword")
		username := fs.String("username", "", "The user's username. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *username == "" {
			fs.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			fs.Usage()
			return errHelp
		}
		if err := cli.passwords.ResetPassword(ctx, *username, string(pwd)); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "password updated")
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}
