package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	auth "github.com/goliatone/go-admin-auth"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal
var isTerminal = term.IsTerminal

type createAdminFlags struct {
	configPath string
	username   string
	email      string
	fullName   string
}

func parseCreateAdmin(args []string) (createAdminFlags, error) {
	f := createAdminFlags{}
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.configPath, "c", "", "path to a JSON config file")
	fs.StringVar(&f.username, "username", "", "admin username")
	fs.StringVar(&f.email, "email", "", "admin email")
	fs.StringVar(&f.fullName, "name", "", "admin full name")

	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.username == "" || f.email == "" {
		return f, errors.New("-username and -email are required")
	}
	if f.fullName == "" {
		f.fullName = f.username
	}
	return f, nil
}

// createAdmin signs up an account from the command line. The password is
// read from the terminal without echo, or from the first line of stdin
// when it is not a terminal.
func createAdmin(ctx context.Context, args []string, in *os.File, out io.Writer) error {
	f, err := parseCreateAdmin(args)
	if err != nil {
		return err
	}

	var cfgArgs []string
	if f.configPath != "" {
		cfgArgs = []string{"-c", f.configPath}
	}
	cfg, err := loadConfig(cfgArgs)
	if err != nil {
		return err
	}

	password, err := promptPassword(in, out)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newService(cfg, db, newLogger(cfg))
	if err != nil {
		return err
	}

	res, err := svc.sessions.Signup(ctx, auth.SignupInput{
		FullName: f.fullName,
		Username: f.username,
		Email:    f.email,
		Password: password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created admin %s (%s)\n", res.User.Username, res.User.ID)
	return nil
}

func promptPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		return readLine(in)
	}

	fmt.Fprint(out, "Password: ")
	pw, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
