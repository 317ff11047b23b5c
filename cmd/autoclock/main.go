/*
autoclock logs into a web HR portal during work hours and clicks the
attendance toggle if you are not clocked in yet.

It is meant to be triggered by cron or a similar scheduler. Have a look at
the README.md for more information.
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jakopako/autoclock/internal/browser"
	"github.com/jakopako/autoclock/internal/config"
	"github.com/jakopako/autoclock/internal/credentials"
	"github.com/jakopako/autoclock/internal/log"
	"github.com/jakopako/autoclock/internal/schedule"
	"github.com/jakopako/autoclock/internal/session"
	"github.com/spf13/afero"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var version = "dev"

type VersionFlag string

func (v VersionFlag) Decode(_ *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                       { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

type Globals struct {
	Version VersionFlag `short:"v" long:"version" help:"Print the version and exit."`
	Debug   bool        `short:"d" long:"debug" help:"Set log level to 'debug'."`
	Config  string      `short:"c" long:"config" default:"./autoclock.yaml" help:"Optional yaml configuration file. Environment variables take precedence." type:"path"`
}

type cli struct {
	Globals

	Run     RunCmd     `cmd:"" default:"1" help:"Clock in if the current time is within the work window (default)."`
	Check   CheckCmd   `cmd:"" help:"Only evaluate the work window."`
	Env     EnvCmd     `cmd:"" help:"Print the environment variables autoclock reads."`
	Keyring KeyringCmd `cmd:"" help:"Manage the password stored in the OS keyring."`
}

type RunCmd struct {
	Force bool `short:"f" help:"Ignore the work window and clock in right away."`
}

func (r *RunCmd) Run(g *Globals) error {
	c, err := config.NewConfig(g.Config)
	if err != nil {
		return err
	}

	status, _, err := checkWindow(c)
	if err != nil {
		return err
	}
	if !status.Open() && !r.Force {
		slog.Info("Outside of work hours or not a workday. Skipping login.")
		return nil
	}
	if r.Force {
		slog.Info("Ignoring the work window. Proceeding with login...")
	} else {
		slog.Info("Time check passed. Proceeding with login...")
	}

	if err := c.ResolvePassword(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := session.New(c, browser.LaunchChrome, afero.NewOsFs())
	res, err := m.Run(ctx)
	if err != nil {
		return err
	}
	if !res.Success() {
		slog.Error("Login failed")
		return nil
	}
	slog.Info("run finished",
		slog.Bool("already_logged_in", res.AlreadyLoggedIn),
		slog.String("status", res.State.String()),
		slog.Bool("clicked", res.Clicked),
		slog.String("screenshot", res.Screenshot))
	return nil
}

type CheckCmd struct {
	PrintConfig bool `short:"p" help:"Print the effective configuration (password redacted) as yaml."`
}

func (cc *CheckCmd) Run(g *Globals) error {
	c, err := config.NewConfig(g.Config)
	if err != nil {
		return err
	}
	if cc.PrintConfig {
		yamlData, err := yaml.Marshal(c.Redacted())
		if err != nil {
			return fmt.Errorf("error while marshalling config: %w", err)
		}
		fmt.Println(string(yamlData))
	}

	status, window, err := checkWindow(c)
	if err != nil {
		return err
	}
	if status.Open() {
		slog.Info("inside the work window")
		return nil
	}
	next, err := window.Next(time.Now())
	if err != nil {
		return fmt.Errorf("failed to compute the next work window: %w", err)
	}
	slog.Info(fmt.Sprintf("outside the work window, next opening at %s", next.Format(time.RFC1123)))
	return nil
}

// checkWindow evaluates the work window for the current time and prints the report.
func checkWindow(c *config.Config) (schedule.Status, *schedule.Window, error) {
	window, err := schedule.NewWindow(c.Schedule)
	if err != nil {
		return schedule.Status{}, nil, err
	}
	status := window.Check(time.Now())
	fmt.Println("Time Check Status:")
	if err := status.Report(os.Stdout); err != nil {
		return status, window, err
	}
	return status, window, nil
}

type EnvCmd struct{}

func (e *EnvCmd) Run() error {
	d, err := config.Description()
	if err != nil {
		return err
	}
	fmt.Println(d)
	return nil
}

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store the password in the OS keyring."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the password from the OS keyring."`
}

type KeyringTarget struct {
	Service string `short:"s" default:"autoclock" help:"Keyring service name. Set KEYRING_SERVICE to the same value to use the stored password."`
	User    string `short:"u" help:"Portal user name. Defaults to the configured username."`
}

func (kt *KeyringTarget) keyring(g *Globals) (*credentials.Keyring, error) {
	user := kt.User
	if user == "" {
		c, err := config.NewConfig(g.Config)
		if err != nil {
			return nil, err
		}
		user = c.Username
	}
	if user == "" {
		return nil, errors.New("no user name given, use --user or set username")
	}
	return credentials.NewKeyring(kt.Service, user), nil
}

type KeyringSetCmd struct {
	KeyringTarget `embed:""`
}

func (k *KeyringSetCmd) Run(g *Globals) error {
	kr, err := k.keyring(g)
	if err != nil {
		return err
	}
	password, err := readPassword()
	if err != nil {
		return err
	}
	if err := kr.Set(password); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("stored password for %s in keyring service %s", kr.User, kr.Service))
	return nil
}

type KeyringDeleteCmd struct {
	KeyringTarget `embed:""`
}

func (k *KeyringDeleteCmd) Run(g *Globals) error {
	kr, err := k.keyring(g)
	if err != nil {
		return err
	}
	if err := kr.Delete(); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("removed password for %s from keyring service %s", kr.User, kr.Service))
	return nil
}

// readPassword prompts without echo on a terminal and reads a single line otherwise.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func getVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if ok {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			return buildInfo.Main.Version
		}
	}
	return version
}

func main() {
	cli := cli{
		Globals: Globals{
			Version: VersionFlag(getVersion()),
		},
	}

	ctx := kong.Parse(&cli,
		kong.Name("autoclock"),
		kong.Description("Clock in on a web HR portal during work hours."),
		kong.Vars{
			"version": string(cli.Version),
		})

	log.Debug = cli.Debug
	log.InitializeDefaultLogger()

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
