// Command deskctl is the operator CLI for the admin API: it signs in, lists
// and browses resources, edits records through the same form rules as the
// admin screens, and moves data in and out with export, template and bulk
// upload.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simp-lee/pressdesk/internal/client"
	"github.com/simp-lee/pressdesk/internal/config"
)

const defaultAPI = "http://localhost:8080"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	cmd := newRootCmd(&env{in: in, out: out, errOut: errOut})
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return exitCode(err)
	}
	return exitOK
}

// env is shared by every command once the persistent flags are parsed.
type env struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	apiURL      string
	sessionPath string
	verbose     bool
	asJSON      bool

	logger *slog.Logger
	client *client.Client
}

func newRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deskctl",
		Short:         "Operator CLI for the PressDesk admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
	}

	api := os.Getenv("DESKCTL_API")
	if api == "" {
		api = defaultAPI
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&e.apiURL, "api", api, "API base URL (env DESKCTL_API)")
	flags.StringVar(&e.sessionPath, "session", client.DefaultSessionPath(), "session file")
	flags.BoolVarP(&e.verbose, "verbose", "v", false, "log API requests")
	flags.BoolVar(&e.asJSON, "json", false, "print records as JSON lines")

	cmd.AddCommand(
		newLoginCmd(e),
		newLogoutCmd(e),
		newWhoamiCmd(e),
		newResourcesCmd(e),
		newListCmd(e),
		newBrowseCmd(e),
		newCreateCmd(e),
		newEditCmd(e),
		newDeleteCmd(e),
		newStatusCmd(e),
		newExportCmd(e),
		newTemplateCmd(e),
		newBulkUploadCmd(e),
	)
	return cmd
}

func (e *env) setup() error {
	level := "warn"
	if e.verbose {
		level = "debug"
	}
	color := false
	log, err := config.SetupLogger(&config.LogConfig{Level: level, Format: "text", Color: &color})
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("logger: %w", err))
	}
	e.logger = log.Logger

	sess, err := client.OpenFileSession(e.sessionPath)
	if err != nil {
		return withCode(exitUsage, err)
	}
	c, err := client.New(e.apiURL, sess, client.WithLogger(e.logger))
	if err != nil {
		return withCode(exitUsage, err)
	}
	e.client = c
	return nil
}

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitUsage      = 3
	exitAuth       = 4
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }

func (e *cliError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Unauthenticated():
			return exitAuth
		case apiErr.Status == 400:
			return exitValidation
		}
	}
	return exitFailure
}

// apiFailure adds a hint to errors the operator can act on.
func apiFailure(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Unauthenticated():
		return withCode(exitAuth, fmt.Errorf("%w; run \"deskctl login\"", err))
	case apiErr.Forbidden():
		return withCode(exitFailure, fmt.Errorf("%w; your role does not allow this", err))
	}
	return err
}

// parsePairs splits repeated key=value flags.
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, withCode(exitUsage, fmt.Errorf("expected key=value, got %q", p))
		}
		out[k] = v
	}
	return out, nil
}
