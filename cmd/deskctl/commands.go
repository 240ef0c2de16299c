package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/form"
)

func newLoginCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(e.in)
			if email == "" {
				email = prompt(r, e.out, "Email: ")
			}
			if password == "" {
				password = prompt(r, e.out, "Password: ")
			}
			creds, err := e.client.Login(cmd.Context(), email, password)
			if err != nil {
				return apiFailure(err)
			}
			fmt.Fprintf(e.out, "Logged in as %s (%s)\n", creds.Email, creds.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := e.client.Me(cmd.Context())
			if err != nil {
				return apiFailure(err)
			}
			if e.asJSON {
				return printer{w: e.out, json: true}.writeJSON(me)
			}
			fmt.Fprintf(e.out, "%s <%s> role=%s\n", me.Name, me.Email, me.Role)
			return nil
		},
	}
}

func newResourcesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the managed resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metas, err := e.client.Resources(cmd.Context())
			if err != nil {
				return apiFailure(err)
			}
			p := printer{w: e.out, json: e.asJSON}
			for _, m := range metas {
				if p.json {
					if err := p.writeJSON(m); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(e.out, "%-28s %s\n", m.Name, m.Title)
			}
			return nil
		},
	}
}

// viewFlags are the list controls shared by list, browse and export.
type viewFlags struct {
	filters  []string
	search   string
	sort     string
	page     int
	pageSize int
}

func (f *viewFlags) bind(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "filter as key=value (repeatable)")
	cmd.Flags().StringVar(&f.search, "search", "", "search term")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort as field or field:asc|desc")
	if paging {
		cmd.Flags().IntVar(&f.page, "page", 1, "page number")
		cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page")
	}
}

// state applies the flags to a fresh view state in the order a user would:
// filters and search reset the page, so the page goes last.
func (f *viewFlags) state(ops resourceOps) (dataview.ViewState, error) {
	st := ops.NewState()
	filters, err := parsePairs(f.filters)
	if err != nil {
		return st, err
	}
	known := map[string]bool{}
	for _, k := range ops.FilterKeys() {
		known[k] = true
	}
	for k, v := range filters {
		if !known[k] {
			return st, withCode(exitUsage, fmt.Errorf("unknown filter %q for %s (one of %s)", k, ops.Meta().Name, strings.Join(ops.FilterKeys(), ", ")))
		}
		st.SetFilter(k, v)
	}
	st.SearchTerm = f.search
	st.CommitSearch(f.search)

	if f.sort != "" {
		field, dirRaw, _ := strings.Cut(f.sort, ":")
		dir, ok := dataview.ParseDirection(dirRaw)
		if !ok {
			dir = dataview.Asc
		}
		st.SetSort(strings.TrimSpace(field), dir)
	}
	if f.pageSize > 0 {
		st.SetPageSize(f.pageSize)
	}
	if f.page > 1 {
		st.CurrentPage = f.page
	}
	return st, nil
}

func newListCmd(e *env) *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print one page of records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			st, err := vf.state(ops)
			if err != nil {
				return err
			}
			if err := ops.List(cmd.Context(), st, printer{w: e.out, json: e.asJSON}); err != nil {
				return apiFailure(err)
			}
			return nil
		},
	}
	vf.bind(cmd, true)
	return cmd
}

func newBrowseCmd(e *env) *cobra.Command {
	var debounce string
	cmd := &cobra.Command{
		Use:   "browse <resource>",
		Short: "Interactively search, filter, sort and page through records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			d, err := time.ParseDuration(debounce)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("invalid --debounce: %w", err))
			}
			return ops.Browse(cmd.Context(), e.in, printer{w: e.out}, d)
		},
	}
	cmd.Flags().StringVar(&debounce, "debounce", dataview.DefaultDebounce.String(), "search quiet period")
	return cmd
}

func newCreateCmd(e *env) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a record from --set key=value fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			values, err := parsePairs(sets)
			if err != nil {
				return err
			}
			st, err := ops.Create(cmd.Context(), form.Values(values))
			if err != nil {
				return formFailure(st, err)
			}
			fmt.Fprintf(e.out, "Created %s\n", ops.Meta().Singular)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as key=value (repeatable)")
	return cmd
}

func newEditCmd(e *env) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "edit <resource> <id>",
		Short: "Change fields of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			values, err := parsePairs(sets)
			if err != nil {
				return err
			}
			st, err := ops.Edit(cmd.Context(), args[1], form.Values(values))
			if err != nil {
				return formFailure(st, err)
			}
			fmt.Fprintf(e.out, "Updated %s %s\n", ops.Meta().Singular, args[1])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as key=value (repeatable)")
	return cmd
}

func newDeleteCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			if !yes && !confirm(bufio.NewReader(e.in), e.out, fmt.Sprintf("Delete %s %s?", ops.Meta().Singular, args[1])) {
				fmt.Fprintln(e.out, "Cancelled")
				return nil
			}
			if err := ops.Endpoint().Delete(cmd.Context(), args[1]); err != nil {
				return apiFailure(err)
			}
			fmt.Fprintf(e.out, "Deleted %s %s\n", ops.Meta().Singular, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newStatusCmd(e *env) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "status <resource> <id> <pending|approved|rejected>",
		Short: "Moderate a submitted record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			if !ops.Meta().Moderated {
				return withCode(exitUsage, fmt.Errorf("%s records have no review status", ops.Meta().Name))
			}
			if !validStatus(args[2]) {
				return withCode(exitUsage, fmt.Errorf("invalid status %q", args[2]))
			}
			if err := ops.Endpoint().SetStatus(cmd.Context(), args[1], args[2], reason); err != nil {
				return apiFailure(err)
			}
			fmt.Fprintf(e.out, "%s %s is now %s\n", ops.Meta().Singular, args[1], args[2])
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var (
		vf     viewFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Download the records matching the filters as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			st, err := vf.state(ops)
			if err != nil {
				return err
			}
			return download(e, output, func(w io.Writer) (string, error) {
				return ops.Endpoint().Export(cmd.Context(), st, format, w)
			})
		},
	}
	vf.bind(cmd, false)
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory (default: server file name in the current directory, - for stdout)")
	return cmd
}

func newTemplateCmd(e *env) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "template <resource>",
		Short: "Download the bulk upload template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			return download(e, output, func(w io.Writer) (string, error) {
				return ops.Endpoint().Template(cmd.Context(), format, w)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory (- for stdout)")
	return cmd
}

func newBulkUploadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-upload <resource> <file>",
		Short: "Create records from a CSV or XLSX file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := lookupResource(e.client, args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer f.Close()

			res, err := ops.Endpoint().BulkUpload(cmd.Context(), filepath.Base(args[1]), f)
			if err != nil {
				return apiFailure(err)
			}
			if e.asJSON {
				return printer{w: e.out, json: true}.writeJSON(res)
			}
			fmt.Fprintf(e.out, "Created %d records\n", res.Created)
			for _, re := range res.Errors {
				fmt.Fprintf(e.out, "  row %d: %s\n", re.Row, re.Error)
			}
			if len(res.Errors) > 0 {
				return withCode(exitValidation, fmt.Errorf("%d rows were rejected", len(res.Errors)))
			}
			return nil
		},
	}
}

// download streams a file to output. Content goes to a temp file first so a
// failed request leaves nothing behind.
func download(e *env, output string, fetch func(io.Writer) (string, error)) error {
	if output == "-" {
		_, err := fetch(e.out)
		return apiFailure(err)
	}

	dir := "."
	if output != "" {
		if fi, err := os.Stat(output); err == nil && fi.IsDir() {
			dir = output
			output = ""
		} else {
			dir = filepath.Dir(output)
		}
	}
	tmp, err := os.CreateTemp(dir, ".deskctl-*")
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer os.Remove(tmp.Name())

	name, err := fetch(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return apiFailure(err)
	}

	if output == "" {
		if name == "" {
			name = "download"
		}
		output = filepath.Join(dir, filepath.Base(name))
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Saved %s\n", output)
	return nil
}

func prompt(r *bufio.Reader, w io.Writer, label string) string {
	fmt.Fprint(w, label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

// confirm accepts y or yes; anything else, including EOF, declines.
func confirm(r *bufio.Reader, w io.Writer, question string) bool {
	switch strings.ToLower(prompt(r, w, question+" [y/N] ")) {
	case "y", "yes":
		return true
	}
	return false
}
