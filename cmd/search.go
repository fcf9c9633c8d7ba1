package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/internal/search"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find thana incharge officers by name or email",
	Long: `With a query argument the search runs once. Without one, every line read
from stdin is treated as a keystroke of the type-ahead input: lines are debounced
and only the latest query's results are printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, deps := newClient(cmd)
		svc := search.NewThanaService(deps.Backend, deps.Cache, deps.Config.Search.PageLimit, deps.Logger)

		if len(args) == 1 {
			page, err := svc.Search(ctx, args[0])
			if err != nil {
				return describeError(err)
			}
			printOfficers(cmd.OutOrStdout(), args[0], page)
			return nil
		}
		return typeAhead(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), deps, svc)
	},
}

func typeAhead(ctx context.Context, in io.Reader, out io.Writer, deps *clientDeps, svc *search.ThanaService) error {
	var (
		mu      sync.Mutex
		lastErr error
	)
	d := search.NewDebouncer(ctx, deps.Config.Search.DebounceDelay, svc.Search,
		func(r search.Result[*backend.DocsPage[userDatamodel.ThanaIncharge]]) {
			mu.Lock()
			defer mu.Unlock()
			if r.Err != nil {
				lastErr = r.Err
				fmt.Fprintf(out, "search %q failed: %v\n", r.Input, describeError(r.Err))
			} else {
				lastErr = nil
				printOfficers(out, r.Input, r.Value)
			}
		})
	defer d.Stop()

	var last string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		last = strings.TrimSpace(scanner.Text())
		d.Input(last)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// end of input settles the box: run whatever was typed last right away
	d.Flush(last)

	mu.Lock()
	defer mu.Unlock()
	return lastErr
}

func printOfficers(out io.Writer, query string, page *backend.DocsPage[userDatamodel.ThanaIncharge]) {
	if page == nil || len(page.Docs) == 0 {
		fmt.Fprintf(out, "no officers match %q\n", query)
		return
	}
	fmt.Fprintf(out, "%d of %d officers for %q\n", len(page.Docs), page.TotalDocs, query)
	for _, o := range page.Docs {
		line := fmt.Sprintf("  %s  %s <%s>", o.ID, o.Name, o.Email)
		if o.Jurisdiction != "" {
			line += "  " + o.Jurisdiction
		}
		fmt.Fprintln(out, line)
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
