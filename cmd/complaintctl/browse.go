package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/usecase"
)

const browseHelp = `commands:
  n | p | g <page>          next, previous or given page
  f <field> <value>         set a filter (department, complaintType, status, workerName)
  cf                        clear filters and search
  s <term>                  real-time search
  cs                        clear the search term
  pick <n>                  pin the table to search result n
  open <code>               show one complaint
  stats                     show counters
  r                         refresh
  q                         quit`

// runBrowse drives the directory from line commands on stdin. Search results
// arrive asynchronously and are printed as soon as the directory reports
// them.
func runBrowse(ctx context.Context, c *cli, args []string) error {
	if _, err := c.parse("browse", args, func(*flag.FlagSet) {}); err != nil {
		return err
	}

	// Search results land on the debounce timer goroutine, so every write to
	// stdout and every read of lastTerm goes through outMu.
	var outMu sync.Mutex
	var lastTerm string
	say := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		c.printf(format, args...)
	}
	resetTerm := func() {
		outMu.Lock()
		lastTerm = ""
		outMu.Unlock()
	}

	dir := c.app.NewDirectory(func(view usecase.DirectoryView) {
		outMu.Lock()
		defer outMu.Unlock()
		if !view.ShowResults || view.SearchTerm == lastTerm {
			return
		}
		lastTerm = view.SearchTerm
		c.printf("results for %q:\n", view.SearchTerm)
		for i, item := range view.SearchResults {
			c.printf("  %d. %s  %s  %s\n", i+1, item.Code, item.Type, item.WorkerFullName)
		}
	})
	defer dir.Close()

	show := func(err error) {
		outMu.Lock()
		defer outMu.Unlock()
		if err != nil {
			fmt.Fprintln(c.stderr, c.app.Catalog.Error(err))
			return
		}
		printView(c, dir.View())
	}

	show(dir.Refresh(ctx))
	say("%s\n", browseHelp)

	scanner := bufio.NewScanner(c.stdin)
	for {
		say("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "":
		case "q", "quit", "exit":
			return nil
		case "n":
			show(dir.NextPage(ctx))
		case "p":
			show(dir.PreviousPage(ctx))
		case "g":
			page, err := strconv.Atoi(rest)
			if err != nil {
				say("%s\n", browseHelp)
				continue
			}
			show(dir.GoToPage(ctx, page-1))
		case "f":
			field, value, _ := strings.Cut(rest, " ")
			show(dir.SetFilter(ctx, domain.FilterField(field), value))
		case "cf":
			resetTerm()
			show(dir.ClearFilters(ctx))
		case "s":
			resetTerm()
			dir.SetSearchTerm(rest)
		case "cs":
			show(dir.ClearSearch(ctx))
		case "pick":
			n, err := strconv.Atoi(rest)
			if err != nil {
				say("%s\n", browseHelp)
				continue
			}
			selected, err := dir.SelectResult(n - 1)
			if err != nil {
				show(err)
				continue
			}
			show(nil)
			details, err := c.app.DetailsUC.ByCode(ctx, selected.Code)
			if err != nil {
				show(err)
				continue
			}
			outMu.Lock()
			printDetails(c, details)
			outMu.Unlock()
		case "open":
			details, err := c.app.DetailsUC.ByCode(ctx, rest)
			if err != nil {
				show(err)
				continue
			}
			outMu.Lock()
			printDetails(c, details)
			outMu.Unlock()
		case "stats":
			stats, err := dir.LoadStats(ctx)
			if err != nil {
				show(err)
				continue
			}
			say("total %d, pending %d, resolved %d\n", stats.Total, stats.Pending, stats.Resolved)
		case "r":
			show(dir.Refresh(ctx))
		default:
			say("%s\n", browseHelp)
		}
	}
}
