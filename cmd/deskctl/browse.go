package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/simp-lee/pressdesk/internal/dataview"
)

const browseHelp = `Type to search; the table refreshes once typing pauses.
Commands:
  :next :prev :first :last      move between pages
  :sort <field>                 sort, again to reverse
  :filter <key>=<value>         set a filter, empty value clears it
  :clear                        clear every filter
  :size <n>                     rows per page
  :refresh                      refetch from the server
  :quit                         leave`

const settlePoll = 5 * time.Millisecond

// Browse mounts an interactive list screen. Every input line that is not a
// command is a search keystroke burst; rendering waits for the debounced
// term.
func (t *typed[T]) Browse(ctx context.Context, in io.Reader, p printer, debounce time.Duration) error {
	var (
		mu       sync.Mutex
		lastView string
	)
	renderFailed := make(chan error, 1)
	render := func(snap dataview.Snapshot[T]) {
		if snap.Loading {
			return
		}
		key := fmt.Sprintf("%v|%d|%d|%s:%s|%s|%v", snap.State.Filters, snap.State.CurrentPage, snap.State.PageSize,
			snap.State.SortField, snap.State.SortDirection, snap.State.DebouncedSearchTerm, snap.Err)
		key += "|" + strconv.Itoa(snap.Page.Total)

		mu.Lock()
		defer mu.Unlock()
		if key == lastView {
			return
		}
		lastView = key
		if snap.Err != nil {
			fmt.Fprintf(p.w, "Failed to load %s: %v\n", t.def.Title, snap.Err)
			return
		}
		if term := snap.State.DebouncedSearchTerm; term != "" {
			fmt.Fprintf(p.w, "Search: %q\n", term)
		}
		if err := t.print(p, snap.State, snap.Page); err != nil {
			select {
			case renderFailed <- err:
			default:
			}
		}
	}

	authFailed := make(chan error, 1)
	screen := dataview.NewScreen[T](t.def.View(), t.res, dataview.ScreenOptions[T]{
		Debounce: debounce,
		OnChange: render,
		OnAuthError: func(err error) {
			select {
			case authFailed <- err:
			default:
			}
		},
	})

	fmt.Fprintf(p.w, "%s\n%s\n", t.def.Title, browseHelp)
	_ = screen.Mount(ctx)
	defer screen.Unmount()

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-authFailed:
			return apiFailure(err)
		case err := <-renderFailed:
			return fmt.Errorf("render %s: %w", t.def.Name, err)
		case line, ok := <-lines:
			if !ok {
				// let a pending search land before leaving
				if err := settle(ctx, screen); err != nil {
					return err
				}
				select {
				case err := <-renderFailed:
					return fmt.Errorf("render %s: %w", t.def.Name, err)
				default:
					return nil
				}
			}
			if quit := browseCommand(screen, line, p); quit {
				return nil
			}
		}
	}
}

// settle waits until no typed search term is left to commit and render.
func settle[T any](ctx context.Context, s *dataview.Screen[T]) error {
	tick := time.NewTicker(settlePoll)
	defer tick.Stop()
	for s.Pending() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func browseCommand[T any](s *dataview.Screen[T], line string, p printer) (quit bool) {
	if !strings.HasPrefix(line, ":") {
		s.Search(line)
		return false
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "q", "quit":
		return true
	case "next":
		s.Next()
	case "prev":
		s.Prev()
	case "first":
		s.First()
	case "last":
		s.Last()
	case "sort":
		s.SortBy(arg)
	case "filter":
		k, v, _ := strings.Cut(arg, "=")
		s.SetFilter(strings.TrimSpace(k), v)
	case "clear":
		s.ClearFilters()
	case "size":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			fmt.Fprintf(p.w, "invalid page size %q\n", arg)
			return false
		}
		s.SetPageSize(n)
	case "refresh":
		_ = s.Refresh()
	case "help":
		fmt.Fprintln(p.w, browseHelp)
	default:
		fmt.Fprintf(p.w, "unknown command %q, try :help\n", name)
	}
	return false
}
