package dataview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNotMounted is returned by Refresh before Mount or after Unmount.
var ErrNotMounted = errors.New("dataview: screen is not mounted")

// ScreenOptions configures a Screen.
type ScreenOptions[T any] struct {
	// Debounce is the search quiet period; DefaultDebounce when zero.
	Debounce time.Duration
	// OnAuthError runs when a fetch fails with rejected credentials.
	OnAuthError func(error)
	// OnChange runs after every state or data change with a fresh snapshot.
	// It may call any Screen method, Unmount included.
	OnChange func(Snapshot[T])
	Logger   *slog.Logger
}

// Snapshot is a consistent, rendered view of a Screen.
type Snapshot[T any] struct {
	State   ViewState
	Page    Page[T]
	Loading bool
	Err     error
}

// Screen is a mounted list screen: it owns the fetched records, the view
// state and the search debouncer. All methods are safe for concurrent use.
type Screen[T any] struct {
	view    View[T]
	fetcher Fetcher[T]
	opts    ScreenOptions[T]
	logger  *slog.Logger

	mu      sync.Mutex
	state   ViewState
	records []T
	loading bool
	err     error
	mounted bool
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	search  *Debouncer
}

// NewScreen creates an unmounted screen.
func NewScreen[T any](view View[T], fetcher Fetcher[T], opts ScreenOptions[T]) *Screen[T] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Screen[T]{
		view:    view,
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		state:   view.NewState(),
	}
}

// Mount activates the screen and performs the initial fetch. The screen stays
// mounted even when that fetch fails.
func (s *Screen[T]) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return s.Refresh()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mounted = true
	s.search = NewDebouncer(s.opts.Debounce, s.commitSearch)
	s.mu.Unlock()

	return s.Refresh()
}

// Unmount cancels in-flight fetches and any pending search. Results that
// arrive afterwards are discarded.
func (s *Screen[T]) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	s.gen++
	s.cancel()
	search := s.search
	s.mu.Unlock()

	search.Stop()
}

// Refresh refetches the collection. A newer Refresh supersedes an older one
// still in flight. On failure the record set is emptied and the error kept
// for display.
func (s *Screen[T]) Refresh() error {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return ErrNotMounted
	}
	s.gen++
	id := s.gen
	s.loading = true
	ctx := s.ctx
	s.mu.Unlock()
	s.notify()

	records, err := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	if !s.mounted || id != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.records = nil
		s.err = err
	} else {
		s.records = records
		s.err = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("fetch failed", "error", err)
		if IsUnauthenticated(err) && s.opts.OnAuthError != nil {
			s.opts.OnAuthError(err)
		}
	}
	s.notify()
	return err
}

// Search records raw input and schedules it to become the filtering term
// once typing pauses.
func (s *Screen[T]) Search(raw string) {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.state.SearchTerm = raw
	search := s.search
	s.mu.Unlock()

	search.Push(raw)
	s.notify()
}

func (s *Screen[T]) commitSearch(term string) {
	s.mu.Lock()
	changed := s.mounted && s.state.CommitSearch(term)
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Pending reports whether a typed search term has yet to be committed and
// rendered.
func (s *Screen[T]) Pending() bool {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return false
	}
	search := s.search
	s.mu.Unlock()
	return search.Pending()
}

// SetFilter sets a filter control value and returns to page 1.
func (s *Screen[T]) SetFilter(key, raw string) {
	s.update(func(st *ViewState) { st.SetFilter(key, raw) })
}

// ClearFilters resets every filter control.
func (s *Screen[T]) ClearFilters() {
	s.update(func(st *ViewState) { st.ClearFilters() })
}

// SortBy sorts on field, toggling the direction when it is already active.
func (s *Screen[T]) SortBy(field string) {
	s.update(func(st *ViewState) { st.SortBy(field) })
}

// SetPageSize changes the page size and returns to page 1.
func (s *Screen[T]) SetPageSize(n int) {
	s.update(func(st *ViewState) { st.SetPageSize(n) })
}

func (s *Screen[T]) First() { s.update(func(st *ViewState) { st.First() }) }

func (s *Screen[T]) Prev() { s.paged(func(st *ViewState, n int) { st.Prev(n) }) }

func (s *Screen[T]) Next() { s.paged(func(st *ViewState, n int) { st.Next(n) }) }

func (s *Screen[T]) Last() { s.paged(func(st *ViewState, n int) { st.Last(n) }) }

// Records returns the filtered and sorted records across all pages.
func (s *Screen[T]) Records() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Select(s.records, s.state)
}

// State returns a copy of the current view state.
func (s *Screen[T]) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Snapshot renders the current page.
func (s *Screen[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Screen[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		State:   s.state.Clone(),
		Page:    s.view.Apply(s.records, s.state),
		Loading: s.loading,
		Err:     s.err,
	}
}

func (s *Screen[T]) update(fn func(*ViewState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *Screen[T]) paged(fn func(*ViewState, int)) {
	s.mu.Lock()
	count := PageCount(len(s.view.Select(s.records, s.state)), s.state.PageSize)
	fn(&s.state, count)
	s.mu.Unlock()
	s.notify()
}

func (s *Screen[T]) notify() {
	if s.opts.OnChange == nil {
		return
	}
	s.opts.OnChange(s.Snapshot())
}
