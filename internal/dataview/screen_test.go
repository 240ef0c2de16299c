package dataview

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authErr struct{}

func (authErr) Error() string         { return "token expired" }
func (authErr) Unauthenticated() bool { return true }

func fixedFetcher(records []pack) FetcherFunc[pack] {
	return func(context.Context) ([]pack, error) { return records, nil }
}

func TestScreen_MountFetches(t *testing.T) {
	s := NewScreen(packView, fixedFetcher(filterFixture), ScreenOptions[pack]{})
	require.NoError(t, s.Mount(context.Background()))
	defer s.Unmount()

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
	assert.Equal(t, 3, snap.Page.Total)
	assert.Equal(t, 2, snap.Page.PageCount)
	assert.Equal(t, []string{"Asia Wire", "Dubai Daily"}, names(snap.Page.Items))
}

func TestScreen_RefreshBeforeMount(t *testing.T) {
	s := NewScreen(packView, fixedFetcher(nil), ScreenOptions[pack]{})
	assert.ErrorIs(t, s.Refresh(), ErrNotMounted)
}

func TestScreen_FetchErrorEmptiesRecords(t *testing.T) {
	var fail atomic.Bool
	fetcher := FetcherFunc[pack](func(context.Context) ([]pack, error) {
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return filterFixture, nil
	})
	s := NewScreen(packView, fetcher, ScreenOptions[pack]{})
	require.NoError(t, s.Mount(context.Background()))
	defer s.Unmount()

	fail.Store(true)
	assert.Error(t, s.Refresh())
	snap := s.Snapshot()
	assert.EqualError(t, snap.Err, "boom")
	assert.Equal(t, 0, snap.Page.Total)
}

func TestScreen_AuthErrorInvokesHandler(t *testing.T) {
	var called atomic.Int32
	fetcher := FetcherFunc[pack](func(context.Context) ([]pack, error) {
		return nil, authErr{}
	})
	s := NewScreen(packView, fetcher, ScreenOptions[pack]{
		OnAuthError: func(error) { called.Add(1) },
	})
	err := s.Mount(context.Background())
	defer s.Unmount()

	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, int32(1), called.Load())
}

func TestScreen_NavigationAndFilters(t *testing.T) {
	s := NewScreen(packView, fixedFetcher(seqPacks(5)), ScreenOptions[pack]{})
	require.NoError(t, s.Mount(context.Background()))
	defer s.Unmount()

	s.Next()
	s.Next()
	s.Next()
	assert.Equal(t, 3, s.Snapshot().Page.Page)

	s.Prev()
	assert.Equal(t, 2, s.State().CurrentPage)

	s.Last()
	assert.Equal(t, 3, s.State().CurrentPage)

	s.SetFilter("region", "nowhere")
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.State.CurrentPage)
	assert.Equal(t, 0, snap.Page.Total)

	s.ClearFilters()
	s.SetPageSize(10)
	assert.Len(t, s.Snapshot().Page.Items, 5)

	s.SortBy("name")
	assert.Equal(t, Desc, s.State().SortDirection)
	assert.Equal(t, "p05", s.Records()[0].Name)

	s.First()
	assert.Equal(t, 1, s.State().CurrentPage)
}

func TestScreen_DebouncedSearch(t *testing.T) {
	changed := make(chan ViewState, 32)
	s := NewScreen(packView, fixedFetcher(filterFixture), ScreenOptions[pack]{
		Debounce: 20 * time.Millisecond,
		OnChange: func(snap Snapshot[pack]) { changed <- snap.State },
	})
	require.NoError(t, s.Mount(context.Background()))
	defer s.Unmount()

	s.Search("du")
	s.Search("dubai")
	assert.Equal(t, "dubai", s.State().SearchTerm)
	assert.Equal(t, "", s.State().DebouncedSearchTerm)

	require.Eventually(t, func() bool {
		return s.State().DebouncedSearchTerm == "dubai"
	}, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, []string{"Dubai Daily"}, names(snap.Page.Items))
}

func TestScreen_PendingUntilSearchRendered(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := NewScreen(packView, fixedFetcher(filterFixture), ScreenOptions[pack]{
		Debounce: 10 * time.Millisecond,
		OnChange: func(snap Snapshot[pack]) {
			if snap.State.DebouncedSearchTerm == "dubai" {
				close(entered)
				<-release
			}
		},
	})
	assert.False(t, s.Pending())
	require.NoError(t, s.Mount(context.Background()))
	defer s.Unmount()

	s.Search("dubai")
	assert.True(t, s.Pending())

	<-entered
	assert.True(t, s.Pending())

	close(release)
	require.Eventually(t, func() bool { return !s.Pending() }, time.Second, time.Millisecond)
	assert.Equal(t, "dubai", s.State().DebouncedSearchTerm)
}

func TestScreen_OnChangeMayUnmount(t *testing.T) {
	done := make(chan struct{})
	var s *Screen[pack]
	s = NewScreen(packView, fixedFetcher(filterFixture), ScreenOptions[pack]{
		Debounce: 10 * time.Millisecond,
		OnChange: func(snap Snapshot[pack]) {
			if snap.State.DebouncedSearchTerm == "quit" {
				s.Unmount()
				close(done)
			}
		},
	})
	require.NoError(t, s.Mount(context.Background()))

	s.Search("quit")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unmount from OnChange did not return")
	}
	assert.ErrorIs(t, s.Refresh(), ErrNotMounted)
	assert.False(t, s.Pending())
}

func TestScreen_UnmountDropsPendingSearchAndLateResults(t *testing.T) {
	release := make(chan struct{})
	fetcher := FetcherFunc[pack](func(ctx context.Context) ([]pack, error) {
		<-release
		return filterFixture, nil
	})
	s := NewScreen(packView, fetcher, ScreenOptions[pack]{Debounce: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- s.Mount(context.Background()) }()

	require.Eventually(t, func() bool { return s.Snapshot().Loading }, time.Second, time.Millisecond)
	s.Search("gulf")
	s.Unmount()
	close(release)

	assert.NoError(t, <-done)
	time.Sleep(40 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Page.Total)
	assert.Equal(t, "", snap.State.DebouncedSearchTerm)
}

func TestScreen_StaleRefreshDiscarded(t *testing.T) {
	var calls atomic.Int32
	slow := make(chan struct{})
	fetcher := FetcherFunc[pack](func(ctx context.Context) ([]pack, error) {
		if calls.Add(1) == 2 {
			<-slow
			return seqPacks(9), nil
		}
		return filterFixture, nil
	})
	s := NewScreen(packView, fetcher, ScreenOptions[pack]{})
	require.NoError(t, s.Mount(context.Background()))
	defer s.Unmount()

	done := make(chan struct{})
	go func() {
		_ = s.Refresh()
		close(done)
	}()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, s.Refresh())
	close(slow)
	<-done

	assert.Equal(t, 3, s.Snapshot().Page.Total)
}
