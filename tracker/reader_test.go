// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package tracker_test

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-pini/pipe"
	"github.com/diffeo/go-pini/snapshot"
	"github.com/diffeo/go-pini/tracker"
	"github.com/diffeo/go-pini/trackerdata"
	"github.com/diffeo/go-pini/trackerserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func labels(windows []tracker.Window) []string {
	result := make([]string, len(windows))
	for i, w := range windows {
		result[i] = w.Label
	}
	return result
}

func TestBuildWindows(t *testing.T) {
	tests := []struct {
		name   string
		first  time.Time
		labels []string
	}{
		{"earlier years", time.Date(2024, time.May, 3, 9, 0, 0, 0, time.UTC),
			[]string{"2024", "2025", "2026-01", "2026-02", "2026-03-01", "2026-03-08"}},
		{"this year", time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC),
			[]string{"2026-02", "2026-03-01", "2026-03-08"}},
		{"this month", time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
			[]string{"2026-03-01", "2026-03-08"}},
		{"local time", time.Date(2025, time.December, 31, 23, 0, 0, 0, time.FixedZone("x", -3*3600)),
			[]string{"2026-01", "2026-02", "2026-03-01", "2026-03-08"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := tracker.BuildWindows(tt.first, now)
			assert.Equal(t, tt.labels, labels(windows))
		})
	}
}

func TestWindowBounds(t *testing.T) {
	windows := tracker.BuildWindows(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), now)
	require.Len(t, windows, 5)
	for i, w := range windows {
		if i > 0 {
			assert.Equal(t, windows[i-1].End, w.Start, w.Label)
		}
		if i < len(windows)-1 {
			assert.True(t, w.Complete(now), w.Label)
		}
	}
	last := windows[len(windows)-1]
	assert.False(t, last.Complete(now))
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), last.End)
	assert.True(t, last.Complete(last.End))
}

func TestEmptyURL(t *testing.T) {
	_, err := tracker.NewClient("")
	assert.Equal(t, tracker.ErrNoURL, err)
}

func TestServerErrors(t *testing.T) {
	server := httptest.NewServer(trackerserver.NewRouter(trackerserver.NewDB(clock.NewMock())))
	defer server.Close()
	client, err := tracker.NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Search("Cat", trackerdata.SearchRequest{})
	assert.Equal(t, trackerdata.ErrUnknownEntityType{Type: "Cat"}, err)

	_, err = client.Create(trackerdata.Shot, trackerdata.Record{"code": "orphan"})
	assert.Equal(t, trackerdata.ErrNoProject, err)
}

// fixture is a tracker with one project and two assets a season
// apart, and a job to read them into.
type fixture struct {
	clock     *clock.Mock
	db        *trackerserver.DB
	job       *pipe.Job
	layout    pipe.Layout
	snapshots *snapshot.Memory
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		clock:     clock.NewMock(),
		layout:    pipe.Layout{JobsRoot: filepath.ToSlash(t.TempDir())},
		snapshots: snapshot.NewMemory(),
	}
	f.db = trackerserver.NewDB(f.clock)
	f.clock.Set(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	_, err := f.db.Create(trackerdata.Project, trackerdata.Record{"name": "braveheart"})
	require.NoError(t, err)
	f.clock.Add(24 * time.Hour)
	_, err = f.db.Create(trackerdata.Asset, trackerdata.Record{
		"project_id": 1, "code": "horse", "asset_type": "char",
	})
	require.NoError(t, err)
	f.clock.Set(now)
	_, err = f.db.Create(trackerdata.Asset, trackerdata.Record{
		"project_id": 1, "code": "dog", "asset_type": "char",
	})
	require.NoError(t, err)

	f.job, err = f.layout.SetupJob("braveheart")
	require.NoError(t, err)
	return f
}

// store creates a tracker store that talks to the fixture through
// handler, which should pass requests on to next.
func (f *fixture) store(t *testing.T, handler func(next http.Handler) http.Handler) *tracker.Store {
	server := httptest.NewServer(handler(trackerserver.NewRouter(f.db)))
	t.Cleanup(server.Close)
	client, err := tracker.NewClient(server.URL)
	require.NoError(t, err)
	return tracker.New(f.layout, client, tracker.Options{
		Clock:     f.clock,
		Snapshots: f.snapshots,
	})
}

// searchCounter counts search requests, optionally failing one.
type searchCounter struct {
	sem    sync.Mutex
	count  int
	failAt int
}

func (c *searchCounter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/_search") {
			c.sem.Lock()
			c.count++
			fail := c.count == c.failAt
			c.sem.Unlock()
			if fail {
				http.Error(w, "tracker is down", http.StatusServiceUnavailable)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

func (c *searchCounter) searches() int {
	c.sem.Lock()
	defer c.sem.Unlock()
	return c.count
}

func names(entities []*pipe.Entity) []string {
	result := make([]string, len(entities))
	for i, ety := range entities {
		result[i] = ety.Name
	}
	return result
}

// TestSnapshots checks that a second read of unchanged data comes
// from the top snapshot, and that a new record is picked up.
func TestSnapshots(t *testing.T) {
	f := newFixture(t)
	counter := &searchCounter{}
	store := f.store(t, counter.wrap)

	assets, err := store.ReadAssets(f.job)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "horse"}, names(assets))
	// project, last, first, 2025, 2026-01, 2026-02, two weeks
	assert.Equal(t, 8, counter.searches())
	// four complete windows and the top
	assert.Equal(t, 5, f.snapshots.Len())

	assets, err = store.ReadAssets(f.job)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "horse"}, names(assets))
	assert.Equal(t, 9, counter.searches())

	f.clock.Add(time.Minute)
	_, err = f.db.Create(trackerdata.Asset, trackerdata.Record{
		"project_id": 1, "code": "axe", "asset_type": "prop",
	})
	require.NoError(t, err)
	assets, err = store.ReadAssets(f.job)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "horse", "axe"}, names(assets))
	// last, first, open week
	assert.Equal(t, 12, counter.searches())
}

// TestDegradedRead checks that a failed window returns what was read
// so far, and that the next read completes it.
func TestDegradedRead(t *testing.T) {
	f := newFixture(t)
	counter := &searchCounter{failAt: 7}
	store := f.store(t, counter.wrap)

	// the first week of March fails
	assets, err := store.ReadAssets(f.job)
	require.NoError(t, err)
	assert.Equal(t, []string{"horse"}, names(assets))
	assert.Equal(t, 3, f.snapshots.Len())

	assets, err = store.ReadAssets(f.job)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "horse"}, names(assets))
	assert.Equal(t, 5, f.snapshots.Len())
}

// TestInconsistent checks that a tracker whose last update never
// shows up in the windows is an error.
func TestInconsistent(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			body, err := ioutil.ReadAll(req.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if bytes.Contains(body, []byte(`"desc"`)) {
				w.Header().Set("Content-Type", trackerdata.V1JSONMediaType)
				w.Write([]byte(`{"records": [{"id": 99, "updated_at": "2026-03-10T11:00:00.000000Z"}]}`))
				return
			}
			req.Body = ioutil.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, req)
		})
	})

	_, err := store.ReadAssets(f.job)
	assert.Equal(t, tracker.ErrInconsistent{EntityType: trackerdata.Asset, Job: "braveheart"}, err)
}

// TestMissingConfig checks that projects without a job directory, or
// with a directory but no config, are not jobs.
func TestMissingConfig(t *testing.T) {
	f := newFixture(t)
	_, err := f.db.Create(trackerdata.Project, trackerdata.Record{"name": "elsewhere"})
	require.NoError(t, err)
	_, err = f.db.Create(trackerdata.Project, trackerdata.Record{"name": "bare"})
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(f.layout.Root(), "bare"), 0755))
	store := f.store(t, func(next http.Handler) http.Handler { return next })

	jobs, err := store.ReadJobs()
	require.NoError(t, err)
	if assert.Len(t, jobs, 1) {
		assert.Equal(t, "braveheart", jobs[0].Name)
	}
}
