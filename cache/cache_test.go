// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache_test

import (
	"io/ioutil"
	"os"
	"path"
	"strconv"
	"testing"
	"time"

	"github.com/diffeo/go-pini/cache"
	"github.com/diffeo/go-pini/disk"
	"github.com/diffeo/go-pini/pipe"
	"github.com/diffeo/go-pini/pipe/pipetest"
	"github.com/stretchr/testify/suite"
)

// Suite tests the cache over a disk store holding the braveheart
// fixture.
type Suite struct {
	suite.Suite

	// store builds the fixture.  It is not run as a suite itself.
	store pipetest.Suite

	Fixture *pipetest.Fixture
	Root    *cache.Root
}

func (s *Suite) SetupSuite() {
	s.store.SetupSuite()
	s.store.NewStore = func(layout pipe.Layout) (pipe.Store, error) {
		return disk.New(layout), nil
	}
}

func (s *Suite) SetupTest() {
	s.store.SetT(s.T())
	s.store.SetupTest()
	s.Fixture = s.store.Braveheart()
	s.Root = s.newRoot(cache.Options{})
}

func (s *Suite) newRoot(opts cache.Options) *cache.Root {
	opts.Clock = s.store.Clock
	return cache.New(s.store.Store, opts)
}

func (s *Suite) job(root *cache.Root) *cache.Job {
	job, err := root.FindJob("braveheart")
	s.Require().NoError(err)
	return job
}

func (s *Suite) horse(root *cache.Root) *cache.Entity {
	horse, err := s.job(root).FindAsset("char.horse")
	s.Require().NoError(err)
	return horse
}

func (s *Suite) model(root *cache.Root) *cache.WorkDir {
	wd, err := s.horse(root).FindWorkDir("model")
	s.Require().NoError(err)
	return wd
}

// TestObtIdempotent checks that every way of reaching an object
// returns the same wrapper.
func (s *Suite) TestObtIdempotent() {
	job := s.job(s.Root)
	again, err := s.Root.ObtJob(s.Fixture.Job)
	if s.NoError(err) {
		s.True(job == again)
	}

	horse := s.horse(s.Root)
	obt, err := job.ObtEntity(s.Fixture.Horse)
	if s.NoError(err) {
		s.True(horse == obt)
	}
	to, err := job.ToAsset("char", "horse")
	if s.NoError(err) {
		s.True(horse == to)
	}

	wd, err := horse.ObtWorkDir(s.Fixture.Model)
	if s.NoError(err) {
		s.True(s.model(s.Root) == wd)
	}
	work, err := wd.ObtWork(s.Fixture.Works[1])
	if s.NoError(err) {
		latest, err := wd.FindLatestWork("")
		if s.NoError(err) {
			s.True(work == latest)
		}
	}

	// Rereading keeps the wrappers
	assets, err := job.FindAssets("char", cache.ForceReread)
	if s.NoError(err) {
		s.Contains(assets, horse)
	}
}

// TestFindAsset checks asset lookup by label and by name.
func (s *Suite) TestFindAsset() {
	job := s.job(s.Root)
	types, err := job.AssetTypes()
	if s.NoError(err) {
		s.Contains(types, "char")
	}

	horse, err := job.FindAsset("horse")
	if s.NoError(err) {
		s.Equal("char.horse", horse.Label())
	}
	_, err = job.FindAsset("char.unicorn")
	s.IsType(pipe.ErrNotFound{}, err)

	shot, err := job.FindEntity("seq010_sh0020")
	if s.NoError(err) {
		s.Equal(pipe.ShotProfile, shot.Profile)
		seq, err := shot.ToSequence()
		if s.NoError(err) {
			s.Equal("seq010", seq.Name)
			shots, err := seq.FindShots(cache.UseCache)
			if s.NoError(err) {
				s.Len(shots, 2)
				s.Contains(shots, shot)
			}
		}
	}
}

// TestCreateAssetType checks that a new asset type is listed without
// forcing a reread.
func (s *Suite) TestCreateAssetType() {
	job := s.job(s.Root)
	types, err := job.AssetTypes()
	if s.NoError(err) {
		s.Equal([]string{"char", "prop"}, types)
	}

	s.Require().NoError(job.CreateAssetType("creature"))
	types, err = job.AssetTypes()
	if s.NoError(err) {
		s.Equal([]string{"char", "creature", "prop"}, types)
	}
}

// TestCreateShot checks that a shot in a new sequence is listed in
// the job and in its sequence.
func (s *Suite) TestCreateShot() {
	job := s.job(s.Root)
	shots, err := job.FindShots(cache.UseCache)
	s.Require().NoError(err)
	s.Len(shots, 3)

	shot, err := job.ToShot("seq030", "seq030_sh0010")
	s.Require().NoError(err)
	s.False(shot.Exists(cache.UseCache))
	s.Require().NoError(shot.Create())
	s.True(shot.Exists(cache.UseCache))

	shots, err = job.FindShots(cache.UseCache)
	if s.NoError(err) {
		s.Len(shots, 4)
		s.Contains(shots, shot)
	}
	seq, err := job.ObtSequence("seq030")
	if s.NoError(err) {
		seqShots, err := seq.FindShots(cache.UseCache)
		if s.NoError(err) {
			s.Equal([]*cache.Entity{shot}, seqShots)
		}
	}
}

// flatConfig keeps shots in one directory, with no sequence
// directories.
const flatConfig = `templates:
  shot_entity_path: "{job_path}/shots/{sequence}_{shot}"
tokens:
  sequence:
    nounderscore: true
`

// TestCreateShotFlat checks that a shot in a new sequence shows up in
// the sequences of a job without sequence directories.
func (s *Suite) TestCreateShotFlat() {
	layout := s.store.Layout
	configFile := layout.ConfigFile(layout.Root() + "/flat")
	s.Require().NoError(os.MkdirAll(path.Dir(configFile), 0755))
	s.Require().NoError(ioutil.WriteFile(configFile, []byte(flatConfig), 0644))

	job, err := s.Root.FindJob("flat")
	s.Require().NoError(err)
	s.Require().False(job.UsesSequenceDirs())
	seqs, err := job.FindSequences(cache.UseCache)
	s.Require().NoError(err)
	s.Empty(seqs)

	shot, err := job.ToShot("seq010", "sh0010")
	s.Require().NoError(err)
	s.Require().NoError(shot.Create())

	seqs, err = job.FindSequences(cache.UseCache)
	if s.NoError(err) && s.Len(seqs, 1) {
		s.Equal("seq010", seqs[0].Name)
	}
	seq, err := job.ObtSequence("seq010")
	if s.NoError(err) {
		shots, err := seq.FindShots(cache.UseCache)
		if s.NoError(err) {
			s.Equal([]*cache.Entity{shot}, shots)
		}
	}
}

// TestFindNext checks that the next version of a work file does not
// exist until it is saved.
func (s *Suite) TestFindNext() {
	shot, err := s.job(s.Root).FindEntity("seq010_sh0010")
	s.Require().NoError(err)
	anim, err := shot.FindWorkDir("anim")
	s.Require().NoError(err)
	has, err := anim.HasWorks(cache.UseCache)
	if s.NoError(err) {
		s.False(has)
	}

	v1, err := anim.ToWork("", 1, "maya", "")
	s.Require().NoError(err)
	s.False(v1.Exists(cache.UseCache))
	saved, err := v1.Save(nil)
	s.Require().NoError(err)
	s.True(saved == v1)
	s.True(v1.Exists(cache.UseCache))

	next, err := v1.FindNext()
	s.Require().NoError(err)
	s.Equal(2, next.VerN)
	s.False(next.Exists(cache.UseCache))

	_, err = next.Save(pipe.Metadata{"notes": "blocking"})
	s.Require().NoError(err)
	s.True(next.Exists(cache.UseCache))
	works, err := anim.FindWorks(cache.UseCache)
	if s.NoError(err) {
		s.Equal([]*cache.Work{v1, next}, works)
	}
	has, err = anim.HasWorks(cache.UseCache)
	if s.NoError(err) {
		s.True(has)
	}
	meta, err := next.Metadata(cache.UseCache)
	if s.NoError(err) {
		s.Equal("blocking", meta.String("notes"))
		s.Equal(strconv.FormatInt(s.store.Clock.Now().Unix(), 10), meta.String("mtime"))
		s.Equal("0", meta.String("size"))
	}
}

// TestSaveCreatesParents checks that saving into a missing entity and
// work dir creates both and lists them.
func (s *Suite) TestSaveCreatesParents() {
	job := s.job(s.Root)
	cat, err := job.ToAsset("char", "cat")
	s.Require().NoError(err)
	s.False(cat.Exists(cache.UseCache))
	wd, err := cat.ToWorkDir("model", "")
	s.Require().NoError(err)
	work, err := wd.ToWork("", 1, "maya", "")
	s.Require().NoError(err)

	saved, err := work.Save(nil)
	s.Require().NoError(err)
	s.True(saved == work)
	s.True(cat.Exists(cache.UseCache))
	s.True(wd.Exists(cache.UseCache))

	found, err := job.FindAsset("char.cat")
	if s.NoError(err) {
		s.True(found == cat)
	}
	wds, err := cat.FindWorkDirs(cache.UseCache)
	if s.NoError(err) {
		s.Equal([]*cache.WorkDir{wd}, wds)
	}
}

// TestDeleteOutput checks that a deleted output leaves every listing
// it was in and reports that it does not exist.
func (s *Suite) TestDeleteOutput() {
	horse := s.horse(s.Root)
	wd := s.model(s.Root)
	outs, err := wd.FindOutputs(cache.UseCache)
	s.Require().NoError(err)
	s.Require().Len(outs, 2)
	pubs, err := horse.FindPublishes(cache.UseCache)
	s.Require().NoError(err)
	s.Len(pubs, 2)

	pub := outs[1]
	s.True(pub.Exists(cache.UseCache))
	s.Require().NoError(pub.Delete())
	s.False(pub.Exists(cache.UseCache))

	outs, err = wd.FindOutputs(cache.UseCache)
	if s.NoError(err) {
		s.Len(outs, 1)
		s.NotContains(outs, pub)
	}
	pubs, err = horse.FindPublishes(cache.UseCache)
	if s.NoError(err) {
		s.Len(pubs, 1)
	}
}

// TestWorkDirOutputs checks that outputs listed from a work dir hang
// off that same work dir wrapper.
func (s *Suite) TestWorkDirOutputs() {
	wd := s.model(s.Root)
	outs, err := wd.FindOutputs(cache.UseCache)
	s.Require().NoError(err)
	if s.Len(outs, 2) {
		for i, out := range outs {
			s.Equal(s.Fixture.Publishes[i].Path, out.Path)
			s.True(out.WorkDir() == wd)
		}
	}

	again, err := wd.FindOutputs(cache.ForceReread)
	if s.NoError(err) && s.Len(again, 2) {
		s.True(again[0] == outs[0])
	}
}

// TestWorkOutputs checks that a work file finds the outputs of its
// version.
func (s *Suite) TestWorkOutputs() {
	wd := s.model(s.Root)
	works, err := wd.FindWorks(cache.UseCache)
	s.Require().NoError(err)
	s.Require().Len(works, 2)
	for i, work := range works {
		outs, err := work.FindOutputs(cache.UseCache)
		if s.NoError(err) && s.Len(outs, 1) {
			s.Equal(s.Fixture.Publishes[i].Path, outs[0].Path)
		}
	}

	versions, err := works[0].FindVersions(cache.UseCache)
	if s.NoError(err) {
		s.Equal(works, versions)
	}
}

// TestJobPublishesPathMap checks that the path map is applied once,
// however often the publishes are listed, even when the new prefix
// extends the old one.
func (s *Suite) TestJobPublishesPathMap() {
	src := s.store.Layout.Root()
	dest := src + "/mirror"
	root := s.newRoot(cache.Options{
		PathMap: pipe.PathMap{{Src: src, Dest: dest}},
	})
	job := s.job(root)
	for i := 0; i < 3; i++ {
		ghosts, err := job.FindPublishes(cache.UseCache)
		s.Require().NoError(err)
		if s.Len(ghosts, 2) {
			for j, ghost := range ghosts {
				s.Equal(dest+s.Fixture.Publishes[j].Path[len(src):], ghost.Path)
			}
		}
	}
}

// TestJobPublishes checks the job-wide publish ghosts.
func (s *Suite) TestJobPublishes() {
	ghosts, err := s.job(s.Root).FindPublishes(cache.UseCache)
	s.Require().NoError(err)
	if s.Len(ghosts, 2) {
		for i, ghost := range ghosts {
			s.Equal(s.Fixture.Publishes[i].Path, ghost.Path)
			s.Equal("char.horse", ghost.Label())
		}
		s.False(ghosts[0].Latest)
		s.True(ghosts[1].Latest)
	}

	// A new root reads the same ghosts back from the job's cache
	// file.
	ghosts, err = s.job(s.newRoot(cache.Options{})).FindPublishes(cache.UseCache)
	if s.NoError(err) {
		s.Len(ghosts, 2)
	}
}

// hasWorksFile is where the model work dir caches HasWorks.
func (s *Suite) hasWorksFile() string {
	return path.Join(s.Fixture.Model.Path, pipe.MetadataDir, "cache", "has_works.yml")
}

// TestHasWorksFile checks that HasWorks is kept in a file that a new
// root reads.
func (s *Suite) TestHasWorksFile() {
	has, err := s.model(s.Root).HasWorks(cache.UseCache)
	s.Require().NoError(err)
	s.True(has)
	_, err = os.Stat(s.hasWorksFile())
	s.Require().NoError(err)

	// Doctor the file to tell the two sources apart
	s.Require().NoError(ioutil.WriteFile(s.hasWorksFile(), []byte("false\n"), 0644))
	wd := s.model(s.newRoot(cache.Options{}))
	has, err = wd.HasWorks(cache.UseCache)
	if s.NoError(err) {
		s.False(has)
	}
	has, err = wd.HasWorks(cache.ForceReread)
	if s.NoError(err) {
		s.True(has)
	}
}

// TestCorruptCacheFile checks that an unreadable cache file is a
// miss, and is replaced.
func (s *Suite) TestCorruptCacheFile() {
	_, err := s.model(s.Root).HasWorks(cache.UseCache)
	s.Require().NoError(err)
	s.Require().NoError(ioutil.WriteFile(s.hasWorksFile(), []byte("[unterminated\n"), 0644))

	has, err := s.model(s.newRoot(cache.Options{})).HasWorks(cache.UseCache)
	if s.NoError(err) {
		s.True(has)
	}
	b, err := ioutil.ReadFile(s.hasWorksFile())
	if s.NoError(err) {
		s.Equal("true\n", string(b))
	}
}

// TestExpiredCacheFile checks that a cache file older than MaxAge is
// ignored.
func (s *Suite) TestExpiredCacheFile() {
	_, err := s.model(s.Root).HasWorks(cache.UseCache)
	s.Require().NoError(err)
	s.Require().NoError(ioutil.WriteFile(s.hasWorksFile(), []byte("false\n"), 0644))
	old := s.store.Clock.Now().Add(-2 * time.Hour)
	s.Require().NoError(os.Chtimes(s.hasWorksFile(), old, old))

	has, err := s.model(s.newRoot(cache.Options{MaxAge: 3 * time.Hour})).HasWorks(cache.UseCache)
	if s.NoError(err) {
		s.False(has)
	}
	has, err = s.model(s.newRoot(cache.Options{MaxAge: time.Hour})).HasWorks(cache.UseCache)
	if s.NoError(err) {
		s.True(has)
	}
}

// TestReset checks that a reset discards every wrapper.
func (s *Suite) TestReset() {
	job := s.job(s.Root)
	horse := s.horse(s.Root)
	generation := s.Root.Generation()
	s.NotZero(s.Root.Len())

	s.store.Clock.Add(time.Minute)
	s.Equal(time.Minute, s.Root.Age())
	s.Root.Reset()
	s.NotEqual(generation, s.Root.Generation())
	s.Equal(0, s.Root.Len())
	s.Equal(time.Duration(0), s.Root.Age())

	s.False(job == s.job(s.Root))
	s.False(horse == s.horse(s.Root))
	s.Equal(horse.Path, s.horse(s.Root).Path)
}

// TestCurrent checks the Cur* methods against a fixed current path.
func (s *Suite) TestCurrent() {
	work := s.Fixture.Works[1]
	root := s.newRoot(cache.Options{Environment: cache.StaticEnvironment(work.Path)})

	job, err := root.CurJob()
	if s.NoError(err) {
		s.Equal("braveheart", job.Name)
	}
	ety, err := root.CurEntity()
	if s.NoError(err) {
		s.True(ety == s.horse(root))
	}
	wd, err := root.CurWorkDir()
	if s.NoError(err) {
		s.True(wd == s.model(root))
	}
	cur, err := root.CurWork()
	if s.NoError(err) {
		s.Equal(work.Path, cur.Path)
		s.True(cur.Exists(cache.UseCache))
	}
	_, err = root.CurOutput()
	s.Equal(cache.ErrNoCurrent{Kind: pipe.KindOutput}, err)

	unsaved, err := s.Fixture.Model.ToWork("", 9, "maya", "")
	s.Require().NoError(err)
	root = s.newRoot(cache.Options{Environment: cache.StaticEnvironment(unsaved.Path)})
	cur, err = root.CurWork()
	if s.NoError(err) {
		s.Equal(9, cur.VerN)
		s.False(cur.Exists(cache.UseCache))
	}

	root = s.newRoot(cache.Options{Environment: cache.StaticEnvironment("")})
	_, err = root.CurJob()
	s.Equal(cache.ErrNoCurrent{Kind: pipe.KindJob}, err)
	_, err = s.newRoot(cache.Options{}).CurEntity()
	s.Equal(cache.ErrNoCurrent{Kind: pipe.KindEntity}, err)
}

// TestCreateJob checks that a created job is listed at once.
func (s *Suite) TestCreateJob() {
	jobs, err := s.Root.FindJobs(cache.UseCache)
	s.Require().NoError(err)
	s.Len(jobs, 1)

	job, err := s.Root.CreateJob("rob_roy")
	s.Require().NoError(err)
	s.Equal("rob_roy", job.Name)
	jobs, err = s.Root.FindJobs(cache.UseCache)
	if s.NoError(err) {
		s.Len(jobs, 2)
		s.Contains(jobs, job)
	}
}

func TestCache(t *testing.T) {
	suite.Run(t, &Suite{})
}
