// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package pipe

// Store enumerates and creates pipeline objects.  There are two
// implementations: one that globs the filesystem, and one that asks a
// production tracker.  Either way the objects returned are plain
// values built from paths, so the same path always describes the same
// object whichever store found it.
//
// Read methods return objects in their natural order.  Paths that
// look like pipeline objects but do not validate are skipped, not
// reported as errors.
type Store interface {
	// Master names the store, "disk" or "tracker".
	Master() string

	// Layout says where jobs live on disk.  Tracker-backed stores
	// still keep job configs and work files on disk.
	Layout() Layout

	// ReadJobs returns every job.
	ReadJobs() ([]*Job, error)

	// CreateJob sets up a new job with the built-in config.
	// Creating an existing job returns it unchanged.
	CreateJob(name string) (*Job, error)

	// ReadAssetTypes returns the names of the asset types in a
	// job.
	ReadAssetTypes(job *Job) ([]string, error)

	// ReadAssets returns every asset in a job.
	ReadAssets(job *Job) ([]*Entity, error)

	// ReadSequences returns every sequence in a job.
	ReadSequences(job *Job) ([]*Sequence, error)

	// ReadShots returns the shots in a sequence, or every shot in
	// the job if seq is nil.
	ReadShots(job *Job, seq *Sequence) ([]*Entity, error)

	// ReadWorkDirs returns the work dirs of an entity.
	ReadWorkDirs(ety *Entity) ([]*WorkDir, error)

	// ReadWorks returns the work files in a work dir.
	ReadWorks(wd *WorkDir) ([]*Work, error)

	// ReadOutputs returns the entity-level outputs of an entity
	// that are not work dir outputs.  A store that reads sequences
	// through OutputSeqDirs leaves those out.
	ReadOutputs(ety *Entity) ([]*Output, error)

	// ReadWorkDirOutputs returns the outputs stored in a work dir,
	// with the same exclusion as ReadOutputs.
	ReadWorkDirOutputs(wd *WorkDir) ([]*Output, error)

	// ReadOutputSeqDirs returns the directories of an entity, and
	// of its work dirs, that hold sequence and video outputs.  A
	// store that lists sequence outputs directly returns nil.
	ReadOutputSeqDirs(ety *Entity) ([]*OutputSeqDir, error)

	// ReadSeqDirOutputs returns the sequences and videos in an
	// output sequence directory.
	ReadSeqDirOutputs(dir *OutputSeqDir) ([]*Output, error)

	// CreateAssetType creates an empty asset type in a job.
	CreateAssetType(job *Job, name string) error

	// CreateEntity creates an asset or shot.  Creating an
	// existing entity is not an error.
	CreateEntity(ety *Entity) error

	// CreateWorkDir creates a work dir.  Creating an existing
	// work dir is not an error.
	CreateWorkDir(wd *WorkDir) error

	// RegisterOutput records a newly written output.  The file
	// must already exist.  Registering an output twice is not an
	// error.
	RegisterOutput(o *Output) error

	// DeleteOutput removes an output from disk, including every
	// frame of a sequence and its metadata.
	DeleteOutput(o *Output) error
}
