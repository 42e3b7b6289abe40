// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"fmt"
	"path"
	"strings"

	"github.com/diffeo/go-pini/pipe"
	"github.com/sirupsen/logrus"
)

// cacheVersion is part of the job cache directory, so that files
// written in an old layout are not read.
const cacheVersion = 1

// Job is a cached pipe.Job.
type Job struct {
	*pipe.Job
	root *Root

	assetTypes memo[[]string]
	typeAssets map[string]*memo[[]*Entity]
	sequences  memo[[]*Sequence]
	shots      memo[[]*Entity]
	publishes  fileMemo[[]pipe.OutputGhost]
}

var (
	jobAssetTypes = method{level: "job", name: "asset_types"}
	jobAssets     = method{level: "job", name: "assets"}
	jobSequences  = method{level: "job", name: "sequences"}
	jobShots      = method{level: "job", name: "shots"}
	jobPublishes  = method{level: "job", name: "publishes"}
)

func newJob(upstream *pipe.Job, root *Root) *Job {
	job := &Job{
		Job:        upstream,
		root:       root,
		typeAssets: make(map[string]*memo[[]*Entity]),
	}
	job.publishes = newFileMemo[[]pipe.OutputGhost](root, upstream.Path,
		path.Join(job.CacheDir(), jobPublishes.name+".cbor"))
	return job
}

func (job *Job) key() string {
	return jobKey(job.Path)
}

// Root returns the cache this job belongs to.
func (job *Job) Root() *Root {
	return job.root
}

// CacheDir is the directory holding this job's cache files.  It is
// specific to the job config in use.
func (job *Job) CacheDir() string {
	config := path.Base(job.root.Layout().ConfigFile(job.Path))
	config = strings.TrimSuffix(config, path.Ext(config))
	return path.Join(job.Path, pipe.MetadataDir, "cache", fmt.Sprintf("P%d_%s", cacheVersion, config))
}

// FindAssetTypes returns the names of the job's asset types.
func (job *Job) FindAssetTypes(policy RefreshPolicy) ([]string, error) {
	return job.assetTypes.get(jobAssetTypes, policy, func() ([]string, error) {
		return job.root.store.ReadAssetTypes(job.Job)
	})
}

// AssetTypes returns the cached asset types.
func (job *Job) AssetTypes() ([]string, error) {
	return job.FindAssetTypes(UseCache)
}

// CreateAssetType creates an empty asset type.
func (job *Job) CreateAssetType(name string) error {
	if err := job.Policies().Validate("asset_type", name); err != nil {
		return pipe.ErrNotValid{Kind: pipe.KindAsset, Path: name, Err: err}
	}
	if err := job.root.store.CreateAssetType(job.Job, name); err != nil {
		return err
	}
	return job.root.cascade(assetTypeCreated, subject{root: job.root, job: job})
}

// FindAssets returns the assets of one type, or of every type if
// assetType is empty.
func (job *Job) FindAssets(assetType string, policy RefreshPolicy) ([]*Entity, error) {
	types := []string{assetType}
	if assetType == "" {
		var err error
		if types, err = job.FindAssetTypes(policy); err != nil {
			return nil, err
		}
	}
	var result []*Entity
	for _, typ := range types {
		assets, err := job.readTypeAssets(typ, policy)
		if err != nil {
			return nil, err
		}
		result = append(result, assets...)
	}
	return result, nil
}

// readTypeAssets returns the assets of one type.  Every read lists
// all of the job's assets, so the other types that have not been
// read yet are filled in at the same time.
func (job *Job) readTypeAssets(assetType string, policy RefreshPolicy) ([]*Entity, error) {
	m := job.typeMemo(assetType)
	return m.get(jobAssets, policy, func() ([]*Entity, error) {
		assets, err := job.root.store.ReadAssets(job.Job)
		if err != nil {
			return nil, err
		}
		byType := make(map[string][]*Entity)
		for _, asset := range assets {
			byType[asset.AssetType] = append(byType[asset.AssetType], job.wrapEntity(asset))
		}
		for typ, wrapped := range byType {
			if other := job.typeMemo(typ); typ != assetType && !other.valid {
				other.set(wrapped)
			}
		}
		return byType[assetType], nil
	})
}

func (job *Job) typeMemo(assetType string) *memo[[]*Entity] {
	m, ok := job.typeAssets[assetType]
	if !ok {
		m = &memo[[]*Entity]{}
		job.typeAssets[assetType] = m
	}
	return m
}

// FindAsset finds an asset by label, "char.horse", or by name alone
// if that is unique.
func (job *Job) FindAsset(label string) (*Entity, error) {
	assetType, name := "", label
	if i := strings.Index(label, "."); i >= 0 {
		assetType, name = label[:i], label[i+1:]
	}
	assets, err := job.FindAssets(assetType, UseCache)
	if err != nil {
		return nil, err
	}
	return single(pipe.KindAsset, label, assets, func(ety *Entity) bool {
		return ety.Asset == name
	})
}

// ToAsset returns the asset with a type and name, which need not
// exist.
func (job *Job) ToAsset(assetType, name string) (*Entity, error) {
	ety, err := job.Job.ToAsset(assetType, name)
	if err != nil {
		return nil, err
	}
	return job.wrapEntity(ety), nil
}

// FindSequences returns the job's sequences.
func (job *Job) FindSequences(policy RefreshPolicy) ([]*Sequence, error) {
	return job.sequences.get(jobSequences, policy, func() ([]*Sequence, error) {
		seqs, err := job.root.store.ReadSequences(job.Job)
		if err != nil {
			return nil, err
		}
		result := make([]*Sequence, len(seqs))
		for i, seq := range seqs {
			result[i] = job.wrapSequence(seq)
		}
		return result, nil
	})
}

// ObtSequence returns the sequence with a name.
func (job *Job) ObtSequence(name string) (*Sequence, error) {
	seqs, err := job.FindSequences(UseCache)
	if err != nil {
		return nil, err
	}
	for _, seq := range seqs {
		if seq.Name == name {
			return seq, nil
		}
	}
	return nil, pipe.ErrNotFound{Kind: pipe.KindSequence, Match: name}
}

// ToSequence returns the sequence with a name, which need not exist.
func (job *Job) ToSequence(name string) (*Sequence, error) {
	seq, err := job.Job.ToSequence(name)
	if err != nil {
		return nil, err
	}
	return job.wrapSequence(seq), nil
}

// FindShots returns every shot in the job.  Jobs with sequence
// directories read them a sequence at a time.
func (job *Job) FindShots(policy RefreshPolicy) ([]*Entity, error) {
	if !job.UsesSequenceDirs() {
		return job.readShots(policy)
	}
	seqs, err := job.FindSequences(policy)
	if err != nil {
		return nil, err
	}
	var result []*Entity
	for _, seq := range seqs {
		shots, err := seq.FindShots(policy)
		if err != nil {
			return nil, err
		}
		result = append(result, shots...)
	}
	return result, nil
}

// readShots reads the flat list of shots of a job without sequence
// directories.
func (job *Job) readShots(policy RefreshPolicy) ([]*Entity, error) {
	return job.shots.get(jobShots, policy, func() ([]*Entity, error) {
		shots, err := job.root.store.ReadShots(job.Job, nil)
		if err != nil {
			return nil, err
		}
		return job.wrapEntities(shots), nil
	})
}

// ToShot returns the shot with a sequence and name, which need not
// exist.
func (job *Job) ToShot(sequence, name string) (*Entity, error) {
	ety, err := job.Job.ToShot(sequence, name)
	if err != nil {
		return nil, err
	}
	return job.wrapEntity(ety), nil
}

// FindEntities returns every asset and then every shot.
func (job *Job) FindEntities(policy RefreshPolicy) ([]*Entity, error) {
	assets, err := job.FindAssets("", policy)
	if err != nil {
		return nil, err
	}
	shots, err := job.FindShots(policy)
	if err != nil {
		return nil, err
	}
	return append(append([]*Entity(nil), assets...), shots...), nil
}

// FindEntity finds an entity by label: "char.horse" for an asset or
// the shot name.
func (job *Job) FindEntity(label string) (*Entity, error) {
	entities, err := job.FindEntities(UseCache)
	if err != nil {
		return nil, err
	}
	return single(pipe.KindEntity, label, entities, func(ety *Entity) bool {
		return ety.Label() == label
	})
}

// ObtEntity returns the cached entity with the same path as match.
// The entity must exist.
func (job *Job) ObtEntity(match *pipe.Entity) (*Entity, error) {
	siblings, err := job.siblings(match, UseCache)
	if err != nil {
		return nil, err
	}
	return single(match.Kind(), match.Path, siblings, func(ety *Entity) bool {
		return ety.Path == match.Path
	})
}

// siblings returns the listing an entity would appear in: the assets
// of its type, or the shots of its sequence.
func (job *Job) siblings(ety *pipe.Entity, policy RefreshPolicy) ([]*Entity, error) {
	if ety.Profile == pipe.AssetProfile {
		return job.readTypeAssets(ety.AssetType, policy)
	}
	if !job.UsesSequenceDirs() {
		return job.readShots(policy)
	}
	seq, err := job.ObtSequence(ety.Sequence)
	if _, missing := err.(pipe.ErrNotFound); missing && policy == ForceReread {
		if _, err = job.FindSequences(ForceReread); err == nil {
			seq, err = job.ObtSequence(ety.Sequence)
		}
	}
	if _, missing := err.(pipe.ErrNotFound); missing {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return seq.FindShots(policy)
}

// FindPublishes returns a ghost of every publish of every asset,
// with its latest flag set.  The list is kept in a cache file.
func (job *Job) FindPublishes(policy RefreshPolicy) ([]pipe.OutputGhost, error) {
	ghosts, err := job.publishes.get(jobPublishes, policy, func() ([]pipe.OutputGhost, error) {
		assets, err := job.FindAssets("", UseCache)
		if err != nil {
			return nil, err
		}
		var result []pipe.OutputGhost
		for _, asset := range assets {
			pubs, err := asset.FindPublishes(policy)
			if err != nil {
				return nil, err
			}
			plain := make([]*pipe.Output, len(pubs))
			for i, pub := range pubs {
				plain[i] = pub.Output
			}
			for _, pub := range pubs {
				meta, err := pub.Metadata(UseCache)
				if err != nil {
					logrus.WithFields(logrus.Fields{
						"output": pub.Path,
						"err":    err,
					}).Warn("ignoring unreadable output metadata")
					meta = pipe.Metadata{}
				}
				ghost := pipe.NewOutputGhost(pub.Output, meta)
				ghost.Latest = pub.Output.IsLatest(plain)
				result = append(result, ghost)
			}
		}
		pipe.SortGhosts(result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	mapped := make([]pipe.OutputGhost, len(ghosts))
	for i, ghost := range ghosts {
		ghost.Path = job.root.pathMap.Apply(ghost.Path)
		mapped[i] = ghost
	}
	return mapped, nil
}

func (job *Job) wrapSequence(seq *pipe.Sequence) *Sequence {
	item, _ := job.root.registry.Get(sequenceKey(job.Path+"/"+seq.Name), func(string) (keyed, error) {
		return &Sequence{Sequence: seq, job: job}, nil
	})
	return item.(*Sequence)
}

func (job *Job) wrapEntity(ety *pipe.Entity) *Entity {
	item, _ := job.root.registry.Get(entityKey(ety.Path), func(string) (keyed, error) {
		return newEntity(ety, job), nil
	})
	return item.(*Entity)
}

func (job *Job) wrapEntities(entities []*pipe.Entity) []*Entity {
	result := make([]*Entity, len(entities))
	for i, ety := range entities {
		result[i] = job.wrapEntity(ety)
	}
	return result
}

// single returns the one item keep accepts.  It returns ErrNotFound
// if there is none, and ErrAmbiguous if there are several.
func single[T fmt.Stringer](kind pipe.Kind, match string, items []T, keep func(T) bool) (T, error) {
	var (
		found []T
		zero  T
	)
	for _, item := range items {
		if keep(item) {
			found = append(found, item)
		}
	}
	switch len(found) {
	case 0:
		return zero, pipe.ErrNotFound{Kind: kind, Match: match}
	case 1:
		return found[0], nil
	}
	names := make([]string, len(found))
	for i, item := range found {
		names[i] = item.String()
	}
	return zero, pipe.ErrAmbiguous{Kind: kind, Match: match, Candidates: names}
}
