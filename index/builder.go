package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

// DropReason explains why a reported artifact was not indexed
type DropReason string

const (
	// DropStale: none of the reported paths exist on disk
	DropStale DropReason = "stale"
	// DropDuplicate: the same (kind, name) was already indexed with another path
	DropDuplicate DropReason = "duplicate"
	// DropInvalid: the record has no name or no valid kind
	DropInvalid DropReason = "invalid"
)

// Dropped is a reported artifact that did not make it into the index
type Dropped struct {
	Record types.ArtifactProduced
	Reason DropReason
	Detail string
}

func (d Dropped) String() string {
	return fmt.Sprintf("%s:%s dropped (%s): %s", d.Record.Kind, d.Record.TargetName, d.Reason, d.Detail)
}

// Builder folds ArtifactProduced records from one build into an Index.
// It is not safe for concurrent use and must not be used after Finish.
type Builder struct {
	log        log.Logger
	baseDir    string
	hostSuffix string
	entries    map[key]types.ArtifactEntry
	dropped    []Dropped
	finished   bool
}

// NewBuilder creates a builder. Relative paths reported by the tool are resolved against
// baseDir, the directory the build ran in.
func NewBuilder(logger log.Logger, baseDir string) *Builder {
	if logger == nil {
		logger = log.New()
	}
	return &Builder{
		log:        logger,
		baseDir:    baseDir,
		hostSuffix: types.HostExecutableSuffix(),
		entries:    make(map[key]types.ArtifactEntry),
	}
}

// SetHostSuffix overrides the executable suffix preferred when a target reports
// several paths
func (b *Builder) SetHostSuffix(suffix string) {
	b.hostSuffix = suffix
}

// Add indexes rec. It returns the new entry, or a non-nil Dropped explaining why the
// record was not indexed. Re-reporting an identical artifact is a no-op.
func (b *Builder) Add(rec types.ArtifactProduced) (types.ArtifactEntry, *Dropped) {
	if b.finished {
		panic("index: Add called after Finish")
	}

	if rec.TargetName == "" || !rec.Kind.IsValid() {
		return types.ArtifactEntry{}, b.drop(rec, DropInvalid, fmt.Sprintf("name %q kind %q", rec.TargetName, rec.Kind))
	}

	existing := b.existingPaths(rec.Paths)
	if len(existing) == 0 {
		return types.ArtifactEntry{}, b.drop(rec, DropStale, fmt.Sprintf("no reported path exists: %s", strings.Join(rec.Paths, ", ")))
	}
	path, alternates := selectPath(existing, b.hostSuffix)

	k := key{kind: rec.Kind, name: rec.TargetName}
	if prev, ok := b.entries[k]; ok {
		if prev.Path == path {
			return prev, nil
		}
		return types.ArtifactEntry{}, b.drop(rec, DropDuplicate, fmt.Sprintf("already indexed at %s", prev.Path))
	}

	entry := types.ArtifactEntry{
		Name:       rec.TargetName,
		Kind:       rec.Kind,
		Path:       path,
		Package:    rec.Package,
		Version:    rec.Version,
		Alternates: alternates,
		Exists:     true,
	}
	b.entries[k] = entry
	b.log.Debug("Indexed artifact", "name", entry.Name, "kind", entry.Kind, "path", entry.Path)
	return entry, nil
}

// Finish returns the populated, immutable index
func (b *Builder) Finish() *Index {
	b.finished = true
	idx := newIndex(b.entries, b.dropped)
	b.entries = nil
	b.dropped = nil
	return idx
}

func (b *Builder) drop(rec types.ArtifactProduced, reason DropReason, detail string) *Dropped {
	d := Dropped{Record: rec, Reason: reason, Detail: detail}
	b.dropped = append(b.dropped, d)
	b.log.Warn("Dropping reported artifact", "name", rec.TargetName, "kind", rec.Kind, "reason", reason, "detail", detail)
	return &d
}

// existingPaths returns the absolute form of every reported path that is a regular file
func (b *Builder) existingPaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) && b.baseDir != "" {
			p = filepath.Join(b.baseDir, p)
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// selectPath picks the path whose extension matches the host executable suffix, falling
// back to the first path in reported order. The remaining paths are alternates.
func selectPath(paths []string, hostSuffix string) (string, []string) {
	chosen := 0
	for n, p := range paths {
		if strings.EqualFold(filepath.Ext(p), hostSuffix) {
			chosen = n
			break
		}
	}

	var alternates []string
	for n, p := range paths {
		if n != chosen {
			alternates = append(alternates, p)
		}
	}
	return paths[chosen], alternates
}
