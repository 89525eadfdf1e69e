package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-bintest/types"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755))
	return p
}

func newTestBuilder(dir string) *Builder {
	return NewBuilder(log.NewLogger(log.DiscardHandler()), dir)
}

func TestBuilder_SingleArtifact(t *testing.T) {
	dir := t.TempDir()
	tool := touch(t, dir, "tool")

	b := newTestBuilder(dir)
	entry, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{tool}, Package: "tools", Version: "0.1.0"})
	require.Nil(t, dropped)
	assert.Equal(t, tool, entry.Path)
	assert.True(t, entry.Exists)

	idx := b.Finish()
	assert.Equal(t, 1, idx.Len())

	res := idx.Resolve("tool", types.KindAny)
	require.Equal(t, Unique, res.Status)
	assert.Equal(t, types.ArtifactEntry{
		Name:    "tool",
		Kind:    types.KindBin,
		Path:    tool,
		Package: "tools",
		Version: "0.1.0",
		Exists:  true,
	}, res.Entry)

	got, ok := idx.Lookup("tool", types.KindBin)
	assert.True(t, ok)
	assert.Equal(t, tool, got.Path)

	_, ok = idx.Lookup("tool", types.KindExample)
	assert.False(t, ok)
	assert.Equal(t, NotFound, idx.Resolve("other", types.KindAny).Status)
}

func TestBuilder_AmbiguousAcrossKinds(t *testing.T) {
	dir := t.TempDir()
	bin := touch(t, dir, "bin/tool")
	example := touch(t, dir, "examples/tool")

	b := newTestBuilder(dir)
	_, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindExample, Paths: []string{example}})
	require.Nil(t, dropped)
	_, dropped = b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{bin}})
	require.Nil(t, dropped)
	idx := b.Finish()

	res := idx.Resolve("tool", types.KindAny)
	require.Equal(t, Ambiguous, res.Status)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, types.KindBin, res.Candidates[0].Kind, "candidates are ordered by kind")
	assert.Equal(t, types.KindExample, res.Candidates[1].Kind)

	res = idx.Resolve("tool", types.KindBin)
	require.Equal(t, Unique, res.Status)
	assert.Equal(t, bin, res.Entry.Path)

	res = idx.Resolve("tool", types.KindExample)
	require.Equal(t, Unique, res.Status)
	assert.Equal(t, example, res.Entry.Path)

	// candidates are a copy
	res.Candidates = nil
	assert.Len(t, idx.Resolve("tool", types.KindAny).Candidates, 2)
}

func TestBuilder_StaleArtifactIsDropped(t *testing.T) {
	dir := t.TempDir()

	b := newTestBuilder(dir)
	rec := types.ArtifactProduced{TargetName: "ghost", Kind: types.KindBin, Paths: []string{filepath.Join(dir, "ghost")}}
	_, dropped := b.Add(rec)
	require.NotNil(t, dropped)
	assert.Equal(t, DropStale, dropped.Reason)

	idx := b.Finish()
	assert.Equal(t, NotFound, idx.Resolve("ghost", types.KindAny).Status)
	require.Len(t, idx.Dropped(), 1)
	assert.Equal(t, rec, idx.Dropped()[0].Record)
	assert.Contains(t, idx.Dropped()[0].String(), "bin:ghost dropped (stale)")
}

func TestBuilder_DirectoryIsNotAnExecutable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tool"), 0o755))

	b := newTestBuilder(dir)
	_, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{filepath.Join(dir, "tool")}})
	require.NotNil(t, dropped)
	assert.Equal(t, DropStale, dropped.Reason)
}

func TestBuilder_Duplicates(t *testing.T) {
	dir := t.TempDir()
	first := touch(t, dir, "a/tool")
	second := touch(t, dir, "b/tool")

	b := newTestBuilder(dir)
	_, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{first}})
	require.Nil(t, dropped)

	entry, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{first}})
	require.Nil(t, dropped, "identical re-report is a no-op")
	assert.Equal(t, first, entry.Path)

	_, dropped = b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{second}})
	require.NotNil(t, dropped)
	assert.Equal(t, DropDuplicate, dropped.Reason)
	assert.Contains(t, dropped.Detail, first)

	idx := b.Finish()
	got, ok := idx.Lookup("tool", types.KindAny)
	require.True(t, ok)
	assert.Equal(t, first, got.Path)
}

func TestBuilder_InvalidRecords(t *testing.T) {
	dir := t.TempDir()
	tool := touch(t, dir, "tool")

	b := newTestBuilder(dir)
	_, dropped := b.Add(types.ArtifactProduced{TargetName: "", Kind: types.KindBin, Paths: []string{tool}})
	require.NotNil(t, dropped)
	assert.Equal(t, DropInvalid, dropped.Reason)

	_, dropped = b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindAny, Paths: []string{tool}})
	require.NotNil(t, dropped)
	assert.Equal(t, DropInvalid, dropped.Reason)
}

func TestBuilder_HostSuffixPrecedence(t *testing.T) {
	dir := t.TempDir()
	plain := touch(t, dir, "tool")
	exe := touch(t, dir, "tool.exe")
	paths := []string{plain, exe}

	tests := []struct {
		name       string
		suffix     string
		wantPath   string
		wantOthers []string
	}{
		{name: "windows host", suffix: ".exe", wantPath: exe, wantOthers: []string{plain}},
		{name: "unix host", suffix: "", wantPath: plain, wantOthers: []string{exe}},
		{name: "no match falls back to reported order", suffix: ".wasm", wantPath: plain, wantOthers: []string{exe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(dir)
			b.SetHostSuffix(tt.suffix)
			entry, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: paths})
			require.Nil(t, dropped)
			assert.Equal(t, tt.wantPath, entry.Path)
			assert.Equal(t, tt.wantOthers, entry.Alternates)
		})
	}
}

func TestBuilder_MissingPathsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	exe := touch(t, dir, "tool.exe")

	b := newTestBuilder(dir)
	b.SetHostSuffix("")
	entry, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{filepath.Join(dir, "tool"), exe}})
	require.Nil(t, dropped)
	assert.Equal(t, exe, entry.Path, "the only existing path wins even without a suffix match")
	assert.Empty(t, entry.Alternates)
}

func TestBuilder_RelativePaths(t *testing.T) {
	dir := t.TempDir()
	tool := touch(t, dir, "target/debug/tool")

	b := newTestBuilder(dir)
	entry, dropped := b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{"target/debug/tool"}})
	require.Nil(t, dropped)
	assert.Equal(t, tool, entry.Path)
}

func TestBuilder_EveryRecordIsIndexedOrDropped(t *testing.T) {
	dir := t.TempDir()
	records := []types.ArtifactProduced{
		{TargetName: "a", Kind: types.KindBin, Paths: []string{touch(t, dir, "a")}},
		{TargetName: "b", Kind: types.KindExample, Paths: []string{filepath.Join(dir, "missing")}},
		{TargetName: "c", Kind: types.KindTest, Paths: []string{touch(t, dir, "c")}},
		{TargetName: "c", Kind: types.KindTest, Paths: []string{touch(t, dir, "other/c")}},
		{TargetName: "d", Kind: types.KindBench, Paths: []string{touch(t, dir, "d")}},
		{TargetName: "", Kind: types.KindBench, Paths: []string{touch(t, dir, "e")}},
	}

	b := newTestBuilder(dir)
	for _, rec := range records {
		b.Add(rec)
	}
	idx := b.Finish()

	dropped := idx.Dropped()
	for _, rec := range records {
		entry, ok := idx.Lookup(rec.TargetName, rec.Kind)
		if ok && entry.Path == rec.Paths[0] {
			continue
		}
		found := false
		for _, d := range dropped {
			if d.Record.TargetName == rec.TargetName && d.Record.Kind == rec.Kind && d.Record.Paths[0] == rec.Paths[0] {
				found = true
				break
			}
		}
		assert.True(t, found, "record %s:%s was silently lost", rec.Kind, rec.TargetName)
	}
	assert.Equal(t, 3, idx.Len())
	assert.Len(t, dropped, 3)
}

func TestIndex_EntriesOrder(t *testing.T) {
	dir := t.TempDir()
	b := newTestBuilder(dir)
	b.Add(types.ArtifactProduced{TargetName: "zeta", Kind: types.KindBench, Paths: []string{touch(t, dir, "zeta")}})
	b.Add(types.ArtifactProduced{TargetName: "beta", Kind: types.KindBin, Paths: []string{touch(t, dir, "beta")}})
	b.Add(types.ArtifactProduced{TargetName: "alpha", Kind: types.KindBin, Paths: []string{touch(t, dir, "alpha")}})
	b.Add(types.ArtifactProduced{TargetName: "demo", Kind: types.KindExample, Paths: []string{touch(t, dir, "demo")}})
	idx := b.Finish()

	var got []string
	for _, e := range idx.Entries() {
		got = append(got, e.String())
	}
	assert.Equal(t, []string{"bin:alpha", "bin:beta", "example:demo", "bench:zeta"}, got)
}

func TestIndex_ReturnedEntriesAreCopies(t *testing.T) {
	dir := t.TempDir()
	plain := touch(t, dir, "tool")
	exe := touch(t, dir, "tool.exe")
	other := touch(t, dir, "examples/tool")

	b := newTestBuilder(dir)
	b.SetHostSuffix("")
	b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin, Paths: []string{plain, exe}})
	b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindExample, Paths: []string{other}})
	idx := b.Finish()

	res := idx.Resolve("tool", types.KindBin)
	require.Equal(t, Unique, res.Status)
	require.Equal(t, []string{exe}, res.Entry.Alternates)
	res.Entry.Alternates[0] = "/tmp/elsewhere"

	ambiguous := idx.Resolve("tool", types.KindAny)
	require.Equal(t, Ambiguous, ambiguous.Status)
	for _, c := range ambiguous.Candidates {
		if c.Kind == types.KindBin {
			assert.Equal(t, []string{exe}, c.Alternates)
			c.Alternates[0] = "/tmp/elsewhere"
		}
	}

	for _, e := range idx.Entries() {
		if e.Kind == types.KindBin {
			assert.Equal(t, []string{exe}, e.Alternates)
			e.Alternates[0] = "/tmp/elsewhere"
		}
	}

	got, ok := idx.Lookup("tool", types.KindBin)
	require.True(t, ok)
	assert.Equal(t, []string{exe}, got.Alternates)
}

func TestIndex_Nil(t *testing.T) {
	var idx *Index
	assert.Equal(t, NotFound, idx.Resolve("tool", types.KindAny).Status)
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Entries())
	assert.Nil(t, idx.Dropped())
}

func TestBuilder_AddAfterFinishPanics(t *testing.T) {
	b := newTestBuilder(t.TempDir())
	b.Finish()
	assert.Panics(t, func() {
		b.Add(types.ArtifactProduced{TargetName: "tool", Kind: types.KindBin})
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unique", Unique.String())
	assert.Equal(t, "ambiguous", Ambiguous.String())
	assert.Equal(t, "not_found", NotFound.String())
}
