// Package ragindex implements the large-diff retrieval subsystem:
// chunking a unified diff by file and hunk, building a fixed-D
// TF-IDF-weighted dense vector per chunk, and serving top-K
// cosine-similarity queries.
package ragindex

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/diffcouncil/diffcouncil/internal/types"
)

// maxChunkChars is the hunk size above which a hunk is sub-split; each
// sub-chunk grows to at least this size before it is closed.
const maxChunkChars = 2000

// subSplitLines closes a sub-chunk that has reached maxChunkChars without
// hitting a blank line, once it holds this many lines.
const subSplitLines = 40

var (
	fileHeaderRe = regexp.MustCompile(`(?m)^diff --git a/(\S+) b/(\S+)`)
	hunkHeaderRe = regexp.MustCompile(`(?m)^@@ -(\d+)(?:,\d+)? \+(\d+)(?:,\d+)? @@`)
	renameOnlyRe = regexp.MustCompile(`(?m)^rename (from|to) `)
	binaryRe     = regexp.MustCompile(`(?m)^Binary files .* differ$`)
)

// rawChunk is an unembedded DiffChunk produced by chunkDiff, before the
// TF-IDF vector is attached.
type rawChunk struct {
	content  string
	metadata types.ChunkMetadata
}

// chunkDiff splits a unified diff into file sections, then hunks, then
// sub-chunks any hunk exceeding maxChunkChars. A binary patch's content is
// dropped, leaving one empty chunk that carries only the file's metadata;
// rename-only files with no textual hunks yield one empty renamed chunk.
func chunkDiff(diff string) []rawChunk {
	fileSections := splitFiles(diff)
	var out []rawChunk
	for _, fs := range fileSections {
		out = append(out, chunkFile(fs)...)
	}
	return out
}

type fileSection struct {
	path string
	body string
}

func splitFiles(diff string) []fileSection {
	idxs := fileHeaderRe.FindAllStringSubmatchIndex(diff, -1)
	if len(idxs) == 0 {
		// No recognizable file headers; treat the whole diff as one
		// unnamed section so callers still get usable chunks.
		return []fileSection{{path: "", body: diff}}
	}
	var out []fileSection
	for i, m := range idxs {
		start := m[0]
		end := len(diff)
		if i+1 < len(idxs) {
			end = idxs[i+1][0]
		}
		path := diff[m[4]:m[5]] // "b/" capture group: destination path
		out = append(out, fileSection{path: path, body: diff[start:end]})
	}
	return out
}

func chunkFile(fs fileSection) []rawChunk {
	if binaryRe.MatchString(fs.body) {
		return []rawChunk{{
			content: "",
			metadata: types.ChunkMetadata{
				File:       fs.path,
				ChangeType: types.ChangeModified,
			},
		}}
	}
	if renameOnlyRe.MatchString(fs.body) && !hunkHeaderRe.MatchString(fs.body) {
		return []rawChunk{{
			content: "",
			metadata: types.ChunkMetadata{
				File:       fs.path,
				ChangeType: types.ChangeRenamed,
			},
		}}
	}

	locs := hunkHeaderRe.FindAllStringIndex(fs.body, -1)
	if len(locs) == 0 {
		return []rawChunk{{
			content:  strings.TrimSpace(fs.body),
			metadata: types.ChunkMetadata{File: fs.path, ChangeType: classify(fs.body)},
		}}
	}

	var out []rawChunk
	for i, loc := range locs {
		start := loc[0]
		end := len(fs.body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		hunk := fs.body[start:end]
		m := hunkHeaderRe.FindStringSubmatch(hunk)
		startLine, _ := strconv.Atoi(m[2])
		added, deleted := countLines(hunk)
		meta := types.ChunkMetadata{
			File:          fs.path,
			HunkStartLine: startLine,
			AddedLines:    added,
			DeletedLines:  deleted,
			ChangeType:    changeTypeFor(added, deleted, fs.body),
		}
		out = append(out, subSplitHunk(hunk, meta)...)
	}
	return out
}

func classify(body string) types.ChangeType {
	added, deleted := countLines(body)
	return changeTypeFor(added, deleted, body)
}

func changeTypeFor(added, deleted int, body string) types.ChangeType {
	switch {
	case renameOnlyRe.MatchString(body):
		return types.ChangeRenamed
	case added > 0 && deleted == 0:
		return types.ChangeAdded
	case added == 0 && deleted > 0:
		return types.ChangeRemoved
	default:
		return types.ChangeModified
	}
}

func countLines(hunk string) (added, deleted int) {
	for _, line := range strings.Split(hunk, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			deleted++
		}
	}
	return added, deleted
}

// subSplitHunk splits a hunk exceeding maxChunkChars into sub-chunks: once
// a sub-chunk has reached maxChunkChars it is closed at the next blank line,
// or as soon as it holds subSplitLines lines, so sub-chunks are not capped
// at maxChunkChars. Every sub-chunk keeps the parent hunk's metadata.
func subSplitHunk(hunk string, meta types.ChunkMetadata) []rawChunk {
	if len(hunk) <= maxChunkChars {
		return []rawChunk{{content: strings.TrimSpace(hunk), metadata: meta}}
	}

	lines := strings.Split(hunk, "\n")
	var out []rawChunk
	var cur []string
	curLen := 0
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, rawChunk{content: strings.TrimSpace(strings.Join(cur, "\n")), metadata: meta})
		cur = nil
		curLen = 0
	}
	for i, line := range lines {
		cur = append(cur, line)
		curLen += len(line) + 1
		atBoundary := curLen >= maxChunkChars && (strings.TrimSpace(line) == "" || len(cur) >= subSplitLines)
		if atBoundary || i == len(lines)-1 {
			flush()
		}
	}
	flush()
	return out
}

// contentHash identifies a chunk for dedup by (file, hunkStartLine,
// content).
func contentHash(c rawChunk) string {
	h := sha256.Sum256([]byte(c.content))
	return c.metadata.File + "|" + strconv.Itoa(c.metadata.HunkStartLine) + "|" + hex.EncodeToString(h[:8])
}

// dedupe drops chunks sharing an identical (file, hunkStartLine,
// content-hash) key, keeping the first occurrence.
func dedupe(chunks []rawChunk) []rawChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]rawChunk, 0, len(chunks))
	for _, c := range chunks {
		key := contentHash(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
