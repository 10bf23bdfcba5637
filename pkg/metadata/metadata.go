// Package metadata loads per-topic metadata documents exported next to the
// event log. Each document is a JSON object named like "<anything>_<topicID>.json".
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
)

// DefaultSuffix is the file suffix of metadata documents.
const DefaultSuffix = ".json"

// idSeparator separates the free-form filename prefix from the topic ID.
const idSeparator = "_"

// ErrNoTopicID is returned by TopicID when the filename does not carry the suffix.
var ErrNoTopicID = errors.New("metadata: filename has no topic id")

// Topic is the descriptive metadata for one topic.
type Topic struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Index maps topic IDs to their metadata.
type Index map[string]Topic

// Resolve returns the metadata for id. Unknown topics use their own ID as
// the title and an empty URL.
func (idx Index) Resolve(id string) Topic {
	if t, ok := idx[id]; ok {
		return t
	}

	return Topic{Title: id}
}

// ScanStats counts documents seen by Scan.
type ScanStats struct {
	Loaded int
	Failed int
}

// TopicID derives the topic ID from a document filename: the part after the
// last underscore with the suffix removed. A filename without an underscore
// is used whole.
func TopicID(filename, suffix string) (string, error) {
	base, ok := strings.CutSuffix(filename, suffix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoTopicID, filename)
	}

	if i := strings.LastIndex(base, idSeparator); i >= 0 {
		base = base[i+len(idSeparator):]
	}

	return base, nil
}

// Scan reads every file ending in suffix from the root of fsys. A document
// that cannot be read or decoded is logged and skipped; the scan only fails
// when the directory itself cannot be listed. Files are visited in name
// order, so when two files map to the same topic the later name wins.
func Scan(ctx context.Context, fsys fs.FS, suffix string, logger *slog.Logger) (Index, ScanStats, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, ScanStats{}, fmt.Errorf("list metadata documents: %w", err)
	}

	index := make(Index, len(entries))

	var stats ScanStats

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		id, idErr := TopicID(entry.Name(), suffix)
		if idErr != nil {
			continue
		}

		topic, loadErr := load(fsys, entry.Name())
		if loadErr != nil {
			stats.Failed++

			logger.DebugContext(ctx, "skipping metadata document", "file", entry.Name(), "error", loadErr)

			continue
		}

		index[id] = topic
		stats.Loaded++
	}

	return index, stats, nil
}

func load(fsys fs.FS, name string) (Topic, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Topic{}, fmt.Errorf("read %s: %w", name, err)
	}

	var topic Topic

	err = json.Unmarshal(data, &topic)
	if err != nil {
		return Topic{}, fmt.Errorf("decode %s: %w", name, err)
	}

	return topic, nil
}
