package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// CompressedSuffix marks files stored as LZ4 frames.
const CompressedSuffix = ".lz4"

// outputFilePerm is the permission of written report files.
const outputFilePerm = 0o644

// IsCompressed reports whether path names an LZ4-compressed report.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// WriteFile encodes the report into path. The file is written to a
// temporary sibling and renamed into place, so readers never observe a
// partial report. Paths ending in CompressedSuffix are LZ4 frame-compressed.
// It returns the number of bytes written to disk.
func WriteFile(path string, codec Codec, r *Report) (int64, error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("create report file: %w", err)
	}

	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	counter := &countingWriter{w: tmp}

	err = Write(counter, IsCompressed(path), codec, r)
	if err != nil {
		cleanup()

		return 0, err
	}

	err = tmp.Chmod(outputFilePerm)
	if err != nil {
		cleanup()

		return 0, fmt.Errorf("chmod report file: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		_ = os.Remove(tmpName)

		return 0, fmt.Errorf("close report file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		_ = os.Remove(tmpName)

		return 0, fmt.Errorf("rename report file: %w", err)
	}

	return counter.n, nil
}

// Write encodes the report to w, optionally through an LZ4 frame writer.
func Write(w io.Writer, compress bool, codec Codec, r *Report) error {
	if !compress {
		return codec.Encode(w, r)
	}

	zw := lz4.NewWriter(w)

	err := codec.Encode(zw, r)
	if err != nil {
		return errors.Join(err, zw.Close())
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("close lz4 writer: %w", err)
	}

	return nil
}

// ReadFile returns the serialized report stored at path, decompressing LZ4
// frames when the path ends in CompressedSuffix. A path of "-" reads stdin.
func ReadFile(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return data, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if IsCompressed(path) {
		src = lz4.NewReader(f)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}

	return data, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
