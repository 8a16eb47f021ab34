package xrefmap

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the sidecar format changes.
const sidecarSchemaVersion uint16 = 1

// sidecar persists the byte-span index of a JSON map so unchanged maps skip the scan.
type sidecar struct {
	Schema  uint16
	Size    int64
	ModTime int64
	Entries []indexEntry
}

func sidecarPath(dir, mapPath string) string {
	abs, err := filepath.Abs(mapPath)
	if err != nil {
		abs = mapPath
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(dir, "index", hex.EncodeToString(sum[:])+".mp")
}

// readSidecar returns the stored index when it matches info.
func readSidecar(path string, info os.FileInfo) ([]indexEntry, bool, error) {
	f, err := os.Open(path) // #nosec G304 -- path is derived from the cache dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	var sc sidecar
	if err := msgpack.NewDecoder(f).Decode(&sc); err != nil {
		return nil, false, err
	}
	if sc.Schema != sidecarSchemaVersion || sc.Size != info.Size() || sc.ModTime != info.ModTime().UnixNano() {
		return nil, false, nil
	}
	return sc.Entries, true, nil
}

func writeSidecar(path string, info os.FileInfo, entries []indexEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	sc := sidecar{
		Schema:  sidecarSchemaVersion,
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		Entries: entries,
	}
	if err := msgpack.NewEncoder(f).Encode(&sc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
