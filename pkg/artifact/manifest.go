package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// Manifest records everything needed to reproduce a run: the input hash, a
// run identifier, effective parameters, dependency versions, and runtime.
type Manifest struct {
	RunID           string                 `json:"run_id"`
	InputSHA256     string                 `json:"input_sha256"`
	DatetimeUTC     string                 `json:"datetime_utc"`
	EffectiveParams map[string]interface{} `json:"effective_params"`
	LibraryVersions map[string]string      `json:"library_versions"`
	RuntimeSeconds  float64                `json:"runtime_seconds"`
}

// FileSHA256 hashes a file in chunks without loading it whole. Empty string
// when the file does not exist.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LibraryVersions reads dependency versions from the build info embedded in
// the binary. Empty outside a module-built binary (tests, go run on
// uncommitted trees).
func LibraryVersions() map[string]string {
	out := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, dep := range info.Deps {
		out[dep.Path] = dep.Version
	}
	return out
}

// WriteManifest writes manifest.json for a completed run.
func WriteManifest(path, inputPath string, params map[string]interface{}, runtime time.Duration) error {
	sha, err := FileSHA256(inputPath)
	if err != nil {
		return err
	}
	m := Manifest{
		RunID:           uuid.NewString(),
		InputSHA256:     sha,
		DatetimeUTC:     time.Now().UTC().Format(time.RFC3339),
		EffectiveParams: params,
		LibraryVersions: LibraryVersions(),
		RuntimeSeconds:  runtime.Seconds(),
	}
	return writeJSON(path, m)
}
