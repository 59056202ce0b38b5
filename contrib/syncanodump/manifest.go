package syncanodump

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ManifestSuffix is appended to the dump path to name its manifest.
const ManifestSuffix = ".manifest.json"

// Manifest describes a dump file. It is written next to the dump and
// checked before a restore.
type Manifest struct {
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`

	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`

	Stats Stats `json:"stats"`

	SHA256 string `json:"sha256"`
}

// Stats counts what a dump or a restore went through.
type Stats struct {
	Collections int `json:"collections"`
	Folders     int `json:"folders"`
	Data        int `json:"data"`
	Links       int `json:"links"`
}

// Validate checks that m describes a dump this package can read.
func (m *Manifest) Validate() error {
	switch {
	case m.Format != DumpFormat:
		return fmt.Errorf("unsupported dump format %q", m.Format)
	case m.ProjectID == "":
		return errors.New("manifest missing project id")
	case m.SHA256 == "":
		return errors.New("manifest missing checksum")
	}
	return nil
}

// Verify compares the checksum and size of the file at path with m.
func (m *Manifest) Verify(path string) error {
	sum, size, err := checksum(path)
	if err != nil {
		return err
	}
	if size != m.Size {
		return fmt.Errorf("dump size mismatch: manifest says %d bytes, file has %d", m.Size, size)
	}
	if sum != m.SHA256 {
		return fmt.Errorf("dump checksum mismatch for %s", path)
	}
	return nil
}

// ManifestPath returns where the manifest of the dump at path lives.
func ManifestPath(path string) string {
	return path + ManifestSuffix
}

// ReadManifest loads the manifest of the dump at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(path))
	if err != nil {
		return nil, errors.Wrap(err, "read manifest failed")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parse manifest failed")
	}
	return &m, nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal manifest failed")
	}
	return errors.Wrap(os.WriteFile(ManifestPath(path), data, 0o600), "write manifest failed")
}

func checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
