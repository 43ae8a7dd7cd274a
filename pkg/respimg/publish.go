package respimg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Publish copies the generated files of s into dir, the directory served at the URL
// prefix. Files that are already up to date are skipped.
func Publish(s *Set, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	copied := []string{}
	for _, src := range s.Files() {
		dst := filepath.Join(dir, filepath.Base(src))
		if !stale(src, dst) {
			klog.V(1).Infof("%s is up to date", dst)
			continue
		}

		klog.V(1).Infof("publishing %s -> %s", src, dst)
		if err := copy.Copy(src, dst); err != nil {
			return copied, fmt.Errorf("copy: %w", err)
		}
		copied = append(copied, dst)
	}
	return copied, nil
}

// stale reports whether dst is missing or differs from src in size or age.
func stale(src string, dst string) bool {
	sst, err := os.Stat(src)
	if err != nil {
		return true
	}

	dt, err := os.Stat(dst)
	if err != nil {
		klog.V(1).Infof("updating %s: does not exist", dst)
		return true
	}

	if sst.Size() != dt.Size() {
		klog.V(1).Infof("updating %s: size mismatch", dst)
		return true
	}

	if sst.ModTime().After(dt.ModTime()) {
		klog.V(1).Infof("updating %s: source newer", dst)
		return true
	}
	return false
}
