package media

import (
	"os"
	"path/filepath"
	"strings"
)

// StorageConfig names the places removable and built-in media can appear.
type StorageConfig struct {
	// Paths are well-known mount points, reported when they exist.
	Paths []string
	// USBMountRoot is scanned for usb* directories.
	USBMountRoot string
	// RemovableRoots are scanned for volume directories, except "emulated" and "self".
	RemovableRoots []string
}

// StorageLocations returns the existing storage directories, deduplicated, in discovery order.
func StorageLocations(cfg StorageConfig) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)

	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}

		if !isDir(path) {
			return
		}

		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, p := range cfg.Paths {
		if p != "" {
			add(p)
		}
	}

	if cfg.USBMountRoot != "" {
		for _, name := range subdirs(cfg.USBMountRoot) {
			if strings.HasPrefix(strings.ToLower(name), "usb") {
				add(filepath.Join(cfg.USBMountRoot, name))
			}
		}
	}

	for _, root := range cfg.RemovableRoots {
		if root == "" {
			continue
		}

		for _, name := range subdirs(root) {
			if name == "emulated" || name == "self" {
				continue
			}

			add(filepath.Join(root, name))
		}
	}

	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func subdirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	return names
}
