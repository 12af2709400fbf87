package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NodeExternals lists the packages installed under root/node_modules as
// esbuild external patterns. Each package yields its bare name and a
// "name/*" pattern so deep imports stay external too. A missing
// node_modules directory yields no externals.
func NodeExternals(root string) ([]string, error) {
	modulesDir := filepath.Join(root, "node_modules")
	entries, err := os.ReadDir(modulesDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", modulesDir, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !isDirLike(modulesDir, entry) {
			continue
		}
		if !strings.HasPrefix(name, "@") {
			names = append(names, name)
			continue
		}

		scoped, err := os.ReadDir(filepath.Join(modulesDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read scope %s: %w", name, err)
		}
		for _, pkg := range scoped {
			if strings.HasPrefix(pkg.Name(), ".") || !isDirLike(filepath.Join(modulesDir, name), pkg) {
				continue
			}
			names = append(names, name+"/"+pkg.Name())
		}
	}
	sort.Strings(names)

	externals := make([]string, 0, 2*len(names))
	for _, name := range names {
		externals = append(externals, name, name+"/*")
	}
	return externals, nil
}

// isDirLike accepts directories and symlinks to directories (npm link,
// pnpm layouts).
func isDirLike(parent string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}
