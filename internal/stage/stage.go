// Package stage implements the filesystem side of a web build: resetting
// the output directory and copying static inputs into it.
//
// Every failure is reported as an *errors.FilesystemError.
package stage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	bwerrors "github.com/catdevz/boidsweb/internal/errors"
	"github.com/catdevz/boidsweb/internal/util"
)

// ResetOutputDirectory removes path recursively if present and creates it
// fresh. It refuses to remove the filesystem root or any directory that
// contains the current working directory.
func ResetOutputDirectory(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return bwerrors.NewFilesystemError("reset", path, err)
	}
	if err := checkResetTarget(abs); err != nil {
		return bwerrors.NewFilesystemError("reset", path, err)
	}

	if err := os.RemoveAll(abs); err != nil {
		return bwerrors.NewFilesystemError("reset", path, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return bwerrors.NewFilesystemError("reset", path, err)
	}
	return nil
}

// RemoveOutputDirectory deletes path with the same safety checks as
// ResetOutputDirectory. A missing path is not an error.
func RemoveOutputDirectory(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return bwerrors.NewFilesystemError("remove", path, err)
	}
	if err := checkResetTarget(abs); err != nil {
		return bwerrors.NewFilesystemError("remove", path, err)
	}
	if err := os.RemoveAll(abs); err != nil {
		return bwerrors.NewFilesystemError("remove", path, err)
	}
	return nil
}

func checkResetTarget(abs string) error {
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("refusing to remove filesystem root")
	}
	if cwd, err := os.Getwd(); err == nil && util.IsWithin(abs, cwd) {
		return fmt.Errorf("refusing to remove a directory containing the working directory %s", cwd)
	}
	return nil
}

// CopyTree recursively copies the contents of src into dst, preserving the
// relative structure and file permission bits. Symlinks are followed; a
// symlinked directory that resolves to one of its own ancestors is reported
// as a cycle.
func CopyTree(src, dst string) error {
	st, err := os.Stat(src)
	if err != nil {
		return bwerrors.NewFilesystemError("copy", src, err)
	}
	if !st.IsDir() {
		return bwerrors.NewFilesystemError("copy", src, fmt.Errorf("not a directory"))
	}
	return copyTree(src, dst, nil)
}

// copyTree walks the resolved form of src. ancestors holds the resolved
// roots of every enclosing copy.
func copyTree(src, dst string, ancestors []string) error {
	root, err := filepath.EvalSymlinks(src)
	if err != nil {
		return bwerrors.NewFilesystemError("copy", src, err)
	}
	ancestors = append(ancestors[:len(ancestors):len(ancestors)], root)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return bwerrors.NewFilesystemError("copy", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return bwerrors.NewFilesystemError("copy", path, err)
		}
		dstPath := filepath.Join(dst, rel)

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				return bwerrors.NewFilesystemError("copy", path, err)
			}
			info, err := os.Stat(target)
			if err != nil {
				return bwerrors.NewFilesystemError("copy", path, err)
			}
			if !info.IsDir() {
				return copyFileContents(target, dstPath, info.Mode().Perm())
			}
			for _, a := range ancestors {
				if util.IsWithin(target, a) {
					return bwerrors.NewFilesystemError("copy", path, fmt.Errorf("symlink cycle: resolves to %s", target))
				}
			}
			return copyTree(target, dstPath, ancestors)
		}

		if d.IsDir() {
			if err := os.MkdirAll(dstPath, 0o755); err != nil {
				return bwerrors.NewFilesystemError("copy", dstPath, err)
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return bwerrors.NewFilesystemError("copy", path, err)
		}
		return copyFileContents(path, dstPath, info.Mode().Perm())
	})
}

// CopyFile copies a single file into dstDir, keeping its base name.
func CopyFile(src, dstDir string) error {
	st, err := os.Stat(src)
	if err != nil {
		return bwerrors.NewFilesystemError("copy", src, err)
	}
	if st.IsDir() {
		return bwerrors.NewFilesystemError("copy", src, fmt.Errorf("is a directory"))
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return bwerrors.NewFilesystemError("copy", dstDir, err)
	}
	return copyFileContents(src, filepath.Join(dstDir, filepath.Base(src)), st.Mode().Perm())
}

func copyFileContents(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return bwerrors.NewFilesystemError("copy", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return bwerrors.NewFilesystemError("copy", filepath.Dir(dst), err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return bwerrors.NewFilesystemError("copy", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return bwerrors.NewFilesystemError("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return bwerrors.NewFilesystemError("copy", dst, err)
	}
	if err := os.Chmod(dst, perm); err != nil {
		return bwerrors.NewFilesystemError("copy", dst, err)
	}
	return nil
}

// List returns the regular files under dir as sorted, slash-separated
// relative paths.
func List(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, bwerrors.NewFilesystemError("list", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Local stages into the local filesystem and logs each operation.
type Local struct {
	logger *zap.Logger
}

// NewLocal creates a Local stager. A nil logger disables logging.
func NewLocal(logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{logger: logger}
}

func (l *Local) Reset(dir string) error {
	l.logger.Debug("reset output directory", zap.String("dir", dir))
	return ResetOutputDirectory(dir)
}

func (l *Local) CopyTree(src, dst string) error {
	l.logger.Debug("copy tree", zap.String("src", src), zap.String("dst", dst))
	return CopyTree(src, dst)
}

func (l *Local) CopyFile(src, dstDir string) error {
	l.logger.Debug("copy file", zap.String("src", src), zap.String("dst", dstDir))
	return CopyFile(src, dstDir)
}

func (l *Local) List(dir string) ([]string, error) {
	return List(dir)
}
