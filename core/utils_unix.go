//go:build !windows

package core

func comparePaths(path1, path2 string) bool {
	return path1 == path2
}
