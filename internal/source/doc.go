// Package source enumerates the source files handed to the model backend.
//
// [Discover] walks a project root, keeps files whose extension is configured,
// applies include and exclude globs and drops binary or oversized files. The
// result is sorted by path so that every run visits files in the same order.
package source
