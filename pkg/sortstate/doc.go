// Package sortstate stores a list's sort order in the URL query string.
//
// A Controller owns two parameters, {prefix}_sort and {prefix}_dir, and
// leaves every other parameter alone:
//
//	?foo=1                              default sort
//	?foo=1&tasks_sort=status&tasks_dir=desc
//	?foo=1&tasks_sort=none              explicitly unsorted
//
// Reading is a total function: a missing parameter yields the default, the
// sentinel "none" yields no sort, and a column outside the allow-list falls
// back to the default without touching the URL. Writing the default removes
// both parameters so URLs stay minimal. Writing the current state again
// performs no navigation.
//
// The controller only supports a single sort column. Normalize keeps the
// first allow-listed entry of a requested state and drops the rest.
package sortstate
