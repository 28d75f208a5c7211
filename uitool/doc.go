// Package uitool implements the registry of generated UI widgets agents may
// render. The engine treats widget content as opaque: a tool is an id, a
// display name, a description and (for the directory-backed registry) a
// source file on disk. Agents see only the subset of tools their definition
// permits.
package uitool
