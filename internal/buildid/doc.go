/*
Package buildid provides structured, comparable identifiers for builds and
projects within a build tree.

Paths use the colon-separated form `:`, `:app`, `:libs:core`. A build is
identified by its path within the tree (`:` for the root build, `:buildSrc`
for an included build) and a project by its build plus its path within that
build. All identifier types are plain comparable values and can be used
directly as map keys.
*/
package buildid
