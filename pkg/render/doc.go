// Package render holds the visual outputs of drbmap.
//
// The [jobtree] subpackage draws the recursive job tree of a mapping run
// as a Graphviz diagram.
//
// [jobtree]: github.com/matzehuels/drbmap/pkg/render/jobtree
package render
