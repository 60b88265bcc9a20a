// Package template defines the renderer seam used for backend templates such
// as the rich text editor containers. The gotemplate subpackage provides the
// pongo2 implementation.
package template
