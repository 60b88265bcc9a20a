// Package dca holds the declarative table configuration ("data container
// array") consumed by the field renderer, the button generator and the
// picker. Schema documents are parsed once into typed TableSpec values and
// exposed through a Store. Apart from the picker's sorting-root filter and
// hot reloads, a Store is read-only after construction.
package dca
