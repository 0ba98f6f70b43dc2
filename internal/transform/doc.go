// Package transform holds the per-variable functions that derive one feature
// column from one or more raw columns. A Func reads source rows from a Reader
// and writes exactly one column of a group buffer; it has no other effects.
package transform
