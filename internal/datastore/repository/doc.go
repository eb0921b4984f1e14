// Package repository provides the query and write paths over the quicktest schema.
//
// Feedback writes run in a single transaction that also recomputes the owning
// case's cached status and appends a changelog entry, so readers never observe
// a feedback row whose case status disagrees with it.
package repository
