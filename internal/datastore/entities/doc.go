// Package entities contains the GORM models for the quicktest schema.
//
// Organizations own sessions, sessions own features, features own test cases,
// and testers attach pass/fail feedback to cases. Child rows cascade on delete.
package entities
