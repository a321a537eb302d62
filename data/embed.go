// Package data carries the embedded question banks and the JSON schema they
// are validated against at load time.
package data

import "embed"

// Questions holds one bank file per category under questions/.
//
//go:embed questions/*.json
var Questions embed.FS

// BankSchema is the JSON schema every bank must satisfy before it is served.
//
//go:embed schema/question_bank.schema.json
var BankSchema []byte
