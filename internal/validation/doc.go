// Package validation provides input validation for upload intents and object keys.
package validation
