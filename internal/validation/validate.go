// Package validation provides centralized input validation logic.
// This includes intent validation, object key validation, and metadata checks.
//
// All caller inputs are validated before a task is queued so that a
// malformed intent fails fast instead of burning its retry budget.
package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

// ValidateIntent validates everything the core needs from an upload intent.
func ValidateIntent(intent *uploadtypes.Intent) error {
	if intent == nil {
		return errors.NewError("validateIntent", errors.ErrInvalidInput).
			WithMessage("intent cannot be nil")
	}
	if intent.File == nil {
		return errors.NewError("validateIntent", errors.ErrInvalidInput).
			WithMessage("intent payload cannot be nil")
	}
	if err := ValidateFolder(intent.Folder); err != nil {
		return err
	}
	if err := ValidateFileName(intent.Name()); err != nil {
		return err
	}
	if err := ValidateContentType(intent.File.ContentType()); err != nil {
		return err
	}
	return ValidateMetadata(intent.Metadata)
}

// ValidateFolder validates a destination folder. An empty folder is allowed.
func ValidateFolder(folder string) error {
	if folder == "" {
		return nil
	}

	if hasPathTraversal(folder) {
		return errors.NewError("validateFolder", errors.ErrInvalidInput).
			WithMessage("folder cannot contain path traversal sequences")
	}

	if hasControlCharacters(folder) {
		return errors.NewError("validateFolder", errors.ErrInvalidInput).
			WithMessage("folder cannot contain control characters")
	}

	return nil
}

// ValidateFileName validates the name an object will be stored under.
func ValidateFileName(name string) error {
	if name == "" {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage("file name cannot be empty")
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("file name %q must not contain path separators", name))
	}

	if hasControlCharacters(name) {
		return errors.NewError("validateFileName", errors.ErrInvalidInput).
			WithMessage("file name cannot contain control characters")
	}

	return nil
}

// ValidateObjectKey validates that an object key is valid according to S3 rules.
// This includes preventing path traversal attacks and ensuring valid characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot be empty")
	}

	// Check for path traversal attempts
	if hasPathTraversal(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain path traversal sequences")
	}

	// S3 supports up to 1024 bytes
	if len(key) > 1024 {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot exceed 1024 characters")
	}

	if hasControlCharacters(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}

	return nil
}

// ValidateMetadata validates metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateContentType validates that a content type looks like a MIME type.
// An empty content type is allowed.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}

	if !mimePattern.MatchString(contentType) {
		return errors.NewError("validateContentType", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("content type %q must be a valid MIME type", contentType))
	}

	return nil
}

// hasPathTraversal checks for path traversal attempts in keys and folders
func hasPathTraversal(p string) bool {
	if strings.Contains(p, "..") {
		return true
	}

	cleaned := path.Clean(strings.ReplaceAll(p, `\`, "/"))

	// Absolute paths escape the folder prefix
	if strings.HasPrefix(cleaned, "/") {
		return true
	}

	// Windows-style absolute paths
	if len(cleaned) >= 3 && cleaned[1] == ':' && cleaned[2] == '/' {
		return true
	}

	return false
}

// hasControlCharacters checks for control characters
func hasControlCharacters(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

// validateMetadataKey validates a metadata key according to S3 rules
func validateMetadataKey(key string) error {
	if key == "" {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}

	if len(key) > 128 {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata key cannot exceed 128 characters")
	}

	// Prefixes reserved by AWS
	for _, prefix := range []string{"aws:", "x-amz-", "x-amz:"} {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}

	// Printable ASCII, no spaces
	for _, char := range key {
		if char <= 32 || char > 126 {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters")
		}
	}

	return nil
}

// validateMetadataValue validates a metadata value according to S3 rules
func validateMetadataValue(value string) error {
	if len(value) > 2048 {
		return errors.NewError("validateMetadata", errors.ErrInvalidInput).
			WithMessage("metadata value cannot exceed 2048 characters")
	}

	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\t' {
			return errors.NewError("validateMetadata", errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}

	return nil
}
