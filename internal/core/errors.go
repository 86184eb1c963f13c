package core

// errors.go defines the sentinel errors of the diary core and maps technical
// errors to user-friendly messages with codes for support reference.
//
// # Key Errors (KEY001-KEY099)
//
//	KEY001 - Key pattern: key is not "DD/MM/YYYY - suffix" or a bare date
//	KEY002 - Key shape: normalized key is not a real canonical date key
//	KEY003 - Not text: the value stored under a key is not a string
//	KEY004 - Duplicate: two raw keys normalize to the same canonical key
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Entry not found
//	SES002 - Entry already exists
//	SES003 - Not a mapping: loaded document is not a key/text object
//	SES004 - Invalid shift request (unit or amount)
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy: too many imports in progress
//	IMP002 - Unsupported format: only .xlsx and .csv are read
//	IMP003 - Sheet not found
//
// # File and Storage Errors
//
//	FILE001 - File too large
//	FILE002 - Empty file
//	FILE003 - No file provided
//	DB001   - Connection refused
//	DB002   - Timeout
//
// # Request Errors
//
//	REQ001  - Request body is not valid JSON for the endpoint
//
// # Default Error (ERR000)
//
// Error patterns are matched case-insensitively using strings.Contains and
// the first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrKeyPattern        = errors.New("does not follow the required key pattern")
	ErrKeyShape          = errors.New("normalized key is not a valid canonical key")
	ErrNotText           = errors.New("value must be text")
	ErrDuplicateKey      = errors.New("duplicate key after normalization")
	ErrNotMapping        = errors.New("record set must be a mapping of key to text")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrEntryExists       = errors.New("entry already exists")
	ErrInvalidUnit       = errors.New("invalid shift unit")
	ErrTooManyImports    = errors.New("too many imports in progress, please try again later")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrEmptyFile         = errors.New("empty file")
	ErrBadRequest        = errors.New("invalid request body")
	ErrNoFile            = errors.New("no file provided")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Keys and records
	{
		pattern: ErrKeyPattern.Error(),
		msg: UserMessage{
			Message: "The key does not follow the required pattern",
			Action:  "Use DD/MM/YYYY - T or DD/MM/YYYY - P",
			Code:    "KEY001",
		},
	},
	{
		pattern: ErrKeyShape.Error(),
		msg: UserMessage{
			Message: "The key does not name a real date",
			Action:  "Check the day, month and year of the key",
			Code:    "KEY002",
		},
	},
	{
		pattern: ErrNotText.Error(),
		msg: UserMessage{
			Message: "Entry text must be a string",
			Action:  "Quote the value in the source file",
			Code:    "KEY003",
		},
	},
	{
		pattern: ErrDuplicateKey.Error(),
		msg: UserMessage{
			Message: "Two entries refer to the same date and category",
			Action:  "Merge the duplicated entries before loading",
			Code:    "KEY004",
		},
	},

	// Session
	{
		pattern: ErrEntryNotFound.Error(),
		msg: UserMessage{
			Message: "Entry not found",
			Action:  "Reload the diary and try again",
			Code:    "SES001",
		},
	},
	{
		pattern: ErrEntryExists.Error(),
		msg: UserMessage{
			Message: "An entry for this date and category already exists",
			Action:  "Edit the existing entry instead",
			Code:    "SES002",
		},
	},
	{
		pattern: ErrNotMapping.Error(),
		msg: UserMessage{
			Message: "The file is not a diary",
			Action:  "Load a JSON object of key to text",
			Code:    "SES003",
		},
	},
	{
		pattern: ErrInvalidUnit.Error(),
		msg: UserMessage{
			Message: "Invalid shift request",
			Action:  "Use days, months or years",
			Code:    "SES004",
		},
	},

	// Imports
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: ErrUnsupportedFormat.Error(),
		msg: UserMessage{
			Message: "Unsupported file format",
			Action:  "Upload an .xlsx or .csv file",
			Code:    "IMP002",
		},
	},
	{
		pattern: ErrSheetNotFound.Error(),
		msg: UserMessage{
			Message: "Sheet not found in workbook",
			Action:  "Check the sheet name or leave it empty to use the first sheet",
			Code:    "IMP003",
		},
	},

	// Requests
	{
		pattern: ErrBadRequest.Error(),
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a JSON body matching the endpoint",
			Code:    "REQ001",
		},
	},

	// Files and storage
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the spreadsheet into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: ErrEmptyFile.Error(),
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a spreadsheet with data rows",
			Code:    "FILE002",
		},
	},
	{
		pattern: ErrNoFile.Error(),
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to import",
			Code:    "FILE003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, a generic fallback with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, strings.ToLower(ep.pattern)) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
