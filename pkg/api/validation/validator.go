// Ganglink Core
// Copyright (c) 2026 The Ganglink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Ganglink Core.
//
// Ganglink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Ganglink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Ganglink Core.  If not, see <http://www.gnu.org/licenses/>.

// Package validation checks API request bodies with go-playground/validator
// and a few driver-specific rules.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/ganglion/link"
	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingParams = errors.New("missing params")
	ErrInvalidParams = errors.New("invalid params")
)

// Validator validates API parameters.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("archivepath", validateArchivePath)
	_ = v.RegisterValidation("devicename", validateDeviceName)

	return &Validator{validate: v}
}

// DefaultValidator is the shared instance used by the API handlers.
var DefaultValidator = NewValidator()

// Validate validates a struct and returns an *Error listing every failed
// field.
func (v *Validator) Validate(params any) error {
	if err := v.validate.Struct(params); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewError(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateAndUnmarshal unmarshals JSON params and validates them.
// Returns ErrMissingParams if params is empty, ErrInvalidParams if unmarshal fails,
// or an *Error if validation fails.
func ValidateAndUnmarshal[T any](params json.RawMessage, dest *T) error {
	if len(params) == 0 {
		return ErrMissingParams
	}
	if err := json.Unmarshal(params, dest); err != nil {
		return ErrInvalidParams
	}
	return DefaultValidator.Validate(dest)
}

// IsValidationError reports whether err came from request validation.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.Is(err, ErrMissingParams) ||
		errors.Is(err, ErrInvalidParams) ||
		errors.As(err, &ve)
}

// validateArchivePath accepts relative paths with the archive extension
// that stay inside the archive directory.
func validateArchivePath(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	if strings.ContainsRune(val, 0) || filepath.IsAbs(val) || strings.HasPrefix(val, "/") {
		return false
	}
	cleaned := filepath.Clean(val)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return false
	}
	return filepath.Ext(val) == archive.Extension
}

// validateDeviceName checks a name fits what the hub reports during a scan.
func validateDeviceName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" || len(val) > link.MaxDeviceNameLength {
		return false
	}
	// commas and semicolons would split the command line
	return !strings.ContainsAny(val, ",;\r\n")
}
