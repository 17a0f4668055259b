package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// The warehouse section is only checked once it has been resolved.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.Warehouse.HasInlineWarehouse() {
		errors = append(errors, c.validateWarehouse()...)
	}
	errors = append(errors, c.validateDuckDB()...)
	errors = append(errors, c.validateExtract()...)
	errors = append(errors, c.validateLogging()...)

	if c.ManifestPath == "" {
		errors = append(errors, ValidationError{
			Field:   "manifest_path",
			Message: "manifest_path is required",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateWarehouse() ValidationErrors {
	var errors ValidationErrors
	w := &c.Warehouse

	if !IsSupportedType(w.Type) {
		errors = append(errors, ValidationError{
			Field:   "warehouse.type",
			Message: fmt.Sprintf("type must be one of %s", strings.Join(SupportedTypes, ", ")),
		})
	}

	if w.User == "" {
		errors = append(errors, ValidationError{
			Field:   "warehouse.user",
			Message: "user is required",
		})
	}

	switch w.Type {
	case TypeSnowflake:
		if w.Account == "" {
			errors = append(errors, ValidationError{
				Field:   "warehouse.account",
				Message: "account is required for snowflake",
			})
		}
	case TypePostgres, TypeMySQL, TypeSQLServer:
		if w.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "warehouse.host",
				Message: "host is required",
			})
		}
		if w.PrivateKeyPath != "" {
			errors = append(errors, ValidationError{
				Field:   "warehouse.private_key_path",
				Message: "key-pair authentication is only supported for snowflake",
			})
		}
	}

	if w.Port < 0 || w.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "warehouse.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if w.AuthMethod() == "" {
		errors = append(errors, ValidationError{
			Field:   "warehouse.password",
			Message: "password or private_key_path is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[w.TLS] {
		errors = append(errors, ValidationError{
			Field:   "warehouse.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	return errors
}

func (c *Config) validateDuckDB() ValidationErrors {
	var errors ValidationErrors

	if c.DuckDB.DatabasePath == "" {
		errors = append(errors, ValidationError{
			Field:   "duckdb.database_path",
			Message: "database_path is required",
		})
	}

	return errors
}

func (c *Config) validateExtract() ValidationErrors {
	var errors ValidationErrors

	if c.Extract.RowLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "extract.row_limit",
			Message: "row_limit cannot be negative",
		})
	}

	if c.Extract.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "extract.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
