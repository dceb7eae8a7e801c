// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package server

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rectifyhq/rectify/internal/lang"
)

// MaxContentBytes caps the content field of analyze and detect
// requests. Matches the scanner's per-file limit so the API cannot be
// used to smuggle in files the scanner would refuse.
const MaxContentBytes = 1 << 20

// apiValidate validates request bodies after binding.
var apiValidate *validator.Validate

func init() {
	apiValidate = validator.New()
	_ = apiValidate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = apiValidate.RegisterValidation("language", validateLanguage)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxContentBytes
}

// validateLanguage accepts any tag Parse resolves exactly. An empty
// string passes via omitempty.
func validateLanguage(fl validator.FieldLevel) bool {
	_, ok := lang.Parse(fl.Field().String())
	return ok
}

// AnalyzeRequest is the body of POST /v1/analyze.
//
// Language is optional; when empty the service detects it from the
// filename and content. Filename is optional and only aids detection.
type AnalyzeRequest struct {
	Content  string `json:"content" validate:"required,maxbytes"`
	Language string `json:"language" validate:"omitempty,language"`
	Filename string `json:"filename"`
}

// Validate checks the request after JSON binding.
func (r *AnalyzeRequest) Validate() error {
	if err := apiValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid analyze request: %w", err)
	}
	return nil
}

// DetectRequest is the body of POST /v1/detect-language.
type DetectRequest struct {
	Content  string `json:"content" validate:"required,maxbytes"`
	Filename string `json:"filename"`
}

// Validate checks the request after JSON binding.
func (r *DetectRequest) Validate() error {
	if err := apiValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid detect request: %w", err)
	}
	return nil
}

// DetectResponse is the response for POST /v1/detect-language.
type DetectResponse struct {
	Language lang.Language `json:"language"`
}

// LanguagesResponse is the response for GET /v1/languages.
type LanguagesResponse struct {
	Languages []lang.Language `json:"languages"`
}

// ScanRequest is the body of POST /v1/scan.
//
// Path must be an absolute directory on the host the service runs on.
// The scan is read-only; fixed content is returned in the report, the
// files on disk are never rewritten through the API.
type ScanRequest struct {
	Path string `json:"path" validate:"required"`

	// IncludeDetails adds per-file issue and fix lists to the report.
	IncludeDetails bool `json:"include_details"`

	// Workers overrides the configured parallelism when positive.
	Workers int `json:"workers" validate:"gte=0,lte=64"`
}

// Validate checks the request after JSON binding.
func (r *ScanRequest) Validate() error {
	if err := apiValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid scan request: %w", err)
	}
	return nil
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
