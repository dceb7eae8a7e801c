// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/internal/sandbox"
	"github.com/rectifyhq/rectify/internal/scan"
)

// handleHealth handles GET /health.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: Version})
}

// handleAnalyze handles POST /v1/analyze.
//
// Description:
//
//	Analyzes a single document, applies deterministic fixes and returns
//	the full result including the fixed content. When no language is
//	given the service detects one from the filename and content.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: engine.Result
//	400 Bad Request: Validation error
func (s *Server) handleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST", Details: err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "request validation failed",
			Code:  "INVALID_REQUEST", Details: err.Error(),
		})
		return
	}

	language := lang.Detect(req.Content, req.Filename)
	if req.Language != "" {
		language, _ = lang.Parse(req.Language)
	}

	start := time.Now()
	res := s.eng.Analyze(req.Content, language, req.Filename)
	elapsed := time.Since(start)

	label := string(res.Language)
	s.metrics.AnalysesTotal.WithLabelValues(label).Inc()
	s.metrics.AnalysisDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	s.metrics.FixesTotal.WithLabelValues(label).Add(float64(len(res.Fixes)))

	s.log.Info("analyze request served",
		"request_id", requestID,
		"language", label,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"fixes", len(res.Fixes))
	c.JSON(http.StatusOK, res)
}

// handleDetectLanguage handles POST /v1/detect-language.
func (s *Server) handleDetectLanguage(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST", Details: err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "request validation failed",
			Code:  "INVALID_REQUEST", Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, DetectResponse{
		Language: lang.Detect(req.Content, req.Filename),
	})
}

// handleLanguages handles GET /v1/languages.
func (s *Server) handleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, LanguagesResponse{Languages: lang.All()})
}

// handleScan handles POST /v1/scan.
//
// Description:
//
//	Walks a project directory on the service host, analyzes every
//	eligible file and returns the aggregated project report. The scan
//	never rewrites files; the fixed content is only part of the report
//	when details are requested.
//
// Request Body:
//
//	ScanRequest
//
// Response:
//
//	200 OK: scan.ProjectReport
//	400 Bad Request: Validation error or relative path
//	404 Not Found: Path does not exist or is not a directory
//	500 Internal Server Error: Walk or analysis failure
func (s *Server) handleScan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST", Details: err.Error(),
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "request validation failed",
			Code:  "INVALID_REQUEST", Details: err.Error(),
		})
		return
	}
	if !filepath.IsAbs(req.Path) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "path must be absolute",
			Code:  "INVALID_PATH",
		})
		return
	}
	info, err := os.Stat(req.Path)
	if err != nil || !info.IsDir() {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "path is not a readable directory",
			Code:  "NOT_FOUND",
		})
		return
	}

	scanner := scan.NewScanner(
		scan.WithExclusions(s.cfg.Exclusions...),
		scan.WithScanLogger(s.log))
	entries, skipped, err := scanner.Walk(req.Path)
	if err != nil {
		s.metrics.ScansTotal.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "project walk failed",
			Code:  "SCAN_FAILED", Details: err.Error(),
		})
		return
	}

	workers := s.cfg.Workers
	if req.Workers > 0 {
		workers = req.Workers
	}
	runner := scan.NewRunner(s.eng,
		scan.WithWorkers(workers),
		scan.WithRunLogger(s.log))
	results, err := runner.Run(c.Request.Context(), entries)
	if err != nil {
		s.metrics.ScansTotal.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "project analysis failed",
			Code:  "SCAN_FAILED", Details: err.Error(),
		})
		return
	}

	projectLang, _ := sandbox.DetectProjectLanguage(req.Path)
	builder := &scan.ReportBuilder{IncludeDetails: req.IncludeDetails}
	report := builder.Build(projectLang, results, skipped)

	outcome := "clean"
	if report.HasErrors() {
		outcome = "errors"
	}
	s.metrics.ScansTotal.WithLabelValues(outcome).Inc()

	s.log.Info("scan request served",
		"request_id", requestID,
		"path", req.Path,
		"files", len(report.Files),
		"errors", report.TotalErrors,
		"fixes", report.TotalFixes)
	c.JSON(http.StatusOK, report)
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
