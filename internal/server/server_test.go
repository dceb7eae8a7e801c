// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rectifyhq/rectify/internal/config"
	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/internal/scan"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestServer() *Server {
	return New(config.Default())
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := setupTestServer()
	w := doJSON(t, s, "GET", "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.Version != Version {
		t.Errorf("Version = %q, want %q", resp.Version, Version)
	}
}

func TestHandleAnalyze(t *testing.T) {
	s := setupTestServer()

	t.Run("bash fix applied", func(t *testing.T) {
		body := `{"content": "cp $SRC /backup\n", "language": "bash"}`
		w := doJSON(t, s, "POST", "/v1/analyze", body)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var res engine.Result
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatal(err)
		}
		if res.Language != lang.LangBash {
			t.Errorf("Language = %q", res.Language)
		}
		if len(res.Fixes) == 0 {
			t.Fatal("no fixes applied")
		}
		if !strings.Contains(res.FixedCode, `"$SRC"`) {
			t.Errorf("FixedCode = %q", res.FixedCode)
		}
	})

	t.Run("language detected from filename", func(t *testing.T) {
		body := `{"content": "x = 1\n", "filename": "util.py"}`
		w := doJSON(t, s, "POST", "/v1/analyze", body)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var res engine.Result
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatal(err)
		}
		if res.Language != lang.LangPython {
			t.Errorf("Language = %q, want python", res.Language)
		}
	})

	t.Run("missing content rejected", func(t *testing.T) {
		w := doJSON(t, s, "POST", "/v1/analyze", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Code != "INVALID_REQUEST" {
			t.Errorf("Code = %q", resp.Code)
		}
	})

	t.Run("unknown language rejected", func(t *testing.T) {
		body := `{"content": "x", "language": "cobol"}`
		w := doJSON(t, s, "POST", "/v1/analyze", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})
}

func TestHandleDetectLanguage(t *testing.T) {
	s := setupTestServer()
	body := `{"content": "#!/bin/bash\necho hi\n"}`
	w := doJSON(t, s, "POST", "/v1/detect-language", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp DetectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Language != lang.LangBash {
		t.Errorf("Language = %q, want bash", resp.Language)
	}
}

func TestHandleLanguages(t *testing.T) {
	s := setupTestServer()
	w := doJSON(t, s, "GET", "/v1/languages", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp LanguagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Languages) != len(lang.All()) {
		t.Errorf("got %d languages, want %d", len(resp.Languages), len(lang.All()))
	}
}

func TestHandleScan(t *testing.T) {
	s := setupTestServer()

	root := t.TempDir()
	script := filepath.Join(root, "deploy.sh")
	original := "#!/bin/bash\nrm -rf $TARGET\n"
	if err := os.WriteFile(script, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("reports without rewriting", func(t *testing.T) {
		w := doJSON(t, s, "POST", "/v1/scan", `{"path": "`+root+`"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var report scan.ProjectReport
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatal(err)
		}
		if len(report.Files) != 1 {
			t.Fatalf("Files = %d", len(report.Files))
		}
		if report.TotalFixes == 0 {
			t.Error("expected at least one fix in the report")
		}

		data, err := os.ReadFile(script)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != original {
			t.Error("scan endpoint rewrote a project file")
		}
	})

	t.Run("relative path rejected", func(t *testing.T) {
		w := doJSON(t, s, "POST", "/v1/scan", `{"path": "relative/dir"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Code != "INVALID_PATH" {
			t.Errorf("Code = %q", resp.Code)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		w := doJSON(t, s, "POST", "/v1/scan", `{"path": "`+filepath.Join(root, "nope")+`"}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer()

	body := `{"content": "echo $X\n", "language": "bash"}`
	if w := doJSON(t, s, "POST", "/v1/analyze", body); w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d", w.Code)
	}

	w := doJSON(t, s, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	out := w.Body.String()
	for _, metric := range []string{"rectify_analyses_total", "rectify_http_requests_total"} {
		if !strings.Contains(out, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}
