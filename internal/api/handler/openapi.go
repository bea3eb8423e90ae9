package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/webbase/adminapi/internal/api/middleware"
	"github.com/webbase/adminapi/internal/api/response"
)

// OpenAPIHandler serves the API description with info.version set to the
// running build.
type OpenAPIHandler struct {
	source  []byte
	version string

	once     sync.Once
	jsonDoc  []byte
	yamlDoc  []byte
	buildErr error
}

// NewOpenAPIHandler creates a handler for the given YAML document. The
// document is rendered once, on first request.
func NewOpenAPIHandler(yamlSpec []byte, version string) *OpenAPIHandler {
	return &OpenAPIHandler{source: yamlSpec, version: version}
}

func (h *OpenAPIHandler) build() {
	raw, err := yaml.YAMLToJSON(h.source)
	if err != nil {
		h.buildErr = fmt.Errorf("converting OpenAPI document: %w", err)
		return
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		h.buildErr = fmt.Errorf("decoding OpenAPI document: %w", err)
		return
	}
	if info, ok := doc["info"].(map[string]any); ok && h.version != "" {
		info["version"] = h.version
	}

	if h.jsonDoc, err = json.Marshal(doc); err != nil {
		h.buildErr = fmt.Errorf("encoding OpenAPI document: %w", err)
		return
	}
	if h.yamlDoc, err = yaml.JSONToYAML(h.jsonDoc); err != nil {
		h.buildErr = fmt.Errorf("encoding OpenAPI document: %w", err)
	}
}

// ServeHTTP writes the document as JSON, or as YAML with ?format=yaml.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.build)

	if h.buildErr != nil {
		slog.Error("failed to render OpenAPI document", "error", h.buildErr)
		requestID := middleware.GetRequestID(r.Context())
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render OpenAPI document", requestID)
		return
	}

	body, contentType := h.jsonDoc, "application/json"
	if r.URL.Query().Get("format") == "yaml" {
		body, contentType = h.yamlDoc, "application/yaml"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write OpenAPI response", "error", err)
	}
}
