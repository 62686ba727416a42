// Package v1 provides the REST API handlers for repository traversal.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/treewalk-labs/git-traverser/internal/service"
	"github.com/treewalk-labs/git-traverser/internal/versions"
	"github.com/treewalk-labs/git-traverser/internal/workspace"
)

// gitTokenHeader carries a repository access token when the caller prefers
// not to place it in the request body. A token in the body wins.
const gitTokenHeader = "X-Git-Token" //nolint:gosec // header name, not a credential

// FilePatternList accepts either a JSON array of strings or a single
// comma-separated string, so both `["*.go", "*.md"]` and `"*.go,*.md"`
// decode to the same override list.
type FilePatternList []string

// UnmarshalJSON implements json.Unmarshaler
func (l *FilePatternList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*l = asList
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return errors.New("file_patterns must be a list of strings or a comma-separated string")
	}

	parts := strings.Split(asString, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	*l = patterns
	return nil
}

// StructureRequest represents the traversal request body
type StructureRequest struct {
	RepoURL      string           `json:"repo_url"`
	Branch       string           `json:"branch,omitempty"`
	Type         string           `json:"type,omitempty"`
	FilePatterns *FilePatternList `json:"file_patterns,omitempty"`
	GitToken     string           `json:"git_token,omitempty"`
}

// StructureResponse wraps the traversed repository tree
type StructureResponse struct {
	Structure any `json:"structure"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes defines the routes for the traversal API with dependency injection
type Routes struct {
	service service.TraversalService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.TraversalService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates a new router for the traversal API
func Router(svc service.TraversalService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Post("/structure", routes.postStructure)

	return r
}

// postStructure handles POST /v1/structure
func (rr *Routes) postStructure(w http.ResponseWriter, r *http.Request) {
	var body StructureRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rr.writeErrorResponse(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if body.RepoURL == "" {
		rr.writeErrorResponse(w, "repo_url is required", http.StatusBadRequest)
		return
	}

	token := body.GitToken
	if token == "" {
		token = r.Header.Get(gitTokenHeader)
	}

	req := &service.TraversalRequest{
		RepoURL:  body.RepoURL,
		Branch:   body.Branch,
		Provider: workspace.Provider(body.Type),
		Token:    token,
	}
	if body.FilePatterns != nil {
		req.FilePatterns = []string(*body.FilePatterns)
	}

	tree, err := rr.service.GetStructure(r.Context(), req)
	if err != nil {
		slog.Error("Traversal failed", "repo_url", body.RepoURL, "error", err)
		rr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	rr.writeJSONResponse(w, StructureResponse{Structure: tree})
}

// HealthRouter creates a router for health check endpoints
func HealthRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	response := map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"build_date": info.BuildDate,
		"go_version": info.GoVersion,
		"platform":   info.Platform,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode version info", "error", err)
	}
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
