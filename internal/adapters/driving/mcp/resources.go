package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for persona resources.
	uriScheme = "persona://"

	cacheURI      = uriScheme + "cache"
	docsStatusURI = uriScheme + "docs/status"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         cacheURI,
		Name:        "cache",
		Description: "Cached post snapshots with their age and size",
		MIMEType:    "application/json",
	}, s.handleCacheResource)

	s.server.AddResource(&mcp.Resource{
		URI:         docsStatusURI,
		Name:        "docs-status",
		Description: "State of the documentation index",
		MIMEType:    "application/json",
	}, s.handleDocsStatusResource)
}

type cacheRecord struct {
	Key       string `json:"key"`
	Namespace string `json:"namespace,omitempty"`
	Query     string `json:"query,omitempty"`
	Posts     int    `json:"posts"`
	CachedAt  string `json:"cached_at,omitempty"`
	Expired   bool   `json:"expired"`
	Size      int64  `json:"size"`
	Error     string `json:"error,omitempty"`
}

// handleCacheResource lists the cache records.
func (s *Server) handleCacheResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Cache == nil {
		return jsonResult(req.Params.URI, "[]"), nil
	}

	infos, err := s.ports.Cache.ListCaches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing caches: %w", err)
	}

	records := make([]cacheRecord, len(infos))
	for i := range infos {
		info := &infos[i]
		records[i] = cacheRecord{
			Key:       info.Key,
			Namespace: string(info.Namespace),
			Query:     info.Metadata.Query,
			Posts:     info.PostCount,
			Expired:   info.Expired,
			Size:      info.Size,
			Error:     info.Error,
		}
		if !info.CachedAt.IsZero() {
			records[i].CachedAt = info.CachedAt.Format(time.RFC3339)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling caches: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

// handleDocsStatusResource reports the documentation index state without
// loading it.
func (s *Server) handleDocsStatusResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Docs == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	st := s.ports.Docs.Status()
	status := struct {
		Ready       bool   `json:"ready"`
		Sections    int    `json:"sections"`
		LastUpdated string `json:"last_updated,omitempty"`
		Stale       bool   `json:"stale"`
	}{
		Ready:    st.Ready,
		Sections: st.ChunkCount,
		Stale:    st.Stale,
	}
	if !st.LastUpdated.IsZero() {
		status.LastUpdated = st.LastUpdated.Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling docs status: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

func jsonResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}
