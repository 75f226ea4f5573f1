//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListSnapshots(t *testing.T) {
	resp := env.GET(t, "/api/v1/snapshots")
	requireStatus(t, resp, http.StatusOK)

	result := decodeJSON[struct {
		Snapshots []map[string]any `json:"snapshots"`
	}](t, resp)
	t.Logf("snapshots count: %d", len(result.Snapshots))
}

func TestSnapshotLifecycle(t *testing.T) {
	resp := env.POST(t, "/api/v1/snapshots", map[string]any{"format": "png", "notes": "integration"})
	requireStatus(t, resp, http.StatusOK)
	created := decodeJSON[struct {
		Snapshot struct {
			ID string `json:"id"`
		} `json:"snapshot"`
		URL string `json:"url"`
	}](t, resp)
	if created.Snapshot.ID == "" {
		t.Fatal("expected snapshot ID after creation")
	}
	id := created.Snapshot.ID

	t.Cleanup(func() {
		r := env.DELETE(t, "/api/v1/snapshots/"+id)
		r.Body.Close()
	})

	resp = env.GET(t, "/api/v1/snapshots/"+id)
	requireStatus(t, resp, http.StatusOK)
	meta := decodeJSON[struct {
		ID     string `json:"id"`
		Format string `json:"format"`
		Notes  string `json:"notes"`
	}](t, resp)
	requireField(t, meta.Format, "png", "format")
	requireField(t, meta.Notes, "integration", "notes")

	resp = env.GET(t, created.URL)
	requireStatus(t, resp, http.StatusOK)
	requireField(t, resp.Header.Get("Content-Type"), "image/png", "Content-Type")
	resp.Body.Close()
}

func TestSnapshotNotFound(t *testing.T) {
	resp := env.GET(t, "/api/v1/snapshots/00000000-0000-4000-8000-000000000000")
	requireStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}
