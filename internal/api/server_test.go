package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"dashgrid/internal/catalog"
	"dashgrid/internal/config"
	"dashgrid/internal/domain"
	"dashgrid/internal/logging"
	"dashgrid/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Catalog) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	cat := storage.NewCatalog(db)
	return New(cat, config.Default().Server, logging.Discard()), cat
}

func do(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealthProbes(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/health/live", "/health/ready", "/health/startup"} {
		if resp, body := do(t, s.App(), http.MethodGet, path, ""); resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d %s", path, resp.StatusCode, body)
		}
	}
}

func TestViewLifecycle(t *testing.T) {
	s, cat := newTestServer(t)
	app := s.App()
	d, err := cat.CreateDashboard(context.Background(), "Ops", "")
	if err != nil {
		t.Fatal(err)
	}

	resp, body := do(t, app, http.MethodPost, "/api/v1/view/"+d.ID,
		`{"title":"CPU","type":"plot","x":0,"y":0,"width":400,"height":320,"schema_version":4,"host":"web-1"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	var created domain.Block
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Extra["host"] != "web-1" {
		t.Errorf("created = %+v", created)
	}
	if _, ok := created.Extra["schema_version"]; ok {
		t.Error("client schema_version stored")
	}

	resp, body = do(t, app, http.MethodPatch, "/api/v1/view/"+d.ID+"/"+created.ID,
		`{"title":"CPU","description":"","target":"","type":"plot","x":440,"y":0,"width":240,"height":200}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/dashboard/"+d.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get = %d %s", resp.StatusCode, body)
	}
	var got domain.Dashboard
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	want := domain.Geometry{X: 440, Y: 0, Width: 240, Height: 200}
	if len(got.Blocks) != 1 || got.Blocks[0].Geometry != want || got.Blocks[0].Extra["host"] != "web-1" {
		t.Errorf("dashboard = %s", body)
	}

	if resp, _ := do(t, app, http.MethodDelete, "/api/v1/view/"+d.ID+"/"+created.ID, ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete = %d", resp.StatusCode)
	}
	if resp, _ := do(t, app, http.MethodDelete, "/api/v1/view/"+d.ID+"/"+created.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", resp.StatusCode)
	}
}

func TestDashboardLifecycle(t *testing.T) {
	s, cat := newTestServer(t)
	app := s.App()

	resp, body := do(t, app, http.MethodPost, "/api/v1/dashboard", `{"title":"Ops"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	var d domain.Dashboard
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if _, err := cat.CreateBlock(context.Background(), d.ID, domain.Block{Title: "CPU", Geometry: domain.Geometry{Width: 400, Height: 320}}); err != nil {
		t.Fatal(err)
	}

	resp, body = do(t, app, http.MethodPatch, "/api/v1/dashboard/"+d.ID, `{"title":"Operations","description":"on-call"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch = %d %s", resp.StatusCode, body)
	}
	var renamed domain.Dashboard
	if err := json.Unmarshal(body, &renamed); err != nil {
		t.Fatal(err)
	}
	if renamed.Title != "Operations" || renamed.Description != "on-call" || len(renamed.Blocks) != 1 {
		t.Errorf("renamed = %s", body)
	}

	if resp, _ := do(t, app, http.MethodDelete, "/api/v1/dashboard/"+d.ID, ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete = %d", resp.StatusCode)
	}
	if resp, _ := do(t, app, http.MethodGet, "/api/v1/dashboard/"+d.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
	if resp, _ := do(t, app, http.MethodPatch, "/api/v1/dashboard/"+d.ID, `{"title":"Gone"}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("patch after delete = %d, want 404", resp.StatusCode)
	}
}

func TestRejectsInvalidRequests(t *testing.T) {
	s, cat := newTestServer(t)
	app := s.App()
	d, err := cat.CreateDashboard(context.Background(), "Ops", "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"below minimum", http.MethodPost, "/api/v1/view/" + d.ID, `{"width":120,"height":320}`, http.StatusBadRequest},
		{"negative", http.MethodPost, "/api/v1/view/" + d.ID, `{"x":-40,"width":400,"height":320}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/v1/view/" + d.ID, `{`, http.StatusBadRequest},
		{"unknown dashboard", http.MethodPost, "/api/v1/view/nope", `{"width":400,"height":320}`, http.StatusNotFound},
		{"unknown view", http.MethodPatch, "/api/v1/view/" + d.ID + "/nope", `{"x":0}`, http.StatusNotFound},
		{"missing title", http.MethodPost, "/api/v1/dashboard", `{"title":" "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp, body := do(t, app, tt.method, tt.path, tt.body); resp.StatusCode != tt.want {
				t.Errorf("status = %d %s, want %d", resp.StatusCode, body, tt.want)
			}
		})
	}
}

// TestClientAgainstServer runs the HTTP catalog client against a live
// server on a loopback port.
func TestClientAgainstServer(t *testing.T) {
	s, cat := newTestServer(t)
	ctx := context.Background()
	d, err := cat.CreateDashboard(ctx, "Ops", "")
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.App().Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	client := catalog.New("http://"+ln.Addr().String()+"/api/v1", 2*time.Second)

	list, err := client.ListDashboards(ctx)
	if err != nil || len(list) != 1 || list[0].ID != d.ID {
		t.Fatalf("ListDashboards = %+v, %v", list, err)
	}

	b, err := client.CreateBlock(ctx, d.ID, domain.Block{Title: "CPU", Geometry: domain.Geometry{Width: 400, Height: 320}})
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	moved := b.WithGeometry(domain.Geometry{X: 40, Y: 0, Width: 400, Height: 320})
	if _, err := client.UpdateBlockGeometry(ctx, d.ID, b.ID, moved); err != nil {
		t.Fatalf("UpdateBlockGeometry: %v", err)
	}

	got, err := client.FetchDashboard(ctx, d.ID)
	if err != nil {
		t.Fatalf("FetchDashboard: %v", err)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].X != 40 {
		t.Errorf("blocks = %+v", got.Blocks)
	}

	if err := client.DeleteBlock(ctx, d.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delete missing: %v", err)
	}
}
