package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"dashgrid/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1", 5*time.Second, WithHTTPClient(srv.Client()))
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("request body %q: %v", data, err)
	}
	return m
}

func TestClient_ListAndFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboard/{$}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"uuid":"d1","title":"Ops"},{"uuid":"d2","title":"Sales"}]`)
	})
	mux.HandleFunc("GET /api/v1/dashboard/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "d1" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"title":"Ops","views":[
			{"uuid":"v1","title":"CPU","type":"plot","x":0,"y":0,"width":400,"height":320,"host":"web-1"}]}`)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	list, err := c.ListDashboards(ctx)
	if err != nil {
		t.Fatalf("ListDashboards: %v", err)
	}
	if len(list) != 2 || list[1].Title != "Sales" {
		t.Errorf("list = %+v", list)
	}

	d, err := c.FetchDashboard(ctx, "d1")
	if err != nil {
		t.Fatalf("FetchDashboard: %v", err)
	}
	if d.ID != "d1" || len(d.Blocks) != 1 {
		t.Fatalf("dashboard = %+v", d)
	}
	if b := d.Blocks[0]; b.Width != 400 || b.Extra["host"] != "web-1" {
		t.Errorf("block = %+v", b)
	}

	if _, err := c.FetchDashboard(ctx, "gone"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClient_UpdateBlockGeometrySendsPatchBody(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/v1/view/{dash}/{view}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("dash") != "d1" || r.PathValue("view") != "v1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		got = decodeBody(t, r)
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	b := domain.Block{
		ID: "v1", Title: "CPU", Type: domain.BlockTypePlot, Target: "cpu", Service: "infra",
		Geometry: domain.Geometry{X: 40, Y: 80, Width: 240, Height: 200},
		Extra:    map[string]any{"schema_version": 2.0},
	}
	updated, err := c.UpdateBlockGeometry(context.Background(), "d1", "v1", b)
	if err != nil {
		t.Fatalf("UpdateBlockGeometry: %v", err)
	}
	if updated.Geometry != b.Geometry {
		t.Errorf("updated = %+v", updated.Geometry)
	}

	keys := make([]string, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	want := []string{"description", "height", "target", "title", "type", "width", "x", "y"}
	if len(keys) != len(want) {
		t.Fatalf("body keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("body keys = %v, want %v", keys, want)
		}
	}
	if got["x"] != 40.0 || got["height"] != 200.0 {
		t.Errorf("body = %v", got)
	}
}

func TestClient_CreateBlockStripsServerFields(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/view/{dash}", func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		got["uuid"] = "new-id"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(got)
	})
	c := newTestClient(t, mux)

	draft := domain.Block{
		ID: "client-side", Title: "Errors", Type: domain.BlockTypeTable,
		Geometry: domain.Geometry{Width: 400, Height: 320},
		Extra:    map[string]any{"schema_version": 1.0, "status": "5xx"},
	}
	created, err := c.CreateBlock(context.Background(), "d1", draft)
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if created.ID != "new-id" || created.Title != "Errors" || created.Extra["status"] != "5xx" {
		t.Errorf("created = %+v", created)
	}
	if _, ok := got["schema_version"]; ok {
		t.Error("schema_version sent to server")
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, func(err error) bool { return errors.Is(err, domain.ErrNotFound) }},
		{"server error", http.StatusBadGateway, func(err error) bool { return errors.Is(err, ErrNetwork) }},
		{"bad request", http.StatusBadRequest, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Code == http.StatusBadRequest && se.Body == "width too small"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, "width too small")
			}))
			err := c.DeleteBlock(context.Background(), "d1", "v1")
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.ListDashboards(context.Background()); !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}
