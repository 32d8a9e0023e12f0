package roster

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Iron-Ham/agentboard/internal/logging"
)

func names(r Roster) []string {
	out := make([]string, 0, r.Len())
	for _, a := range r.Agents() {
		out = append(out, a.Name)
	}
	return out
}

func TestBuild_Ordering(t *testing.T) {
	dir := Directory{
		Manager: &Descriptor{ID: "mgr", Name: "Supervisor"},
		Collaborators: []Descriptor{
			{ID: "z", Name: "Zeta"},
			{ID: "a", Name: "alpha"},
			{ID: "b", Name: "Beta"},
			{ID: "a2", Name: "Alpha"},
		},
	}

	r, skipped := Build(dir)
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped: %v", skipped)
	}

	want := []string{"Supervisor", "Alpha", "alpha", "Beta", "Zeta"}
	got := names(r)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}

	if r.At(0).Role != RoleManager {
		t.Errorf("first agent role = %s, want MANAGER", r.At(0).Role)
	}
	for _, a := range r.Agents()[1:] {
		if a.Role != RoleCollaborator {
			t.Errorf("agent %s role = %s, want COLLABORATOR", a.ID, a.Role)
		}
	}
}

func TestBuild_ManagerFirstEvenIfNameSortsLater(t *testing.T) {
	r, _ := Build(Directory{
		Manager:       &Descriptor{ID: "m", Name: "Zed Manager"},
		Collaborators: []Descriptor{{ID: "a", Name: "Aardvark"}},
	})
	if r.At(0).ID != "m" {
		t.Errorf("manager not first: %v", names(r))
	}
}

func TestBuild_SkipsCollaboratorsWithoutID(t *testing.T) {
	r, skipped := Build(Directory{
		Manager:       &Descriptor{ID: "m", Name: "Manager"},
		Collaborators: []Descriptor{{ID: "", Name: "Ghost"}, {ID: "o", Name: "Orders"}},
	})
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if len(skipped) != 1 || skipped[0].Name != "Ghost" {
		t.Errorf("skipped = %v", skipped)
	}
}

func TestBuild_NoManager(t *testing.T) {
	r, _ := Build(Directory{Collaborators: []Descriptor{{ID: "o", Name: "Orders"}}})
	if r.At(0).Role != RoleCollaborator {
		t.Error("a roster without a manager descriptor should hold only collaborators")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestBuild_NameFallsBackToID(t *testing.T) {
	r, _ := Build(Directory{Manager: &Descriptor{ID: "mgr"}})
	if r.At(0).Name != "mgr" {
		t.Errorf("Name = %q, want id fallback", r.At(0).Name)
	}
}

func TestRoster_Lookups(t *testing.T) {
	r := New(
		Agent{ID: "m", Name: "Manager", Role: RoleManager},
		Agent{ID: "o", Name: "Orders", Role: RoleCollaborator},
	)

	if a, ok := r.Find("o"); !ok || a.Name != "Orders" {
		t.Errorf("Find(o) = %v, %v", a, ok)
	}
	if _, ok := r.Find("missing"); ok {
		t.Error("Find(missing) should report false")
	}

	agents := r.Agents()
	agents[0].Name = "changed"
	if r.At(0).Name != "Manager" {
		t.Error("Agents() must return a copy")
	}
	if !(Roster{}).IsEmpty() {
		t.Error("zero Roster should be empty")
	}
}

func TestClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != DefaultPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"manager": {"id": "mgr", "name": "Manager", "description": "routes requests", "type": "SUPERVISOR"},
			"collaborators": [
				{"id": "ord", "name": "Orders", "description": "order status", "type": "COLLABORATOR"},
				{"id": "cat", "name": "Catalog", "description": "products", "type": "COLLABORATOR"}
			]
		}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	r, err := c.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got := strings.Join(names(r), ","); got != "Manager,Catalog,Orders" {
		t.Errorf("order = %s", got)
	}
	if r.At(0).Description != "routes requests" {
		t.Errorf("Description = %q", r.At(0).Description)
	}
}

func TestClient_FetchFailureYieldsEmptyRoster(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"manager":`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			var buf bytes.Buffer
			c := &Client{
				BaseURL:    srv.URL,
				HTTPClient: srv.Client(),
				Logger:     logging.NewWriterLogger(&buf, logging.LevelDebug),
			}

			r := c.Fetch(context.Background())
			if !r.IsEmpty() {
				t.Errorf("expected empty roster, got %v", names(r))
			}
			if !strings.Contains(buf.String(), "failed to fetch roster") {
				t.Errorf("failure was not logged: %q", buf.String())
			}
		})
	}
}

func TestClient_LookupInvalidBaseURL(t *testing.T) {
	c := &Client{BaseURL: ""}
	if _, err := c.Lookup(context.Background()); err == nil {
		t.Error("expected error for empty base url")
	}
}
