package upstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Living Room", "living_room"},
		{"Kitchen!!", "kitchen"},
		{"  leading", "leading"},
		{"trailing  ", "trailing"},
		{"Multi   Space", "multi_space"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestListEntityDescriptors_JoinsRegistries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/states", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"entity_id": "light.kitchen", "attributes": map[string]any{"supported_color_modes": []string{"brightness"}}},
		})
	})
	mux.HandleFunc("/api/config/entity_registry", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"entity_id": "light.kitchen", "platform": "hue", "area_id": "area1", "labels": []string{"label1"}},
		})
	})
	mux.HandleFunc("/api/config/area_registry", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "area1", "name": "Living Room"}})
	})
	mux.HandleFunc("/api/config/label_registry", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "label1", "name": "Important"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "test-token")
	descriptors, err := c.ListEntityDescriptors(t.Context())
	if err != nil {
		t.Fatalf("ListEntityDescriptors() error = %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("len(descriptors) = %d, want 1", len(descriptors))
	}
	d := descriptors[0]
	if d.Domain != "light" {
		t.Errorf("Domain = %q, want %q", d.Domain, "light")
	}
	if d.Platform != "hue" {
		t.Errorf("Platform = %q, want %q", d.Platform, "hue")
	}
	if d.Area != "living_room" {
		t.Errorf("Area = %q, want %q", d.Area, "living_room")
	}
	if len(d.Labels) != 1 || d.Labels[0] != "important" {
		t.Errorf("Labels = %v, want [important]", d.Labels)
	}
}

func TestListEntityDescriptors_MissingRegistryTreatedAsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/states", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"entity_id": "switch.fan", "attributes": map[string]any{}},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "test-token")
	descriptors, err := c.ListEntityDescriptors(t.Context())
	if err != nil {
		t.Fatalf("ListEntityDescriptors() error = %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("len(descriptors) = %d, want 1", len(descriptors))
	}
	if descriptors[0].Area != "" {
		t.Errorf("Area = %q, want empty when registry missing", descriptors[0].Area)
	}
}
