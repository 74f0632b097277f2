package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	out := render(status{
		State:        "link-configured",
		LinkUp:       true,
		Registration: "home",
		RSSI:         -73,
		Model:        "EG25",
		Manufacturer: "Quectel",
		LAC:          0x1A2B,
		CellID:       0x1C3D,
	})

	for _, want := range []string{"link-configured", "home", "-73 dBm", "Quectel EG25", "1A2B / 1C3D"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "IMSI") {
		t.Errorf("empty fields must be omitted:\n%s", out)
	}
}

func TestRender_Error(t *testing.T) {
	out := render(status{State: "error", Error: "mux channel attach failed", RSSI: rssiInvalid})

	if !strings.Contains(out, "mux channel attach failed") || !strings.Contains(out, "unknown") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"state":"attaching","linkUp":false,"rssi":-1000,"registration":"searching"}`))
	}))
	defer srv.Close()

	st, err := fetch(context.Background(), srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.State != "attaching" || st.Registration != "searching" || st.RSSI != rssiInvalid {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestFetch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := fetch(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Error("expected error")
	}
}
