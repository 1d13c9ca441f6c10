package integration

import (
	"net/http"
	"testing"

	"github.com/stackpal/tessera/model"
)

func TestSecurity_MissingToken(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.GET("/ui/datasets", "")
	h.AssertStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestSecurity_ExpiredToken(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.GET("/ui/datasets", h.GenerateExpiredToken(ViewerClaims()))

	var body struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	h.AssertJSON(t, resp, http.StatusUnauthorized, &body)
	if body.Error.Message != "Token expired" {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestSecurity_TamperedToken(t *testing.T) {
	h := NewTestHarness(t)

	token := h.GenerateToken(ViewerClaims())
	resp := h.GET("/ui/datasets", token+"x")
	h.AssertStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestSecurity_CapabilityEnforcement(t *testing.T) {
	h := NewTestHarness(t)

	// A subject with no matching role holds no capabilities and cannot see
	// the capability-gated orders dataset.
	token := h.GenerateToken(TestClaims{SubjectID: "user-nobody", Roles: []string{"ghost"}})
	resp := h.GET("/ui/datasets/orders", token)
	h.AssertStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// The public products dataset stays visible.
	resp = h.GET("/ui/datasets/products", token)
	h.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestSecurity_DatasetListingIsCapabilityFiltered(t *testing.T) {
	h := NewTestHarness(t)

	token := h.GenerateToken(TestClaims{SubjectID: "user-nobody"})

	var body struct {
		Datasets []struct {
			Dataset string `json:"dataset"`
		} `json:"datasets"`
	}
	h.AssertJSON(t, h.GET("/ui/datasets", token), http.StatusOK, &body)

	for _, d := range body.Datasets {
		if d.Dataset == "orders" {
			t.Error("orders listed without orders:view capability")
		}
	}
	if len(body.Datasets) != 1 || body.Datasets[0].Dataset != "products" {
		t.Errorf("datasets = %+v", body.Datasets)
	}
}

func TestSecurity_ResponseHeaders(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.GET("/ui/health", "")
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if resp.Header.Get("X-Correlation-Id") == "" {
		t.Error("X-Correlation-Id missing")
	}
}
