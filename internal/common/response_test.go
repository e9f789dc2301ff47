package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONErrorShape(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(rr, http.StatusConflict, "BUSY", "try again later", nil)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "BUSY" || body.Error.Message != "try again later" {
		t.Fatalf("unexpected error body %+v", body.Error)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"input":"x","bogus":1}`))
	var dst struct {
		Input string `json:"input"`
	}
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	var dst struct{}
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatal("expected error for empty body")
	}
}
