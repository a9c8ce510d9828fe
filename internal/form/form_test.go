package form

import (
	"net/http/httptest"
	"strings"
	"testing"
)

type sampleRequest struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"required,email"`
	Kind  string `json:"kind" validate:"omitempty,oneof=style school category"`
}

func TestDecodeValid(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(
		`{"name":"ana","email":"ana@example.com","kind":"style"}`))
	var dst sampleRequest
	if err := Decode(r, &dst); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dst.Name != "ana" || dst.Kind != "style" {
		t.Errorf("decoded %+v", dst)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	var dst sampleRequest
	err := Decode(r, &dst)
	if err == nil || err.Error() != "invalid request body" {
		t.Fatalf("err = %v, want generic body error", err)
	}
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name string
		in   sampleRequest
		want string
	}{
		{"missing name", sampleRequest{Email: "a@b.co"}, "name is required"},
		{"bad email", sampleRequest{Name: "ana", Email: "nope"}, "email must be a valid email address"},
		{"long name", sampleRequest{Name: "averyverylongname", Email: "a@b.co"}, "name must be at most 10 characters"},
		{"bad kind", sampleRequest{Name: "ana", Email: "a@b.co", Kind: "other"}, "kind must be one of: style school category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
