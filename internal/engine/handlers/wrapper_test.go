package handlers

import (
	"encoding/json"
	"testing"

	"ability-server/pkg/api"
)

func TestWithPayload(t *testing.T) {
	var got api.ActionPayload
	h := WithPayload(func(_ Context, p api.ActionPayload) (Result, error) {
		got = p
		return Result{Msg: "ok"}, nil
	})

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"Valid payload", `{"name":"Sprint"}`, false},
		{"Broken JSON", `{"name":`, true},
		{"Fails validation", `{"name":"  "}`, true},
		{"Empty payload fails validation", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h(Context{}, json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (res.Msg != "ok" || got.Name != "Sprint") {
				t.Errorf("handler not called with payload, got %+v", got)
			}
		})
	}
}

func TestWithPayload_EmptyAllowedWithoutValidator(t *testing.T) {
	called := false
	h := WithPayload(func(_ Context, p api.SavePayload) (Result, error) {
		called = p.Slot == ""
		return EmptyResult(), nil
	})
	if _, err := h(Context{}, nil); err != nil {
		t.Fatalf("err = %v", err)
	}
	if !called {
		t.Error("Handler should get a zero payload")
	}
}
