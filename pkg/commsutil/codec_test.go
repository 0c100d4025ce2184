package commsutil

import (
	"testing"
)

const codecTestPrefix = "commsutil:codec_test"

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{
			name:  "map",
			input: map[string]int{"client_id": 42},
			want:  `{"client_id":42}`,
		},
		{
			name: "tagged struct keeps field order",
			input: struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}{Success: false, Error: "error params"},
			want: `{"success":false,"error":"error params"}`,
		},
		{
			name:  "nil",
			input: nil,
			want:  "null",
		},
		{
			name:  "slice",
			input: []int{1, 2, 3},
			want:  "[1,2,3]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
			}
			if got := string(data); got != tt.want {
				t.Errorf("%s - EncodePayload() = %q, want %q", codecTestPrefix, got, tt.want)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	var out struct {
		Func   string `json:"func"`
		Params struct {
			ClientID int `json:"client_id"`
		} `json:"params"`
	}
	if err := DecodePayload([]byte(`{"func":"Logoff","params":{"client_id":42}}`), &out); err != nil {
		t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
	}
	if out.Func != "Logoff" || out.Params.ClientID != 42 {
		t.Errorf("%s - decoded = %+v", codecTestPrefix, out)
	}

	for _, bad := range []string{`{invalid}`, ``} {
		var m map[string]interface{}
		if err := DecodePayload([]byte(bad), &m); err == nil {
			t.Errorf("%s - expected error decoding %q", codecTestPrefix, bad)
		}
	}
}

func TestValidPayload(t *testing.T) {
	tests := []struct {
		data string
		want bool
	}{
		{`{"success":true}`, true},
		{`[1,2]`, true},
		{`"text"`, true},
		{`{"func":`, false},
		{`{} trailing`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := ValidPayload([]byte(tt.data)); got != tt.want {
			t.Errorf("%s - ValidPayload(%q) = %v, want %v", codecTestPrefix, tt.data, got, tt.want)
		}
	}
}
