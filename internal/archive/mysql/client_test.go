package mysql

import "testing"

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "adds parseTime", input: "mysql://u:p@tcp(localhost:3306)/runs", expected: "u:p@tcp(localhost:3306)/runs?parseTime=true"},
		{name: "appends to query", input: "mysql://u:p@tcp(db:3306)/runs?charset=utf8mb4", expected: "u:p@tcp(db:3306)/runs?charset=utf8mb4&parseTime=true"},
		{name: "keeps explicit parseTime", input: "mysql://u:p@tcp(db:3306)/runs?parseTime=True", expected: "u:p@tcp(db:3306)/runs?parseTime=True"},
		{name: "wrong scheme", input: "sqlite://runs.db", wantErr: true},
		{name: "empty", input: "mysql://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDSN(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result != tt.expected {
				t.Errorf("parseDSN(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
