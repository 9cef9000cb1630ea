package sweep

import "testing"

func TestNewRuleValidation(t *testing.T) {
	tests := []struct {
		name    string
		dirs    []string
		exts    []string
		wantErr bool
	}{
		{"dirs only", []string{"__pycache__"}, nil, false},
		{"exts only", nil, []string{".pyc"}, false},
		{"both", []string{"__pycache__"}, []string{".pyc"}, false},
		{"empty rule", nil, nil, true},
		{"blank dir name", []string{"  "}, nil, true},
		{"dir name with separator", []string{"a/b"}, nil, true},
		{"blank extension", nil, []string{""}, true},
		{"bare dot extension", nil, []string{"."}, true},
		{"extension without dot is normalized", nil, []string{"pyc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRule(tt.dirs, tt.exts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRule(%v, %v) error = %v, wantErr %v", tt.dirs, tt.exts, err, tt.wantErr)
			}
		})
	}
}

func TestMatchDir(t *testing.T) {
	rule, err := NewRule([]string{"__pycache__", "node_modules"}, nil)
	if err != nil {
		t.Fatalf("NewRule failed: %v", err)
	}

	tests := []struct {
		name     string
		dirName  string
		expected bool
	}{
		{"exact match", "__pycache__", true},
		{"second name", "node_modules", true},
		{"case-insensitive", "__PYCACHE__", true},
		{"mixed case", "Node_Modules", true},
		{"no match", "src", false},
		{"substring is not a match", "__pycache__old", false},
		{"empty name", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.MatchDir(tt.dirName); got != tt.expected {
				t.Errorf("MatchDir(%q) = %v, expected %v", tt.dirName, got, tt.expected)
			}
		})
	}
}

func TestMatchFile(t *testing.T) {
	rule, err := NewRule(nil, []string{".pyc", "tmp"})
	if err != nil {
		t.Fatalf("NewRule failed: %v", err)
	}

	tests := []struct {
		name     string
		fileName string
		expected bool
	}{
		{"exact extension", "module.pyc", true},
		{"case-insensitive extension", "MODULE.PYC", true},
		{"normalized dotless extension", "scratch.tmp", true},
		{"different extension", "keep.txt", false},
		{"no extension", "Makefile", false},
		{"extension only counts at the end", "file.pyc.bak", false},
		{"dotfile with matching suffix", ".pyc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.MatchFile(tt.fileName); got != tt.expected {
				t.Errorf("MatchFile(%q) = %v, expected %v", tt.fileName, got, tt.expected)
			}
		})
	}
}
