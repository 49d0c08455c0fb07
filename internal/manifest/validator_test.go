package manifest

import (
	"strings"
	"testing"
)

func TestValidateFile_ValidManifests(t *testing.T) {
	for _, file := range []string{"valid-deal-tab.yaml", "valid-custom-files.yaml"} {
		t.Run(file, func(t *testing.T) {
			result, err := ValidateFile(testPath(file))
			if err != nil {
				t.Fatalf("ValidateFile(%s) error: %v", file, err)
			}
			if !result.Valid {
				t.Errorf("expected valid, got invalid with %d issues:", len(result.Issues))
				for _, issue := range result.Issues {
					t.Errorf("  path=%s keyword=%s message=%s", issue.Path, issue.Keyword, issue.Message)
				}
			}
		})
	}
}

func TestValidateFile_InvalidManifests(t *testing.T) {
	invalidFiles := []struct {
		file    string
		keyword string
	}{
		{"invalid-missing-name.yaml", "required"},
		{"invalid-bad-placement-code.yaml", "pattern"},
		{"invalid-missing-title.yaml", "required"},
		{"invalid-no-placements.yaml", "minItems"},
		{"invalid-duplicate-placement.yaml", "unique"},
		{"invalid-bad-version.yaml", "semver"},
		{"invalid-same-files.yaml", "distinct"},
		{"invalid-widget-contains-entry.yaml", "distinct"},
	}

	for _, tt := range invalidFiles {
		t.Run(tt.file, func(t *testing.T) {
			result, err := ValidateFile(testPath(tt.file))
			if err != nil {
				t.Fatalf("ValidateFile(%s) unexpected error: %v", tt.file, err)
			}
			if result.Valid {
				t.Fatalf("expected invalid for %s, but got valid", tt.file)
			}
			found := false
			for _, issue := range result.Issues {
				if issue.Keyword == tt.keyword {
					found = true
				}
			}
			if !found {
				t.Errorf("no issue with keyword %q in %+v", tt.keyword, result.Issues)
			}
		})
	}
}

func TestValidate_DuplicatePath(t *testing.T) {
	result, err := ValidateFile(testPath("invalid-duplicate-placement.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Issues = %+v, want exactly one", result.Issues)
	}
	if result.Issues[0].Path != "/placements/1/placement" {
		t.Errorf("Path = %q, want /placements/1/placement", result.Issues[0].Path)
	}
}

func TestValidateFile_InvalidYAML(t *testing.T) {
	_, err := ValidateFile(testPath("invalid-not-yaml.yaml"))
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestValidate_BadConstraint(t *testing.T) {
	data := []byte(`name: x
version: "1.0.0"
requires: "not a constraint!!"
placements:
  - placement: CRM_DEAL_DETAIL_TAB
    title: T
`)
	result, err := Validate(data)
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Fatal("expected invalid for bad constraint")
	}
	if result.Issues[0].Keyword != "constraint" {
		t.Errorf("Keyword = %q, want constraint", result.Issues[0].Keyword)
	}
}

func TestCheckCompatibility(t *testing.T) {
	m := &Manifest{Name: "report", Requires: ">= 0.3.0, < 2.0.0"}

	tests := []struct {
		version string
		wantErr bool
	}{
		{"0.3.0", false},
		{"v1.4.2", false},
		{"0.2.9", true},
		{"2.0.0", true},
		{"dev", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckCompatibility(m, tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckCompatibility(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "requires placekit") {
				t.Errorf("error %q lacks context", err)
			}
		})
	}

	if err := CheckCompatibility(&Manifest{}, "0.0.1"); err != nil {
		t.Errorf("no constraint should pass, got %v", err)
	}
}
