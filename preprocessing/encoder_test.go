package preprocessing_test

import (
	"errors"
	"reflect"
	"testing"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/preprocessing"
)

func TestLabelEncoder_Fit(t *testing.T) {
	tests := []struct {
		name        string
		data        []string
		wantClasses []string
		wantCodes   []int
	}{
		{
			name:        "lexicographic order",
			data:        []string{"vegan", "omnivore", "vegetarian", "pescatarian", "vegan"},
			wantClasses: []string{"omnivore", "pescatarian", "vegan", "vegetarian"},
			wantCodes:   []int{2, 0, 3, 1, 2},
		},
		{
			name:        "byte order puts capitals first",
			data:        []string{"Yes", "No", "Sometimes", "no"},
			wantClasses: []string{"No", "Sometimes", "Yes", "no"},
			wantCodes:   []int{2, 0, 1, 3},
		},
		{
			name:        "sentinel sorts among values",
			data:        []string{"petrol", "none", "diesel", "lpg", "electric", "hybrid"},
			wantClasses: []string{"diesel", "electric", "hybrid", "lpg", "none", "petrol"},
			wantCodes:   []int{5, 4, 0, 3, 1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := preprocessing.NewLabelEncoder("col")
			codes, err := enc.FitTransform(tt.data)
			if err != nil {
				t.Fatalf("FitTransform: %v", err)
			}
			if !reflect.DeepEqual(enc.Classes, tt.wantClasses) {
				t.Errorf("Classes = %v, want %v", enc.Classes, tt.wantClasses)
			}
			if !reflect.DeepEqual(codes, tt.wantCodes) {
				t.Errorf("codes = %v, want %v", codes, tt.wantCodes)
			}
		})
	}
}

func TestLabelEncoder_RoundTrip(t *testing.T) {
	data := []string{"walk/bicycle", "private", "public", "private"}
	enc := preprocessing.NewLabelEncoder("transport")
	if err := enc.Fit(data); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	for code := range enc.Classes {
		label, err := enc.Decode(code)
		if err != nil {
			t.Fatalf("Decode(%d): %v", code, err)
		}
		again, err := enc.Encode(label)
		if err != nil || again != code {
			t.Errorf("Encode(Decode(%d)) = %d, %v", code, again, err)
		}
	}

	decoded, err := enc.InverseTransform([]int{0, 1, 2})
	if err != nil {
		t.Fatalf("InverseTransform: %v", err)
	}
	if !reflect.DeepEqual(decoded, []string{"private", "public", "walk/bicycle"}) {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestLabelEncoder_UnknownCategory(t *testing.T) {
	enc := preprocessing.NewLabelEncoder("diet")
	if err := enc.Fit([]string{"vegan", "omnivore"}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	_, err := enc.Encode("carnivore")
	if !errors.Is(err, cmlErrors.ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}
	var uc *cmlErrors.UnknownCategoryError
	if !errors.As(err, &uc) || uc.Column != "diet" || uc.Value != "carnivore" {
		t.Errorf("unexpected error detail: %+v", uc)
	}

	if _, err := enc.Decode(2); err == nil {
		t.Error("expected out of range decode error")
	}
}

func TestLabelEncoder_FromClasses(t *testing.T) {
	enc, err := preprocessing.NewLabelEncoderFromClasses("sex", []string{"female", "male"})
	if err != nil {
		t.Fatalf("NewLabelEncoderFromClasses: %v", err)
	}
	if code, _ := enc.Encode("male"); code != 1 {
		t.Errorf("male = %d, want 1", code)
	}

	for _, bad := range [][]string{nil, {"male", "female"}, {"a", "a"}} {
		if _, err := preprocessing.NewLabelEncoderFromClasses("sex", bad); !errors.Is(err, cmlErrors.ErrSchemaViolation) {
			t.Errorf("classes %v: expected schema violation, got %v", bad, err)
		}
	}
}

func TestLabelEncoder_Errors(t *testing.T) {
	enc := preprocessing.NewLabelEncoder("x")
	if _, err := enc.Encode("a"); err == nil {
		t.Error("expected not fitted error")
	}
	if err := enc.Fit(nil); !errors.Is(err, cmlErrors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
}
