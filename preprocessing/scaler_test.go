package preprocessing_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carbonml/core/model"
	"github.com/ezoic/carbonml/preprocessing"
)

const epsilon = 1e-10 // Tolerance for floating-point comparisons

func TestStandardScaler_BasicFunctionality(t *testing.T) {
	// Feature 1: [1, 2, 3] -> mean=2, std=0.816
	// Feature 2: [4, 5, 6] -> mean=5, std=0.816
	X := mat.NewDense(3, 2, []float64{
		1.0, 4.0,
		2.0, 5.0,
		3.0, 6.0,
	})

	scaler := preprocessing.NewStandardScalerDefault()
	if err := scaler.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	expectedMean := []float64{2.0, 5.0}
	expectedStd := []float64{0.816496580927726, 0.816496580927726}

	for i, expected := range expectedMean {
		if math.Abs(scaler.Mean[i]-expected) > epsilon {
			t.Errorf("Mean[%d]: expected %f, got %f", i, expected, scaler.Mean[i])
		}
	}
	for i, expected := range expectedStd {
		if math.Abs(scaler.Scale[i]-expected) > epsilon {
			t.Errorf("Scale[%d]: expected %f, got %f", i, expected, scaler.Scale[i])
		}
	}

	XScaled, err := scaler.Transform(X)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	expectedScaled := []float64{
		-1.224744871391589, -1.224744871391589,
		0.0, 0.0,
		1.224744871391589, 1.224744871391589,
	}

	r, c := XScaled.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("Expected 3x2 matrix, got %dx%d", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if actual, expected := XScaled.At(i, j), expectedScaled[i*c+j]; math.Abs(actual-expected) > epsilon {
				t.Errorf("XScaled[%d][%d]: expected %f, got %f", i, j, expected, actual)
			}
		}
	}
}

func TestStandardScaler_InverseTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		500, 150,
		0, 90,
		1200, 300,
		50, 120,
	})

	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	back, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}
	if !mat.EqualApprox(X, back, 1e-9) {
		t.Errorf("round trip mismatch:\n%v\n%v", mat.Formatted(X), mat.Formatted(back))
	}
}

func TestStandardScaler_ConstantFeature(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
	})

	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if scaler.Scale[1] != 1.0 {
		t.Errorf("constant feature scale = %v, want 1", scaler.Scale[1])
	}
	for i := 0; i < 3; i++ {
		if scaled.At(i, 1) != 0 {
			t.Errorf("constant feature row %d = %v, want 0", i, scaled.At(i, 1))
		}
	}
}

func TestStandardScaler_WithMeanFalse(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{3, 4})

	scaler := preprocessing.NewStandardScaler(false, true)
	if err := scaler.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if scaler.Mean[0] != 0 {
		t.Errorf("Mean = %v, want 0", scaler.Mean[0])
	}
	// sqrt((9+16)/2)
	if want := math.Sqrt(12.5); math.Abs(scaler.Scale[0]-want) > epsilon {
		t.Errorf("Scale = %v, want %v", scaler.Scale[0], want)
	}
}

func TestStandardScaler_ErrorCases(t *testing.T) {
	scaler := preprocessing.NewStandardScalerDefault()

	if _, err := scaler.Transform(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("expected not fitted error")
	}
	if err := scaler.Fit(&mat.Dense{}); err == nil {
		t.Error("expected empty data error")
	}

	if err := scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := scaler.Transform(mat.NewDense(1, 3, []float64{1, 2, 3})); err == nil {
		t.Error("expected dimension error")
	}
}

func TestStandardScaler_Persistence(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 6})
	scaler := preprocessing.NewStandardScalerDefault()
	if err := scaler.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	path := t.TempDir() + "/scaler.gob"
	if err := model.SaveModel(scaler, path); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	loaded := &preprocessing.StandardScaler{}
	if err := model.LoadModel(loaded, path); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	a, _ := scaler.Transform(X)
	b, err := loaded.Transform(X)
	if err != nil {
		t.Fatalf("Transform after load: %v", err)
	}
	if !mat.Equal(a, b) {
		t.Error("loaded scaler transforms differently")
	}
}
