package linear

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

const epsilon = 1e-9

func TestLinearRegression_Fit(t *testing.T) {
	tests := []struct {
		name    string
		X       *mat.Dense
		y       *mat.VecDense
		wantErr bool
	}{
		{
			name: "simple linear relationship y = 2x + 1",
			X:    mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5}),
			y:    mat.NewVecDense(5, []float64{3, 5, 7, 9, 11}),
		},
		{
			name: "multiple features",
			X: mat.NewDense(5, 2, []float64{
				1.0, 2.0,
				2.0, 1.0,
				3.0, 4.0,
				4.0, 3.0,
				5.0, 5.0,
			}),
			y: mat.NewVecDense(5, []float64{5, 4, 11, 10, 15}),
		},
		{
			name:    "empty data",
			X:       &mat.Dense{},
			y:       &mat.VecDense{},
			wantErr: true,
		},
		{
			name:    "mismatched dimensions",
			X:       mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
			y:       mat.NewVecDense(2, []float64{1.0, 2.0}),
			wantErr: true,
		},
		{
			name:    "fewer samples than coefficients",
			X:       mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			y:       mat.NewVecDense(2, []float64{1.0, 2.0}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			err := lr.Fit(tt.X, tt.y)

			if (err != nil) != tt.wantErr {
				t.Errorf("LinearRegression.Fit() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr && !lr.IsFitted() {
				t.Error("LinearRegression should be fitted after successful Fit()")
			}
		})
	}
}

func TestLinearRegression_Coefficients(t *testing.T) {
	// y = 1 + 1*x1 + 2*x2
	X := mat.NewDense(6, 2, []float64{
		1, 1,
		2, 1,
		1, 2,
		2, 2,
		3, 5,
		0, 4,
	})
	y := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		y.SetVec(i, 1+X.At(i, 0)+2*X.At(i, 1))
	}

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	w := lr.Coefficients()
	if math.Abs(w[0]-1) > 1e-8 || math.Abs(w[1]-2) > 1e-8 {
		t.Errorf("weights = %v, want [1 2]", w)
	}
	if math.Abs(lr.Intercept-1) > 1e-8 {
		t.Errorf("intercept = %v, want 1", lr.Intercept)
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(score-1) > epsilon {
		t.Errorf("R2 = %v, want 1", score)
	}
}

func TestLinearRegression_Predict(t *testing.T) {
	lr := NewLinearRegression()

	XTrain := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	yTrain := mat.NewVecDense(5, []float64{3, 5, 7, 9, 11})

	if err := lr.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	tests := []struct {
		name    string
		X       *mat.Dense
		wantY   []float64
		wantErr bool
	}{
		{
			name:  "single prediction",
			X:     mat.NewDense(1, 1, []float64{6.0}),
			wantY: []float64{13.0},
		},
		{
			name:  "multiple predictions",
			X:     mat.NewDense(3, 1, []float64{0.0, -1.0, 10.0}),
			wantY: []float64{1.0, -1.0, 21.0},
		},
		{
			name:    "wrong number of features",
			X:       mat.NewDense(1, 2, []float64{1.0, 2.0}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := lr.Predict(tt.X)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Predict() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for i, want := range tt.wantY {
				if got := pred.AtVec(i); math.Abs(got-want) > 1e-8 {
					t.Errorf("prediction[%d] = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestLinearRegression_PredictNotFitted(t *testing.T) {
	lr := NewLinearRegression()
	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))

	var notFitted *cmlErrors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestLinearRegression_RankDeficientDesign(t *testing.T) {
	tests := []struct {
		name        string
		X           *mat.Dense
		wantWeights []float64
	}{
		{
			// min-norm splits the slope evenly across identical columns
			name: "duplicated column",
			X: mat.NewDense(4, 2, []float64{
				1, 1,
				2, 2,
				3, 3,
				4, 4,
			}),
			wantWeights: []float64{1, 1},
		},
		{
			name: "constant column",
			X: mat.NewDense(4, 2, []float64{
				1, 5,
				2, 5,
				3, 5,
				4, 5,
			}),
			wantWeights: []float64{2, 0},
		},
		{
			name: "zero column",
			X: mat.NewDense(4, 2, []float64{
				1, 0,
				2, 0,
				3, 0,
				4, 0,
			}),
			wantWeights: []float64{2, 0},
		},
	}

	// y = 2x + 1 on the first column
	y := mat.NewVecDense(4, []float64{3, 5, 7, 9})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			if err := lr.Fit(tt.X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}

			w := lr.Coefficients()
			for j, want := range tt.wantWeights {
				if math.Abs(w[j]-want) > 1e-8 {
					t.Errorf("weights = %v, want %v", w, tt.wantWeights)
					break
				}
			}

			pred, err := lr.Predict(tt.X)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			for i := 0; i < y.Len(); i++ {
				if math.Abs(pred.AtVec(i)-y.AtVec(i)) > 1e-8 {
					t.Errorf("prediction[%d] = %v, want %v", i, pred.AtVec(i), y.AtVec(i))
				}
			}
		})
	}
}

func TestLinearRegression_ProportionalColumns(t *testing.T) {
	// third column is twice the first
	X := mat.NewDense(6, 3, []float64{
		1, 4, 2,
		2, 1, 4,
		3, 5, 6,
		4, 2, 8,
		5, 7, 10,
		6, 3, 12,
	})
	y := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		y.SetVec(i, 3+X.At(i, 0)+0.5*X.At(i, 1))
	}

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(score-1) > 1e-9 {
		t.Errorf("R2 = %v, want 1", score)
	}

	// minimum norm: w0 + 2*w2 = 1 with w2 = 2*w0
	w := lr.Coefficients()
	if math.Abs(w[0]-0.2) > 1e-8 || math.Abs(w[2]-0.4) > 1e-8 || math.Abs(w[1]-0.5) > 1e-8 {
		t.Errorf("weights = %v, want [0.2 0.5 0.4]", w)
	}
}
