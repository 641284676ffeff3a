package report

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteImportancePNG(t *testing.T) {
	bars := []Bar{
		{"vehicle_monthly_distance_km", 0.4},
		{"frequency_of_traveling_by_air", 0.3},
		{"diet", 0.2},
		{"sex", 0.1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteImportancePNG(&buf, bars, DefaultTop))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Positive(t, img.Bounds().Dy())
}

func TestImportanceChartTop(t *testing.T) {
	bars := make([]Bar, 15)
	for i := range bars {
		bars[i] = Bar{Label: string(rune('a' + i)), Value: float64(15 - i)}
	}
	p, err := ImportanceChart(bars, DefaultTop)
	require.NoError(t, err)
	assert.Equal(t, "Top Feature Importances", p.Title.Text)

	_, err = ImportanceChart(nil, DefaultTop)
	assert.Error(t, err)
}
