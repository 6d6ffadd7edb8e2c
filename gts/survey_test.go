package gts

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersectionTable(t *testing.T) {
	rows, err := Intersections("")
	require.NoError(t, err)
	assert.Equal(t, 15, len(rows))
	// Every borehole crosses every zone exactly once in the built-in table
	{
		for _, bh := range []string{"INJ1", "INJ2", "PRP1"} {
			for _, sz := range ZoneNames() {
				pt, err := IntersectionPoint(rows, bh, sz)
				require.NoError(t, err)
				assert.False(t, math.IsNaN(pt[0]))
			}
		}
	}
	// The injection point used by the stimulation runs
	{
		pt, err := IntersectionPoint(rows, "INJ1", "S1_2")
		require.NoError(t, err)
		assert.Equal(t, [3]float64{31.5, 96.2, 33.4}, pt)
	}
	// Missing and duplicated pairs are typed errors naming the pair
	{
		_, err := IntersectionPoint(rows, "INJ1", "S9_9")
		assert.True(t, errors.Is(err, ErrNoIntersection))
		assert.Contains(t, err.Error(), "S9_9")

		dup := append(rows, Intersection{"INJ1", "S1_2", 0, 0, 0})
		_, err = IntersectionPoint(dup, "INJ1", "S1_2")
		assert.True(t, errors.Is(err, ErrAmbiguousIntersection))
	}
}

func TestIntersectionCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intersections.csv")
	data := "borehole,shearzone,x_sz,y_sz,z_sz\nINJ1,S1_2,31.5,96.2,33.4\nINJ2,S1_2,28.3,93.8,30.6\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	rows, err := Intersections(path)
	require.NoError(t, err)
	assert.Equal(t, 2, len(rows))
	assert.Equal(t, Intersection{"INJ1", "S1_2", 31.5, 96.2, 33.4}, rows[0])

	// A table without the expected header is rejected
	{
		bad := filepath.Join(dir, "bad.csv")
		require.NoError(t, os.WriteFile(bad, []byte("a,b,c\n"), 0644))
		_, err = Intersections(bad)
		assert.Error(t, err)
	}
}

func TestZones(t *testing.T) {
	zones, err := Zones([]string{"S1_2", "S3_1"})
	require.NoError(t, err)
	require.Equal(t, 2, len(zones))
	assert.Equal(t, "S1_2", zones[0].Name)
	assert.Equal(t, "S3_1", zones[1].Name)

	_, err = Zones([]string{"S1_2", "nope"})
	assert.True(t, errors.Is(err, ErrUnknownShearzone))

	// Polygon vertices lie on the zone plane at the requested radius
	{
		z := zones[0]
		n := z.Normal()
		for _, v := range z.Polygon(8) {
			var dist, r2 float64
			for k := 0; k < 3; k++ {
				d := v[k] - z.Centroid[k]
				dist += d * n[k]
				r2 += d * d
			}
			assert.InDelta(t, 0.0, dist, 1.e-10)
			assert.InDelta(t, z.Extent, math.Sqrt(r2), 1.e-10)
		}
	}
}
