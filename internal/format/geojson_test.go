package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/geo-munge/internal/sphere"
)

func TestReadGeoJSONParsesPointFeatureAndBBox(t *testing.T) {
	raw := `{
		"type": "FeatureCollection",
		"bbox": [-10, -10, 10, 10],
		"features": [
			{"type": "Feature", "properties": {"name": "Alpha"},
			 "geometry": {"type": "Point", "coordinates": [1, 2]}}
		]
	}`
	path := writeTempFile(t, "ref.geojson", raw)
	ds, err := ReadGeoJSON(path)
	require.NoError(t, err)
	require.Len(t, ds.Datums, 1)
	require.NotNil(t, ds.Bounds)
	assert.InDelta(t, sphere.ToRadians(-10, -10).Lng, ds.Bounds.MinLng, 1e-12)
	assert.Equal(t, []string{"Alpha"}, ds.Datums[0].Project([]string{"name"}))
}

func TestReadGeoJSONFlattensMultiPolygonToSharedSourceIndex(t *testing.T) {
	raw := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {},
			 "geometry": {"type": "MultiPolygon", "coordinates": [
				[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
				[[[5,5],[6,5],[6,6],[5,6],[5,5]]]
			 ]}}
		]
	}`
	path := writeTempFile(t, "ref.geojson", raw)
	ds, err := ReadGeoJSON(path)
	require.NoError(t, err)
	require.Len(t, ds.Datums, 2)
	assert.Equal(t, 0, ds.Datums[0].SourceIndex())
	assert.Equal(t, 0, ds.Datums[1].SourceIndex())
}

func TestReadGeoJSONRejectsUnsupportedGeometry(t *testing.T) {
	raw := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {}, "geometry": null}
		]
	}`
	path := writeTempFile(t, "ref.geojson", raw)
	ds, err := ReadGeoJSON(path)
	require.NoError(t, err)
	assert.Empty(t, ds.Datums)
	require.Len(t, ds.Errors, 1)
}
