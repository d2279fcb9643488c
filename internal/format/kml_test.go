package format

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Placemark>
      <name>Alpha</name>
      <ExtendedData>
        <Data name="pop"><value>42</value></Data>
      </ExtendedData>
      <Point><coordinates>1,2,0</coordinates></Point>
    </Placemark>
    <Folder>
      <Placemark>
        <name>Beta</name>
        <LineString><coordinates>0,0,0 1,1,0</coordinates></LineString>
      </Placemark>
    </Folder>
  </Document>
</kml>`

func TestReadKMLParsesPlacemarksAcrossFoldersAndExtendedData(t *testing.T) {
	path := writeTempFile(t, "ref.kml", sampleKML)
	ds, err := ReadKML(path)
	require.NoError(t, err)
	require.Len(t, ds.Datums, 2)
	assert.Nil(t, ds.Bounds)

	alpha := ds.Datums[0]
	assert.Equal(t, []string{"Alpha", "42"}, alpha.Project([]string{"name", "pop"}))
}

func TestReadKMZUnwrapsFirstKMLEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ref.kmz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("doc.kml")
	require.NoError(t, err)
	_, err = w.Write([]byte(sampleKML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	ds, err := ReadKML(path)
	require.NoError(t, err)
	assert.Len(t, ds.Datums, 2)
}

func TestReadKMLRejectsPlacemarkWithNoGeometry(t *testing.T) {
	raw := `<kml><Document><Placemark><name>Empty</name></Placemark></Document></kml>`
	path := writeTempFile(t, "ref.kml", raw)
	ds, err := ReadKML(path)
	require.NoError(t, err)
	assert.Empty(t, ds.Datums)
	require.Len(t, ds.Errors, 1)
}
