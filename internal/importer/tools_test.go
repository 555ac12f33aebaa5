package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCSVDelimiter(t *testing.T) {
	assert.Equal(t, ';', DetectCSVDelimiter([]byte("name;dia;rpm\nT1;3.175;24000\n")))
	assert.Equal(t, ',', DetectCSVDelimiter([]byte("name,dia,rpm\nT1,3.175,24000\n")))
	assert.Equal(t, '\t', DetectCSVDelimiter([]byte("name\tdia\trpm\nT1\t3.175\t24000\n")))
}

func TestImportToolsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.csv")
	content := "Name;Diameter;Flutes;Feed;Plunge;RPM\n" +
		"V-bit 30;0.1;1;150;50;60000\n" +
		"End mill;3.175;2;600;200;24000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	result := ImportToolsCSV(path)
	require.Empty(t, result.Errors)
	require.Len(t, result.Tools, 2)

	vbit := result.Tools[0]
	assert.Equal(t, "V-bit 30", vbit.Name)
	assert.InDelta(t, 0.1, vbit.Tool.Diameter, 1e-9)
	assert.Equal(t, 1, vbit.Flutes)
	assert.InDelta(t, 150.0, vbit.FeedRate, 1e-9)
	assert.Equal(t, 60000, vbit.SpindleSpeed)

	mill := result.Tools[1]
	assert.InDelta(t, 3.175, mill.Tool.Diameter, 1e-9)
}

func TestImportToolsCSV_SkipsBadRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.csv")
	content := "tool,size\nGood,2.0\nBad,not-a-number\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	result := ImportToolsCSV(path)
	require.Len(t, result.Tools, 1)
	assert.Len(t, result.Warnings, 1)
}

func TestImportToolsCSV_MissingDiameterColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,feed\nT1,300\n"), 0644))

	result := ImportToolsCSV(path)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Tools)
}

func TestImportToolsCSV_DecimalComma(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.csv")
	require.NoError(t, os.WriteFile(path, []byte("name;dia\nT1;3,175\n"), 0644))

	result := ImportToolsCSV(path)
	require.Len(t, result.Tools, 1)
	assert.InDelta(t, 3.175, result.Tools[0].Tool.Diameter, 1e-9)
}
