package dataprocessing

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/seasonal"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"data/sales.csv", FormatCSV, false},
		{"SALES.JSON", FormatJSON, false},
		{"book.xlsx", FormatXLSX, false},
		{"book.xlsm", FormatXLSX, false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	input := "\xEF\xBB\xBFdate,sales,region\n" +
		"2020-01, 10,north\n" +
		"2020-02,20\n" +
		",,\n" +
		"2020-03,,south\n"

	ds, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "sales", "region"}, ds.Columns)
	require.Len(t, ds.Records, 3)
	assert.Equal(t, seasonal.Record{"date": "2020-01", "sales": "10", "region": "north"}, ds.Records[0])
	assert.Equal(t, seasonal.Record{"date": "2020-02", "sales": "20"}, ds.Records[1])
	assert.Equal(t, "", ds.Records[2]["sales"])
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"empty header cell", "date,,sales\n2020-01,1,2\n"},
		{"duplicate header", "date,sales,sales\n"},
		{"bad quoting", "date,sales\n\"2020-01,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
		})
	}
}

func TestLoadJSON(t *testing.T) {
	input := `[
		{"date": "2020-01", "sales": 10.5, "meta": {"source": "pos"}},
		{"sales": 20, "date": "2020-02", "units": null}
	]`

	ds, err := LoadJSON(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "sales", "meta", "units"}, ds.Columns)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, json.Number("10.5"), ds.Records[0]["sales"])
	assert.Equal(t, "2020-02", ds.Records[1]["date"])
	assert.Nil(t, ds.Records[1]["units"])
	assert.Equal(t, "10.5", seasonal.FormatValue(ds.Records[0]["sales"]))
}

func TestLoadJSON_Errors(t *testing.T) {
	for _, input := range []string{
		``,
		`{"date": "2020-01"}`,
		`[1, 2]`,
		`[{"date": "2020-01"}`,
		`[{"date": }]`,
	} {
		_, err := LoadJSON(strings.NewReader(input))
		require.Error(t, err, input)
		assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err), input)
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"date", "sales"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2020-01", "10"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"2020-02", "20.25"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ds, err := LoadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "sales"}, ds.Columns)
	assert.Equal(t, []seasonal.Record{
		{"date": "2020-01", "sales": "10"},
		{"date": "2020-02", "sales": "20.25"},
	}, ds.Records)
}

func TestLoadXLSX_NotAWorkbook(t *testing.T) {
	_, err := LoadXLSX(strings.NewReader("date,sales\n"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeParsing, apperrors.TypeOf(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,sales\n2021-01,10\n2021-06,20\n"), 0644))

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, ds.Records, 2)

	_, err = LoadFile(filepath.Join(dir, "absent.csv"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))

	_, err = LoadFile(filepath.Join(dir, "sales.txt"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
}
