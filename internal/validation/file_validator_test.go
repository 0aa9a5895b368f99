package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seasonalcli/internal/errors"
)

func TestFileValidator_ValidateInputFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErrType   apperrors.ErrorType
		errorContains string
	}{
		{
			name: "csv file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "sales.csv")
				require.NoError(t, os.WriteFile(path, []byte("date,sales\n"), 0644))
				return path
			},
		},
		{
			name: "upper case xlsx extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "SALES.XLSX")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
		},
		{
			name: "non-existent file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.json")
			},
			wantErrType:   apperrors.ErrTypeValidation,
			errorContains: "does not exist",
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "sales.txt")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			wantErrType:   apperrors.ErrTypeValidation,
			errorContains: "unsupported file type",
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$sales.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			wantErrType:   apperrors.ErrTypeValidation,
			errorContains: "temporary Excel file",
		},
		{
			name: "directory with a valid extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "data.csv")
				require.NoError(t, os.Mkdir(path, 0755))
				return path
			},
			wantErrType:   apperrors.ErrTypeValidation,
			errorContains: "is a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFileValidator(nil)

			err := v.ValidateInputFile(tt.setupFunc(t))

			if tt.wantErrType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantErrType))
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	v := NewFileValidator(nil)

	t.Run("creates missing parent directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		require.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "adjusted.xlsx")))
		assert.DirExists(t, dir)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "write probe should be removed")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		err := v.ValidateOutputFile(filepath.Join(t.TempDir(), "adjusted.xlsm"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("existing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		require.NoError(t, os.Mkdir(path, 0755))
		err := v.ValidateOutputFile(path)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("parent is a file", func(t *testing.T) {
		parent := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(parent, []byte("x"), 0644))
		err := v.ValidateOutputFile(filepath.Join(parent, "out.csv"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
	})
}

func TestFileValidator_ValidateSpecFile(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "mine.spc")
	require.NoError(t, os.WriteFile(spec, []byte("series{}"), 0644))
	v := NewFileValidator(nil)

	tests := []struct {
		name    string
		base    string
		wantErr bool
	}{
		{name: "base without extension", base: filepath.Join(dir, "mine")},
		{name: "full path with extension", base: spec},
		{name: "missing", base: filepath.Join(dir, "other"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSpecFile(tt.base)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
				assert.Contains(t, err.Error(), "other.spc")
				return
			}
			assert.NoError(t, err)
		})
	}
}
