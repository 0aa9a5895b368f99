package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "seasonalcli/internal/errors"
)

// Accepted file extensions by role
var (
	InputExtensions  = []string{".csv", ".json", ".xlsx", ".xlsm"}
	OutputExtensions = []string{".csv", ".json", ".xlsx"}
)

// specExtension is appended to a specification base name by x13ashtml
const specExtension = ".spc"

// FileValidator checks the files a command line run reads and writes
// before any work starts.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewValidationError(fmt.Sprintf("file %s does not exist", path))
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateInputFile checks an input record file exists and has a supported type
func (v *FileValidator) ValidateInputFile(path string) error {
	if err := checkExtension(path, InputExtensions); err != nil {
		v.logger.Error("Unsupported input file",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return err
	}

	// Excel lock files share the workbook's extension
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Refusing temporary Excel file",
			slog.String("file", path))
		return apperrors.NewValidationError(fmt.Sprintf("file %s is a temporary Excel file", path))
	}

	return v.ValidateFile(path)
}

// ValidateOutputFile checks an output file has a supported type and that
// its directory exists or can be created.
func (v *FileValidator) ValidateOutputFile(path string) error {
	if err := checkExtension(path, OutputExtensions); err != nil {
		v.logger.Error("Unsupported output file",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return err
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	return v.ValidateOutputDirectory(filepath.Dir(path))
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	// Verify it's writable by creating a probe file
	file, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	name := file.Name()
	file.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateSpecFile checks a caller-managed specification exists. base is
// the path handed to x13ashtml, with or without the .spc extension.
func (v *FileValidator) ValidateSpecFile(base string) error {
	candidates := []string{base}
	if !strings.EqualFold(filepath.Ext(base), specExtension) {
		candidates = append([]string{base + specExtension}, candidates...)
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return v.ValidateFile(path)
		}
	}

	v.logger.Error("Specification file does not exist",
		slog.String("base", base))
	return apperrors.NewValidationError(fmt.Sprintf("specification %s does not exist", candidates[0]))
}

func checkExtension(path string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return apperrors.NewValidationError(fmt.Sprintf("unsupported file type %q for %s (want one of %s)",
		ext, path, strings.Join(allowed, ", ")))
}
