package seasonal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seasonalcli/internal/errors"
)

// stubInvoker writes canned tables next to the specification, the way the
// binary would, and records every call.
type stubInvoker struct {
	mu     sync.Mutex
	calls  []string
	tables map[string]string // "<field>.<table>" -> rows after the header
	err    error
}

func (s *stubInvoker) Run(_ context.Context, specBase string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, specBase)
	if s.err != nil {
		return s.err
	}

	field := strings.TrimPrefix(filepath.Base(specBase), "seasonal_")
	for key, rows := range s.tables {
		f, table, _ := strings.Cut(key, ".")
		if f != field {
			continue
		}
		content := fmt.Sprintf("date\t%s\n------\t-----------------------\n%s", ValueColumn(field, table), rows)
		if err := os.WriteFile(TablePath(filepath.Dir(specBase), field, table), []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func newTestAdjuster(t *testing.T, inv Invoker) (*Adjuster, string) {
	t.Helper()
	root := t.TempDir()
	return NewAdjuster(inv, nil, &AdjusterOptions{WorkRoot: root, MaxRecords: 100}), root
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "work root should be empty")
}

func TestAdjust_Scenario(t *testing.T) {
	inv := &stubInvoker{tables: map[string]string{
		"sales.d11": "202101\t12.34\n202106\t23.45\n",
	}}
	adj, _ := newTestAdjuster(t, inv)
	outDir := t.TempDir()

	records := []Record{
		{"date": "2021-01", "sales": 10},
		{"date": "2021-06", "sales": 20},
	}
	out, err := adj.Adjust(context.Background(), records, Options{
		DateField:   "date",
		ValueFields: []string{"sales"},
		TableIDs:    []string{"d11"},
		OutputDir:   outDir,
	})
	require.NoError(t, err)

	spec, err := os.ReadFile(SpecPath(outDir, "sales"))
	require.NoError(t, err)
	assert.Contains(t, string(spec), "start = 2021.1\n")
	lines := dataLines(t, string(spec))
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"10", "", "", "", "", "20"}, strings.Split(lines[0], " "))

	require.Len(t, out, 2)
	assert.Equal(t, 12.34, out[0]["sales_d11"])
	assert.Equal(t, 23.45, out[1]["sales_d11"])
	assert.Equal(t, []string{filepath.Join(outDir, "seasonal_sales")}, inv.calls)

	// mutated in place
	assert.Equal(t, 12.34, records[0]["sales_d11"])

	// caller directory is kept
	assert.FileExists(t, TablePath(outDir, "sales", "d11"))
}

func TestAdjust_LogsKeptFiles(t *testing.T) {
	tests := []struct {
		name      string
		outputDir bool
		wantKept  bool
	}{
		{name: "caller directory", outputDir: true, wantKept: true},
		{name: "temp directory", outputDir: false, wantKept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			inv := &stubInvoker{tables: map[string]string{"sales.d11": "202101\t1.5\n"}}
			adj := NewAdjuster(inv, logger, &AdjusterOptions{WorkRoot: t.TempDir()})

			opts := Options{DateField: "date", ValueFields: []string{"sales"}, TableIDs: []string{"d11"}}
			if tt.outputDir {
				opts.OutputDir = t.TempDir()
			}
			_, err := adj.Adjust(context.Background(), []Record{{"date": "2021-01", "sales": 1}}, opts)
			require.NoError(t, err)

			logs := buf.String()
			assert.Contains(t, logs, "Wrote specification")
			assert.Contains(t, logs, "seasonal_sales.spc")
			if tt.wantKept {
				assert.Contains(t, logs, "Kept intermediate files")
				assert.Contains(t, logs, `"files":["seasonal_sales.d11","seasonal_sales.spc"]`)
			} else {
				assert.NotContains(t, logs, "Kept intermediate files")
			}
		})
	}
}

func TestAdjust_RoundTripWithUnmatchedDate(t *testing.T) {
	inv := &stubInvoker{tables: map[string]string{
		"sales.d11": "202001\t1.1\n202002\t2.22\n202003\t3.333\n",
	}}
	adj, root := newTestAdjuster(t, inv)

	records := []Record{
		{"date": "2020-01", "sales": 1},
		{"date": "2020-02", "sales": 2},
		{"date": "2020-03", "sales": 3},
		{"date": "2020-04", "sales": 4},
	}
	out, err := adj.Adjust(context.Background(), records, Options{
		DateField:   "date",
		ValueFields: []string{"sales"},
		TableIDs:    []string{"d11"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.1, out[0]["sales_d11"])
	assert.Equal(t, 2.22, out[1]["sales_d11"])
	assert.Equal(t, 3.33, out[2]["sales_d11"])
	assert.Equal(t, "", out[3]["sales_d11"])

	assertEmptyDir(t, root)
}

func TestAdjust_FieldsByTables(t *testing.T) {
	inv := &stubInvoker{tables: map[string]string{
		"sales.d11": "202001\t1\n",
		"sales.d12": "202001\t2\n",
		"units.d11": "202001\t3\n",
		"units.d12": "202001\t4\n",
	}}
	adj, _ := newTestAdjuster(t, inv)

	out, err := adj.Adjust(context.Background(), []Record{{"date": "2020-01", "sales": 5, "units": 6}}, Options{
		DateField:   "date",
		ValueFields: []string{"sales", "units"},
		TableIDs:    []string{"d11", "d12"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, out[0]["sales_d11"])
	assert.Equal(t, 2.0, out[0]["sales_d12"])
	assert.Equal(t, 3.0, out[0]["units_d11"])
	assert.Equal(t, 4.0, out[0]["units_d12"])
	assert.Len(t, inv.calls, 2, "one invocation per value field")
}

func TestAdjust_ValidationFailures(t *testing.T) {
	valid := Options{DateField: "date", ValueFields: []string{"sales"}, TableIDs: []string{"d11"}}
	records := func() []Record { return []Record{{"date": "2020-01", "sales": 1}} }

	tests := []struct {
		name    string
		records []Record
		opts    func(Options) Options
		errType apperrors.ErrorType
	}{
		{
			name:    "no records",
			records: nil,
			opts:    func(o Options) Options { return o },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "missing date field",
			records: records(),
			opts:    func(o Options) Options { o.DateField = ""; return o },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "empty value fields",
			records: records(),
			opts:    func(o Options) Options { o.ValueFields = nil; return o },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "empty table ids",
			records: records(),
			opts:    func(o Options) Options { o.TableIDs = []string{}; return o },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "path in value field",
			records: records(),
			opts:    func(o Options) Options { o.ValueFields = []string{"../sales"}; return o },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "bad table id",
			records: records(),
			opts:    func(o Options) Options { o.TableIDs = []string{"d 11"}; return o },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "too many records",
			records: make([]Record, 101),
			opts:    func(o Options) Options { return o },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "start month out of range",
			records: []Record{{"date": "2020-13", "sales": 1}},
			opts:    func(o Options) Options { return o },
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "two digit year",
			records: []Record{{"date": "20-01", "sales": 1}},
			opts:    func(o Options) Options { return o },
			errType: apperrors.ErrTypeExtent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &stubInvoker{}
			adj, root := newTestAdjuster(t, inv)
			outDir := filepath.Join(t.TempDir(), "out")

			opts := tt.opts(valid)
			opts.OutputDir = outDir

			_, err := adj.Adjust(context.Background(), tt.records, opts)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))

			assert.Empty(t, inv.calls)
			assert.NoDirExists(t, outDir, "nothing may be written before validation passes")
			assertEmptyDir(t, root)
		})
	}
}

func TestAdjust_ValidationMessageUsesJSONNames(t *testing.T) {
	adj, _ := newTestAdjuster(t, &stubInvoker{})

	_, err := adj.Adjust(context.Background(), []Record{{"date": "2020-01"}}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date_field is required")
	assert.Contains(t, err.Error(), "value_fields is required")
}

func TestAdjust_ExternalFailureCleansUp(t *testing.T) {
	inv := &stubInvoker{err: errors.New("exit status 1")}
	adj, root := newTestAdjuster(t, inv)

	records := []Record{{"date": "2020-01", "sales": 1}}
	_, err := adj.Adjust(context.Background(), records, Options{
		DateField:   "date",
		ValueFields: []string{"sales"},
		TableIDs:    []string{"d11"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeExternal, apperrors.TypeOf(err))
	assert.Len(t, inv.calls, 1, "never retried")
	assertEmptyDir(t, root)
	assert.NotContains(t, records[0], "sales_d11")
}

func TestAdjust_MissingTableLeavesRecordsUntouched(t *testing.T) {
	inv := &stubInvoker{tables: map[string]string{
		"sales.d11": "202001\t1\n",
		"units.d11": "202001\t2\n",
	}}
	adj, root := newTestAdjuster(t, inv)

	records := []Record{{"date": "2020-01", "sales": 1, "units": 2}}
	_, err := adj.Adjust(context.Background(), records, Options{
		DateField:   "date",
		ValueFields: []string{"sales", "units"},
		TableIDs:    []string{"d11", "d12"},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
	assert.NotContains(t, records[0], "sales_d11")
	assertEmptyDir(t, root)
}

func TestAdjust_CleanupFailureIsReported(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can remove read-only directories")
	}
	root := t.TempDir()
	inv := InvokerFunc(func(_ context.Context, specBase string, _ bool) error {
		dir := filepath.Dir(specBase)
		content := "date\tseasonal_sales.d11\n202001\t1\n"
		if err := os.WriteFile(TablePath(dir, "sales", "d11"), []byte(content), 0644); err != nil {
			return err
		}
		return os.Chmod(dir, 0555)
	})
	adj := NewAdjuster(inv, nil, &AdjusterOptions{WorkRoot: root})
	t.Cleanup(func() {
		entries, _ := os.ReadDir(root)
		for _, e := range entries {
			os.Chmod(filepath.Join(root, e.Name()), 0755)
		}
	})

	out, err := adj.Adjust(context.Background(), []Record{{"date": "2020-01", "sales": 1}}, Options{
		DateField:   "date",
		ValueFields: []string{"sales"},
		TableIDs:    []string{"d11"},
	})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestAdjust_ConcurrentRunsUseSeparateDirs(t *testing.T) {
	inv := &stubInvoker{tables: map[string]string{"sales.d11": "202001\t1\n"}}
	adj, root := newTestAdjuster(t, inv)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = adj.Adjust(context.Background(), []Record{{"date": "2020-01", "sales": i}}, Options{
				DateField:   "date",
				ValueFields: []string{"sales"},
				TableIDs:    []string{"d11"},
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	seen := map[string]bool{}
	for _, call := range inv.calls {
		seen[filepath.Dir(call)] = true
	}
	assert.Len(t, seen, 4)
	assertEmptyDir(t, root)
}

func TestCustom(t *testing.T) {
	inv := &stubInvoker{}
	adj, root := newTestAdjuster(t, inv)

	err := adj.Custom(context.Background(), Options{InputFilePath: "/data/specs/mine", Log: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"/data/specs/mine"}, inv.calls)
	assertEmptyDir(t, root)
}

func TestCustom_RequiresInputFilePath(t *testing.T) {
	inv := &stubInvoker{}
	adj, _ := newTestAdjuster(t, inv)

	err := adj.Custom(context.Background(), Options{DateField: "date"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
	assert.Empty(t, inv.calls)
}

func TestCustom_PlainInvokerErrorIsExternal(t *testing.T) {
	adj, _ := newTestAdjuster(t, InvokerFunc(func(context.Context, string, bool) error {
		return errors.New("boom")
	}))

	err := adj.Custom(context.Background(), Options{InputFilePath: "spec"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeExternal, apperrors.TypeOf(err))
}
