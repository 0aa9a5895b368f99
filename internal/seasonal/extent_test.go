package seasonal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seasonalcli/internal/errors"
)

func TestDetectExtent(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    DateExtent
		errType apperrors.ErrorType
	}{
		{
			name: "single year",
			records: []Record{
				{"date": "2021-06"},
				{"date": "2021-01"},
			},
			want: DateExtent{StartYear: 2021, EndYear: 2021, StartMonth: 1},
		},
		{
			name: "start month taken from first year only",
			records: []Record{
				{"date": "2021-01"},
				{"date": "2020-07"},
				{"date": "2020-09"},
				{"date": "2022-02"},
			},
			want: DateExtent{StartYear: 2020, EndYear: 2022, StartMonth: 7},
		},
		{
			name:    "unpadded month",
			records: []Record{{"date": "2019-3"}},
			want:    DateExtent{StartYear: 2019, EndYear: 2019, StartMonth: 3},
		},
		{
			name:    "start month out of range",
			records: []Record{{"date": "2020-13"}, {"date": "2021-01"}},
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "zero month",
			records: []Record{{"date": "2020-00"}},
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "later month out of range",
			records: []Record{{"date": "2020-01"}, {"date": "2021-14"}},
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "three digit year",
			records: []Record{{"date": "999-01"}, {"date": "2020-01"}},
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "five digit year",
			records: []Record{{"date": "20201-01"}},
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "no month",
			records: []Record{{"date": "2020"}},
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "not a date",
			records: []Record{{"date": "March"}},
			errType: apperrors.ErrTypeExtent,
		},
		{
			name:    "missing date field",
			records: []Record{{"sales": 1}},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "non string date",
			records: []Record{{"date": 202001}},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "no records",
			errType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectExtent(tt.records, "date")
			if tt.errType != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errType, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.StartYear, got.EndYear)
		})
	}
}

func TestDateExtent_Labels(t *testing.T) {
	ext := DateExtent{StartYear: 2021, EndYear: 2022, StartMonth: 1}

	assert.Equal(t, "2021.1", ext.StartLabel())
	assert.Equal(t, "2021-01..2022", ext.String())
}
