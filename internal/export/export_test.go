package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vlink/internal/models"
)

func sampleLinks() []models.Link {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accessed := created.Add(2 * time.Hour)
	return []models.Link{
		{ID: 1, Code: "aZ09bY", Destination: "https://example.com/a", VisitCount: 3, QRDownloads: 1, CreatedAt: created, LastAccessedAt: &accessed},
		{ID: 2, Code: "promo", Destination: "https://example.com/b", IsCustom: true, CreatedAt: created},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", JSON, false},
		{"XLSX", XLSX, false},
		{" json ", JSON, false},
		{"csv", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, sampleLinks()))
	assert.Contains(t, buf.String(), `"destination": "https://example.com/a"`)
	assert.NotContains(t, buf.String(), "destinationHash")

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "aZ09bY", got[0].Code)
	assert.Equal(t, int64(3), got[0].VisitCount)
	require.NotNil(t, got[0].LastAccessedAt)
	assert.True(t, got[1].IsCustom)
	assert.Nil(t, got[1].LastAccessedAt)
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReadJSONInvalid(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"code":`))
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, sampleLinks()))

	xl, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "aZ09bY", rows[1][1])
	assert.Equal(t, "https://example.com/a", rows[1][2])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "2026-03-01T14:00:00Z", rows[1][7])
	assert.Equal(t, "promo", rows[2][1])
	assert.Equal(t, "TRUE", strings.ToUpper(rows[2][3]))
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, Format("csv"), nil), ErrUnknownFormat)
}
