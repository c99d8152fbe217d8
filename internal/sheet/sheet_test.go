package sheet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecode_Workbook(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{" Nome ", "Estoque", "Status Venda"},
		{"Coxinha", 12, "Ativo"},
		{"Pastel", 1.5},
		{nil, nil, nil},
		{"Total Itens=2", 13, ""},
	})

	rows, err := Decode("estoque.xlsx", data)
	require.NoError(t, err)

	want := []Row{
		{"Nome": "Coxinha", "Estoque": "12", "Status Venda": "Ativo"},
		{"Nome": "Pastel", "Estoque": "1.5", "Status Venda": ""},
		{"Nome": "Total Itens=2", "Estoque": "13", "Status Venda": ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_WorkbookSniffedWithoutExtension(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{{"Nome"}, {"Esfiha"}})

	rows, err := Decode("download", data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Esfiha", rows[0]["Nome"])
}

func TestDecode_CSV(t *testing.T) {
	t.Run("semicolon export with BOM", func(t *testing.T) {
		data := []byte("\xef\xbb\xbfNome;Estoque;Status Venda\nCoxinha;3,5;ativo\n;;\nKibe;;\n")
		rows, err := Decode("export.csv", data)
		require.NoError(t, err)

		want := []Row{
			{"Nome": "Coxinha", "Estoque": "3,5", "Status Venda": "ativo"},
			{"Nome": "Kibe", "Estoque": "", "Status Venda": ""},
		}
		if diff := cmp.Diff(want, rows); diff != "" {
			t.Errorf("rows mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("comma delimited short rows", func(t *testing.T) {
		rows, err := Decode("export.csv", []byte("Nome,Estoque\nEmpada\n"))
		require.NoError(t, err)
		assert.Equal(t, []Row{{"Nome": "Empada", "Estoque": ""}}, rows)
	})

	t.Run("duplicate and empty header labels", func(t *testing.T) {
		rows, err := Decode("export.csv", []byte("Nome,,Nome\na,b,c\n"))
		require.NoError(t, err)
		assert.Equal(t, []Row{{"Nome": "a", "Nome_1": "c"}}, rows)
	})

	t.Run("empty document", func(t *testing.T) {
		rows, err := Decode("export.csv", nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestDecode_CorruptWorkbook(t *testing.T) {
	_, err := Decode("broken.xlsx", []byte("PK\x03\x04 not really a zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("a.XLSX", nil))
	assert.Equal(t, FormatCSV, DetectFormat("a.csv", []byte("PK\x03\x04")))
	assert.Equal(t, FormatXLSX, DetectFormat("blob", []byte("PK\x03\x04...")))
	assert.Equal(t, FormatCSV, DetectFormat("blob", []byte("Nome;Estoque")))
}
