package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/talentsignal/signal-cli/internal/model"
)

// ReadDirectory loads directory organizations from a .csv file or .xlsx
// workbook. Expected columns: name (required), employer_id. Every row is
// tagged with the given kind.
func ReadDirectory(path string, kind model.OrgKind) ([]model.DirectoryOrg, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readDirectoryCSV(path)
	case ".xlsx":
		rows, err = readDirectoryXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported directory file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("ingest: directory file is empty")
	}

	cols := headerIndex(rows[0])
	if _, ok := cols["name"]; !ok {
		return nil, eris.New(`ingest: directory file missing "name" column`)
	}

	var orgs []model.DirectoryOrg
	for _, record := range rows[1:] {
		name := field(record, cols, "name")
		if name == "" {
			continue
		}
		orgs = append(orgs, model.DirectoryOrg{
			Name:       name,
			EmployerID: field(record, cols, "employer_id"),
			Kind:       kind,
		})
	}
	return orgs, nil
}

func readDirectoryCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open directory csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read directory csv")
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readDirectoryXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open directory xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: directory xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
