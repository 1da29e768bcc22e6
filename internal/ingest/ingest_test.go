package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/talentsignal/signal-cli/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadItems_JSON(t *testing.T) {
	path := writeFile(t, "posts.json", `[
		{
			"urn": "urn:post:1",
			"text": "Hiring two backend engineers",
			"title": "We're hiring",
			"author_name": "Dana Wells",
			"author_profile_id": "dana-wells",
			"author_profile_url": "https://example.com/in/dana-wells",
			"posted_at": "2026-08-01T12:30:00Z"
		},
		{"urn": "urn:post:2", "text": "Looking for a data scientist"}
	]`)

	items, err := ReadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "urn:post:1", items[0].URN)
	assert.Equal(t, "Hiring two backend engineers", items[0].Text)
	assert.Equal(t, "We're hiring", items[0].Title)
	assert.Equal(t, "Dana Wells", items[0].AuthorName)
	assert.Equal(t, "dana-wells", items[0].AuthorProfileID)
	require.NotNil(t, items[0].PostedAt)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC), *items[0].PostedAt)

	assert.Equal(t, "urn:post:2", items[1].URN)
	assert.Nil(t, items[1].PostedAt)
}

func TestReadItems_JSONMalformed(t *testing.T) {
	path := writeFile(t, "posts.json", `{"urn": "not-an-array"}`)
	_, err := ReadItems(path)
	assert.Error(t, err)
}

func TestReadItems_CSV(t *testing.T) {
	path := writeFile(t, "posts.csv",
		"urn,text,author_name,author_profile_id,posted_at\n"+
			"urn:post:1,Hiring SREs,Dana Wells,dana-wells,2026-08-01\n"+
			"urn:post:2,Need a PM,,,\n")

	items, err := ReadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Hiring SREs", items[0].Text)
	assert.Equal(t, "dana-wells", items[0].AuthorProfileID)
	require.NotNil(t, items[0].PostedAt)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *items[0].PostedAt)

	assert.Equal(t, "urn:post:2", items[1].URN)
	assert.Empty(t, items[1].AuthorName)
}

func TestReadItems_CSVColumnOrderIrrelevant(t *testing.T) {
	path := writeFile(t, "posts.csv",
		"text,urn\nHiring engineers,urn:post:1\n")

	items, err := ReadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "urn:post:1", items[0].URN)
	assert.Equal(t, "Hiring engineers", items[0].Text)
}

func TestReadItems_CSVMissingURNColumn(t *testing.T) {
	path := writeFile(t, "posts.csv", "text,title\nhello,world\n")
	_, err := ReadItems(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"urn"`)
}

func TestReadItems_DropsIncompleteRows(t *testing.T) {
	path := writeFile(t, "posts.json", `[
		{"urn": "urn:post:1", "text": "Hiring"},
		{"urn": "", "text": "no urn"},
		{"urn": "urn:post:3", "text": "   "}
	]`)

	items, err := ReadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "urn:post:1", items[0].URN)
}

func TestReadItems_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "posts.txt", "urn:post:1")
	_, err := ReadItems(path)
	assert.Error(t, err)
}

func TestParsePostedAt(t *testing.T) {
	assert.Nil(t, parsePostedAt(""))
	assert.Nil(t, parsePostedAt("yesterday"))
	require.NotNil(t, parsePostedAt("2026-08-01"))
	require.NotNil(t, parsePostedAt("2026-08-01T09:00:00+02:00"))
	assert.Equal(t, time.UTC, parsePostedAt("2026-08-01T09:00:00+02:00").Location())
}

func TestReadDirectory_CSV(t *testing.T) {
	path := writeFile(t, "clients.csv",
		"name,employer_id\nAcme Corp,acme-1\nGlobex,globex-9\n,orphan-id\n")

	orgs, err := ReadDirectory(path, model.OrgKindClient)
	require.NoError(t, err)
	require.Len(t, orgs, 2)

	assert.Equal(t, "Acme Corp", orgs[0].Name)
	assert.Equal(t, "acme-1", orgs[0].EmployerID)
	assert.Equal(t, model.OrgKindClient, orgs[0].Kind)
	assert.Equal(t, "Globex", orgs[1].Name)
}

func TestReadDirectory_CSVMissingNameColumn(t *testing.T) {
	path := writeFile(t, "clients.csv", "employer_id\nacme-1\n")
	_, err := ReadDirectory(path, model.OrgKindClient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"name"`)
}

func TestReadDirectory_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Vendors")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().SetString("name")
	header.AddCell().SetString("employer_id")

	row := sheet.AddRow()
	row.AddCell().SetString("Staffing Partners")
	row.AddCell().SetString("staff-7")

	path := filepath.Join(t.TempDir(), "vendors.xlsx")
	require.NoError(t, f.Save(path))

	orgs, err := ReadDirectory(path, model.OrgKindVendor)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "Staffing Partners", orgs[0].Name)
	assert.Equal(t, "staff-7", orgs[0].EmployerID)
	assert.Equal(t, model.OrgKindVendor, orgs[0].Kind)
}

func TestReadDirectory_EmptyFile(t *testing.T) {
	path := writeFile(t, "clients.csv", "")
	_, err := ReadDirectory(path, model.OrgKindClient)
	assert.Error(t, err)
}
