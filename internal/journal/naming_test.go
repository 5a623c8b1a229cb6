package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/harvest-cli/internal/model"
)

func TestParseRule(t *testing.T) {
	_, err := ParseRule("{category}_auto_{timestamp}{ext}")
	require.NoError(t, err)

	_, err = ParseRule("hco_info_auto_{category}_{timestamp}.csv")
	require.NoError(t, err)

	_, err = ParseRule("{region}_{timestamp}{ext}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{region}")

	_, err = ParseRule("  ")
	require.Error(t, err)
}

func TestRule_RenderDeterministic(t *testing.T) {
	r := MustRule("{category}_auto_{timestamp}{ext}")
	v := Vars{Item: model.WorkItem{ID: "h1", Label: "상급종합병원"}, Timestamp: "20250309_1405", Ext: ".xlsx"}

	first := r.Render(v)
	assert.Equal(t, "상급종합병원_auto_20250309_1405.xlsx", first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Render(v))
	}
}

func TestRule_RenderAliasesAndSanitizes(t *testing.T) {
	v := Vars{Item: model.WorkItem{ID: "dept/07", Label: "이비인후과/두경부"}, Timestamp: "20250309_1405", Ext: ".xls"}

	assert.Equal(t, "clinic_이비인후과_두경부_auto_20250309_1405.xls",
		MustRule("clinic_{dept}_auto_{timestamp}{ext}").Render(v))
	assert.Equal(t, "dept_07.xls", MustRule("{id}{ext}").Render(v))
	assert.Equal(t, "Dental Clinic-x", MustRule("{label}-x").Render(Vars{Item: model.WorkItem{Label: " Dental Clinic "}}))
	assert.Equal(t, "dental-clinic.csv", MustRule("{slug}.csv").Render(Vars{Item: model.WorkItem{Label: "Dental Clinic"}}))
}

func TestNamer_Collisions(t *testing.T) {
	dir := t.TempDir()
	n := NewNamer(MustRule("{label}_{timestamp}{ext}"), dir)

	a := Vars{Item: model.WorkItem{ID: "1", Label: "병원"}, Timestamp: "t", Ext: ".xlsx"}
	path, err := n.Reserve(a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "병원_t.xlsx"), path)

	dup := Vars{Item: model.WorkItem{ID: "2", Label: "병원"}, Timestamp: "t", Ext: ".xlsx"}
	_, err = n.Reserve(dup)
	require.ErrorIs(t, err, ErrNameCollision)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "의원_t.xlsx"), nil, 0o644))
	_, err = n.Reserve(Vars{Item: model.WorkItem{ID: "3", Label: "의원"}, Timestamp: "t", Ext: ".xlsx"})
	require.ErrorIs(t, err, ErrNameCollision)
	assert.Contains(t, err.Error(), "already exists")
}
