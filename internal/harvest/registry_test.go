package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/harvest-cli/internal/model"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newFakeDownloads())
	reg.Register(&fakeListing{})
	reg.Register(newFakeDownloads())

	assert.Equal(t, []string{"fake", "fake_detail"}, reg.Names())
	assert.Len(t, reg.All(), 2)

	v, err := reg.Get("fake_detail")
	require.NoError(t, err)
	assert.Equal(t, "fake_detail", v.Name())

	_, err = reg.Get("pharmacy")
	assert.Contains(t, err.Error(), `unknown variant "pharmacy"`)
}

func TestFilter(t *testing.T) {
	all := []model.WorkItem{
		{ID: "1", Label: "상급종합병원"},
		{ID: "2", Label: "종합병원"},
		{ID: "3", Label: "의원"},
		{ID: "2", Label: "종합병원"},
	}

	assert.Equal(t, all[:3], Filter(all, nil, nil))
	assert.Equal(t, all[:2], Filter(all, nil, []string{"의원"}))
	assert.Equal(t, all[1:2], Filter(all, []string{" 종합병원 "}, nil))
	assert.Empty(t, Filter(all, []string{"의원"}, []string{"의원"}))
}

func TestDetailTable(t *testing.T) {
	recs := []model.EnrichedRecord{
		{EntryHandle: model.EntryHandle{Index: 1, Name: "A", Key: "JDQ4a"}, Fields: map[string]string{"x": "1"}},
		{EntryHandle: model.EntryHandle{Index: 2, Name: "B"}, Error: "no key extracted"},
	}
	tbl := DetailTable([]string{"x"}, recs)
	assert.Equal(t, []string{"index", "name", "key", "x", "enrichment_error"}, tbl.Header)
	assert.Equal(t, []string{"1", "A", "JDQ4a", "1", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"2", "B", "", "", "no key extracted"}, tbl.Rows[1])
}

func TestPartition_RecordsSkippedItems(t *testing.T) {
	all := []model.WorkItem{
		{ID: "1", Label: "상급종합병원"},
		{ID: "2", Label: "종합병원"},
		{ID: "3", Label: "의원"},
		{ID: "2", Label: "종합병원"},
	}

	kept, skipped := Partition(all, []string{"상급종합병원", "종합병원", "의원"}, []string{"의원"})
	assert.Equal(t, all[:2], kept)
	require.Len(t, skipped, 2)
	assert.Equal(t, model.Skipped(all[2], SkipExcluded), skipped[0])
	assert.Equal(t, model.Skipped(all[3], SkipDuplicate), skipped[1])

	kept, skipped = Partition(all[:3], []string{"의원"}, nil)
	assert.Equal(t, all[2:3], kept)
	require.Len(t, skipped, 2)
	for _, o := range skipped {
		assert.Equal(t, model.OutcomeSkipped, o.Status)
		assert.Equal(t, SkipNotIncluded, o.Reason)
		assert.Zero(t, o.Attempts)
	}
}
