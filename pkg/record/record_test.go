package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDNamespacesNeverEqual(t *testing.T) {
	assert.True(t, Remote(42).Equal(Remote(42)))
	assert.True(t, Local("berita_1").Equal(Local("berita_1")))
	assert.False(t, Local("42").Equal(Remote(42)))
	assert.False(t, Remote(42).Equal(Local("42")))
	assert.NotEqual(t, Local("42").Key(), Remote(42).Key())
}

func TestParseID(t *testing.T) {
	assert.True(t, ParseID("17").IsRemote())
	assert.True(t, ParseID("umkm_1712_abc").IsLocal())
	assert.True(t, ParseID("+17").IsLocal())
	assert.True(t, ParseID("  ").IsZero())
}

func TestIDJSONKeepsWireShape(t *testing.T) {
	type wrap struct {
		ID ID `json:"id"`
	}
	b, err := json.Marshal(wrap{ID: Remote(7)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, string(b))

	b, err = json.Marshal(wrap{ID: Local("berita_1")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"berita_1"}`, string(b))

	var w wrap
	require.NoError(t, json.Unmarshal([]byte(`{"id":12}`), &w))
	assert.True(t, w.ID.Equal(Remote(12)))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"12"}`), &w))
	assert.True(t, w.ID.Equal(Local("12")))
}

func TestUpcomingIsComputedFromNow(t *testing.T) {
	now := time.Date(2024, 12, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, News{Tanggal: "2024-12-15"}.Upcoming(now))
	assert.False(t, News{Tanggal: "2024-12-01"}.Upcoming(now))
	assert.False(t, News{Tanggal: ""}.Upcoming(now))
}

func TestParagraphs(t *testing.T) {
	n := News{Konten: "Satu.\n\n  Dua.\nTiga."}
	assert.Equal(t, []string{"Satu.", "Dua.", "Tiga."}, n.Paragraphs())
}

func TestCategoryLookupFallsBack(t *testing.T) {
	assert.Equal(t, "Kesehatan", NewsCategoryLabel("kesehatan"))
	assert.Equal(t, "bg-red-600", NewsCategoryColor("kesehatan"))
	assert.Equal(t, "kuliner", BusinessCategoryLabel("kuliner"))
	assert.Equal(t, NeutralColor, BusinessCategoryColor("kuliner"))
	assert.True(t, IsBusinessCategory("teknologi"))
	assert.False(t, IsNewsCategory("teknologi"))
}

func TestBusinessPatchApply(t *testing.T) {
	name := "Kopi Desa"
	lo := int64(5000)
	b := BusinessPatch{NamaUsaha: &name, HargaMin: &lo}.Apply(Business{NamaUsaha: "lama", Alamat: "RT 01"})
	assert.Equal(t, "Kopi Desa", b.NamaUsaha)
	assert.Equal(t, "RT 01", b.Alamat)
	require.NotNil(t, b.HargaMin)
	assert.Equal(t, int64(5000), *b.HargaMin)
}
