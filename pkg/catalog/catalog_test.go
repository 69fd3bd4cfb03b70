package catalog_test

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/tendant/stay-concierge/pkg/catalog"
	"github.com/tendant/stay-concierge/pkg/domain"
)

func TestSections_Order(t *testing.T) {
	c := qt.New(t)

	var ids []domain.Section
	for _, s := range catalog.Sections() {
		ids = append(ids, s.ID)
	}
	c.Assert(ids, qt.DeepEquals, []domain.Section{
		domain.SectionCheckin,
		domain.SectionHelp,
		domain.SectionStores,
		domain.SectionRent,
		domain.SectionExperiences,
		domain.SectionCheckout,
	})
}

func TestSections_FixedKeysNeverUseCustomPrefix(t *testing.T) {
	c := qt.New(t)

	seen := map[string]domain.Section{}
	for _, s := range catalog.Sections() {
		c.Assert(s.Fields, qt.Not(qt.HasLen), 0, qt.Commentf("section %s", s.ID))
		for _, f := range s.Fields {
			c.Assert(strings.HasPrefix(f.Key, catalog.CustomKeyPrefix), qt.IsFalse)
			c.Assert(catalog.IsCustomKey(f.Key), qt.IsFalse)
			prev, dup := seen[f.Key]
			c.Assert(dup, qt.IsFalse, qt.Commentf("%s appears in %s and %s", f.Key, prev, s.ID))
			seen[f.Key] = s.ID
		}
	}
}

func TestSections_ReturnsCopy(t *testing.T) {
	c := qt.New(t)

	first := catalog.Sections()
	first[0].Fields[0].DisplayName = "mutated"

	again, ok := catalog.Lookup(domain.SectionCheckin)
	c.Assert(ok, qt.IsTrue)
	c.Assert(again.Fields[0].DisplayName, qt.Not(qt.Equals), "mutated")
}

func TestChildrenAndTopLevel(t *testing.T) {
	c := qt.New(t)

	c.Assert(catalog.Children(domain.SectionCheckin), qt.DeepEquals, []domain.Section{domain.SectionHelp, domain.SectionStores})
	c.Assert(catalog.Children(domain.SectionRent), qt.HasLen, 0)
	c.Assert(catalog.TopLevel(), qt.DeepEquals, []domain.Section{
		domain.SectionCheckin,
		domain.SectionRent,
		domain.SectionExperiences,
		domain.SectionCheckout,
	})
}

func TestFieldLookup(t *testing.T) {
	c := qt.New(t)

	f, ok := catalog.FieldOf(domain.SectionCheckin, "wifi")
	c.Assert(ok, qt.IsTrue)
	c.Assert(f.DisplayName, qt.Equals, "📶 Wi-Fi")
	c.Assert(catalog.Position(domain.SectionCheckin, "checkin_time"), qt.Equals, 0)

	_, ok = catalog.FieldOf(domain.SectionRent, "wifi")
	c.Assert(ok, qt.IsFalse)
	c.Assert(catalog.Position(domain.SectionRent, "wifi"), qt.Equals, -1)
	c.Assert(catalog.IsFixed(domain.SectionExperiences, "museums"), qt.IsTrue)
}

func TestNewCustomKey(t *testing.T) {
	c := qt.New(t)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key, err := catalog.NewCustomKey()
		c.Assert(err, qt.IsNil)
		c.Assert(catalog.IsCustomKey(key), qt.IsTrue)
		c.Assert(key, qt.HasLen, len(catalog.CustomKeyPrefix)+16)
		c.Assert(seen[key], qt.IsFalse)
		seen[key] = true
	}
	c.Assert(catalog.IsCustomKey(catalog.CustomKeyPrefix), qt.IsFalse)
}
