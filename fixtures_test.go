package persist

import (
	"errors"
	"fmt"
)

type testItem struct {
	Name  string
	Count int
}

func newTestItem() *testItem { return &testItem{} }

func (i *testItem) TypeTag() string { return "Item" }

func (i *testItem) Fields() []Field {
	return []Field{
		Attr("name", &i.Name),
		Attr("count", &i.Count),
	}
}

type testInventory struct {
	Items  []*testItem
	ByName map[string]*testItem
}

func (inv *testInventory) TypeTag() string { return "Inventory" }

func (inv *testInventory) Fields() []Field {
	return []Field{
		ListOf("items", &inv.Items, newTestItem),
		MapOf("by_name", &inv.ByName, newTestItem),
	}
}

type testMember struct {
	Name      string
	XP        int
	Tags      []string
	Extra     any
	Inventory testInventory

	cache string
}

func newTestMember() *testMember { return &testMember{} }

func (m *testMember) TypeTag() string { return "Member" }

func (m *testMember) SchemaVersion() int { return 2 }

func (m *testMember) Fields() []Field {
	return []Field{
		Attr("name", &m.Name),
		Attr("xp", &m.XP),
		Attr("tags", &m.Tags),
		Attr("extra", &m.Extra),
		Nested("inventory", &m.Inventory),
		Attr("_cache", &m.cache),
	}
}

var errNegativeXP = errors.New("xp must not be negative")

func (m *testMember) Validate() error {
	if m.XP < 0 {
		return errNegativeXP
	}
	return nil
}

type testProfile struct {
	Nick string
	ext  Extensions
}

func (p *testProfile) TypeTag() string { return "Profile" }

func (p *testProfile) Fields() []Field {
	return []Field{Attr("nick", &p.Nick)}
}

func (p *testProfile) Extensions() *Extensions { return &p.ext }

type testNode struct {
	Label string
	Child *testNode
}

func (n *testNode) TypeTag() string { return "Node" }

func (n *testNode) Fields() []Field {
	fields := []Field{Attr("label", &n.Label)}
	if n.Child != nil {
		fields = append(fields, Nested("child", n.Child))
	}
	return fields
}

type testAny struct {
	Value any
}

func (a *testAny) TypeTag() string { return "Any" }

func (a *testAny) Fields() []Field {
	return []Field{Attr("value", &a.Value)}
}

func sampleMember() *testMember {
	sword := &testItem{Name: "sword", Count: 1}
	return &testMember{
		Name:  "ann",
		XP:    100,
		Tags:  []string{"a", "b"},
		cache: "scratch",
		Inventory: testInventory{
			Items:  []*testItem{sword},
			ByName: map[string]*testItem{"sword": sword},
		},
	}
}

// testLegacyItem stored its name under "title" before version 2.
type testLegacyItem struct {
	Name string
}

var legacyItemMigrations = NewMigrations(RenameStep(1, 2, map[string]string{"title": "name"}))

func newTestLegacyItem() *testLegacyItem { return &testLegacyItem{} }

func (i *testLegacyItem) TypeTag() string { return "LegacyItem" }

func (i *testLegacyItem) SchemaVersion() int { return 2 }

func (i *testLegacyItem) ConvertVersion(doc Document) (Document, error) {
	return legacyItemMigrations.ConvertVersion(doc)
}

func (i *testLegacyItem) Fields() []Field {
	return []Field{Attr("name", &i.Name)}
}

type testShelf struct {
	Items []*testLegacyItem
	ByKey map[string]*testLegacyItem
	Main  testLegacyItem
}

func (s *testShelf) TypeTag() string { return "Shelf" }

func (s *testShelf) Fields() []Field {
	return []Field{
		ListOf("items", &s.Items, newTestLegacyItem),
		MapOf("by_key", &s.ByKey, newTestLegacyItem),
		Nested("main", &s.Main),
	}
}

type testLevelKey struct {
	Tier int
}

func (k testLevelKey) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("tier-%d", k.Tier)), nil
}

func (k *testLevelKey) UnmarshalText(text []byte) error {
	_, err := fmt.Sscanf(string(text), "tier-%d", &k.Tier)
	return err
}

type testLevels struct {
	ByLevel  map[int]string
	ByWeight map[float64]bool
	ByTier   map[testLevelKey]uint
}

func (l *testLevels) TypeTag() string { return "Levels" }

func (l *testLevels) Fields() []Field {
	return []Field{
		Attr("by_level", &l.ByLevel),
		Attr("by_weight", &l.ByWeight),
		Attr("by_tier", &l.ByTier),
	}
}
