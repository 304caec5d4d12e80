package state_test

import (
	"errors"

	persist "github.com/goliatone/go-persist"
)

type item struct {
	Name  string
	Price float64
}

func newItem() *item { return &item{} }

func (i *item) TypeTag() string { return "Item" }

func (i *item) Fields() []persist.Field {
	return []persist.Field{
		persist.Attr("name", &i.Name),
		persist.Attr("price", &i.Price),
	}
}

type memberData struct {
	ID    string
	Level int
	XP    int
	Items []*item
}

func newMemberData(id string) *memberData { return &memberData{ID: id} }

func (m *memberData) TypeTag() string { return "MemberData" }

func (m *memberData) SchemaVersion() int { return 2 }

func (m *memberData) Fields() []persist.Field {
	return []persist.Field{
		persist.Attr("level", &m.Level),
		persist.Attr("xp", &m.XP),
		persist.ListOf("items", &m.Items, newItem),
		persist.Attr("_id", &m.ID),
	}
}

var errNegativeXP = errors.New("xp must not be negative")

func (m *memberData) Validate() error {
	if m.XP < 0 {
		return errNegativeXP
	}
	return nil
}

// memberMigrations upgrades version 1 documents, which stored experience
// under "exp".
var memberMigrations = persist.NewMigrations(
	persist.RenameStep(1, 2, map[string]string{"exp": "xp"}),
)

func memberCodec() *persist.Codec {
	return persist.NewCodec(persist.WithMigrator("MemberData", memberMigrations))
}
