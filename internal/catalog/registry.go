package catalog

// Meta is the type-independent description of a resource, used for
// navigation and route lookups.
type Meta struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Singular  string `json:"singular"`
	Public    bool   `json:"public"`
	Moderated bool   `json:"moderated"`
}

// Meta describes d.
func (d *Definition[T]) Meta() Meta {
	return Meta{
		Name:      d.Name,
		Title:     d.Title,
		Singular:  d.Singular,
		Public:    d.Public,
		Moderated: d.Moderated(),
	}
}

// All lists the managed resources in menu order.
func All() []Meta {
	return []Meta{
		PressPacks.Meta(),
		Websites.Meta(),
		PowerlistNominations.Meta(),
		RealEstateProfessionals.Meta(),
		PaparazziCreations.Meta(),
		Users.Meta(),
	}
}

// Lookup finds a resource by name.
func Lookup(name string) (Meta, bool) {
	for _, m := range All() {
		if m.Name == name {
			return m, true
		}
	}
	return Meta{}, false
}
