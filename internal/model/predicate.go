package model

// Predicate selects raw task records. Zero-valued fields do not constrain.
// All set constraints are combined with AND.
type Predicate struct {
	UserID          uint
	AnchorDate      string // anchor_date = value
	AnchorDateAfter string // anchor_date > value
	Status          Status // status = value
	ExcludeStatus   Status // status != value
	Kind            Kind   // kind = value
	ExcludeKind     Kind   // kind != value
}

// Matches evaluates the predicate in memory. Dates use the fixed-width
// YYYY-MM-DD format, so string comparison orders them correctly.
func (p Predicate) Matches(t Task) bool {
	switch {
	case p.UserID != 0 && t.UserID != p.UserID:
		return false
	case p.AnchorDate != "" && t.AnchorDate != p.AnchorDate:
		return false
	case p.AnchorDateAfter != "" && t.AnchorDate <= p.AnchorDateAfter:
		return false
	case p.Status != "" && t.Status != p.Status:
		return false
	case p.ExcludeStatus != "" && t.Status == p.ExcludeStatus:
		return false
	case p.Kind != "" && t.Kind != p.Kind:
		return false
	case p.ExcludeKind != "" && t.Kind == p.ExcludeKind:
		return false
	}
	return true
}
