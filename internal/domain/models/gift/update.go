package gift

// Update is a project mutation: either a whole replacement value or a
// transform applied to the current project. The zero Update does nothing.
type Update struct {
	replace   *Project
	transform func(Project) Project
}

// Replace builds an Update that swaps in p wholesale
func Replace(p Project) Update {
	c := p.Clone()
	return Update{replace: &c}
}

// Transform builds an Update that derives the next project from the current one.
// fn receives a private copy and may modify it freely. It runs outside the
// store lock and may run more than once if the store changes meanwhile, so it
// must not have side effects of its own.
func Transform(fn func(Project) Project) Update {
	return Update{transform: fn}
}

// IsTransform reports whether the update depends on the current project
func (u Update) IsTransform() bool {
	return u.transform != nil
}

// Resolve produces the next project value. current is only consulted for
// transforms; ok is false when the update cannot be applied.
func (u Update) Resolve(current *Project) (next Project, ok bool) {
	switch {
	case u.replace != nil:
		return u.replace.Clone(), true
	case u.transform != nil:
		if current == nil {
			return Project{}, false
		}
		return u.transform(current.Clone()), true
	default:
		return Project{}, false
	}
}
