package form

import "github.com/stackpal/tessera/model"

// GroupSections distributes form fields into their declared sections,
// preserving both section order and field order within each section.
// Fields without a section tag fall into a trailing anonymous section.
// Declared sections that end up with no fields are dropped.
func GroupSections(sections []model.SectionDescriptor, fields []model.FormFieldDescriptor) []model.ResolvedSection {
	byKey := make(map[string]*model.ResolvedSection, len(sections))
	ordered := make([]*model.ResolvedSection, 0, len(sections)+1)
	for _, sd := range sections {
		rs := &model.ResolvedSection{SectionDescriptor: sd}
		byKey[sd.Key] = rs
		ordered = append(ordered, rs)
	}

	var anonymous *model.ResolvedSection
	for _, fd := range fields {
		if rs, ok := byKey[fd.Section]; ok && fd.Section != "" {
			rs.Fields = append(rs.Fields, fd)
			continue
		}
		if anonymous == nil {
			anonymous = &model.ResolvedSection{}
			ordered = append(ordered, anonymous)
		}
		anonymous.Fields = append(anonymous.Fields, fd)
	}

	out := make([]model.ResolvedSection, 0, len(ordered))
	for _, rs := range ordered {
		if len(rs.Fields) == 0 {
			continue
		}
		out = append(out, *rs)
	}
	return out
}
