// Package capability resolves a request's roles into the capability set
// used for authorization decisions.
package capability

import "github.com/stackpal/tessera/model"

// StaticResolver maps roles to capabilities from configuration. The
// mapping is fixed at construction; resolution is a pure merge of the
// capability lists of the subject's roles.
type StaticResolver struct {
	roles map[string][]string
}

// NewStaticResolver creates a resolver over the given role-to-capability
// mapping.
func NewStaticResolver(roles map[string][]string) *StaticResolver {
	return &StaticResolver{roles: roles}
}

// Resolve merges the capabilities of every role the request context
// carries. Unknown roles contribute nothing.
func (r *StaticResolver) Resolve(rctx *model.RequestContext) (model.CapabilitySet, error) {
	caps := model.CapabilitySet{}
	if rctx == nil {
		return caps, nil
	}
	for _, role := range rctx.Roles {
		for _, cap := range r.roles[role] {
			caps[cap] = true
		}
	}
	return caps, nil
}
