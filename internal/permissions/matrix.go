// Package permissions derives the admin console's module/action capability
// matrix from a role's flat list of permission codes.
package permissions

// moduleTable maps every admin console module to its actions and the
// permission code that grants each one. The table is the authoritative key
// space: a built matrix always covers every pair defined here.
var moduleTable = map[string]map[string]string{
	"Bookings": {
		"read":   "booking.view",
		"create": "booking.add",
		"update": "booking.edit",
		"delete": "booking.remove",
	},
	"Users": {
		"read":   "user.view",
		"create": "user.add",
		"update": "user.edit",
		"delete": "user.remove",
	},
	"Taaskrs": {
		"read":   "taaskr.view",
		"create": "taaskr.add",
		"update": "taaskr.edit",
		"delete": "taaskr.remove",
	},
	"Services": {
		"read":   "service.view",
		"create": "service.add",
		"update": "service.edit",
		"delete": "service.remove",
	},
	"Payments": {
		"read":   "payment.view",
		"create": "payment.add",
		"update": "payment.edit",
		"delete": "payment.remove",
	},
	"Settings": {
		"read":   "setting.view",
		"create": "setting.add",
		"update": "setting.edit",
		"delete": "setting.remove",
	},
}

// Matrix is the denormalized module -> action -> granted mapping.
type Matrix map[string]map[string]bool

// Allowed reports whether the action on the module is granted. Unknown
// pairs are never granted.
func (m Matrix) Allowed(module, action string) bool {
	return m[module][action]
}

// BuildMatrix computes the capability matrix from the role's permission
// codes. The result is total over the static table: every defined
// (module, action) pair appears, defaulting to false.
func BuildMatrix(codes []string) Matrix {
	granted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		granted[code] = struct{}{}
	}

	matrix := make(Matrix, len(moduleTable))
	for module, actions := range moduleTable {
		row := make(map[string]bool, len(actions))
		for action, code := range actions {
			_, ok := granted[code]
			row[action] = ok
		}
		matrix[module] = row
	}
	return matrix
}

// Modules lists the module names defined by the static table.
func Modules() []string {
	names := make([]string, 0, len(moduleTable))
	for module := range moduleTable {
		names = append(names, module)
	}
	return names
}
