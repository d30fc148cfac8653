package toolruntime

import "strings"

// readOnlyPrefixes bypass the proposal path entirely, even if a tool of
// that name was also registered with Mutating: true — read-only framing
// in the name always wins (§4.5).
var readOnlyPrefixes = []string{"get_", "list_", "search_", "read_"}

// mutatingPrefixes are the name-shape half of the mutation classifier
// (§4.5: "its name begins with create_ | update_ | delete_ |
// set_ | sync_ | assign_ | remove_ | complete_").
var mutatingPrefixes = []string{"create_", "update_", "delete_", "set_", "sync_", "assign_", "remove_", "complete_"}

func isMutating(tool *Tool) bool {
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(tool.Name, p) {
			return false
		}
	}
	if tool.Mutating {
		return true
	}
	for _, p := range mutatingPrefixes {
		if strings.HasPrefix(tool.Name, p) {
			return true
		}
	}
	return false
}
