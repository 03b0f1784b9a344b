package peopleforce

import (
	"fmt"
	"strconv"
	"strings"
)

// flagAliases lists, per logical policy flag, the keys different PeopleForce
// deployments use for it. The first key present wins.
var flagAliases = map[string][]string{
	"requires_comment": {
		"description_required",
		"comment_required",
		"requires_comment",
		"reason_required",
		"requires_description",
	},
	"supports_on_demand": {
		"on_demand",
		"on_demand_enabled",
		"allow_on_demand",
		"supports_on_demand",
		"on_demand_allowed",
	},
}

// probeFlag resolves a logical flag against a raw leave type object. Keys are
// looked up at the top level first, then inside a nested "settings" or
// "policy" object.
func probeFlag(raw map[string]any, flag string) bool {
	scopes := []map[string]any{raw}
	for _, nested := range []string{"settings", "policy"} {
		if inner, ok := raw[nested].(map[string]any); ok {
			scopes = append(scopes, inner)
		}
	}

	for _, scope := range scopes {
		for _, key := range flagAliases[flag] {
			if value, ok := scope[key]; ok {
				return truthy(value)
			}
		}
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	}
	return false
}

func parseLeaveType(raw map[string]any) (LeaveType, error) {
	id, err := parseID(raw["id"])
	if err != nil {
		return LeaveType{}, err
	}

	leaveType := LeaveType{
		ID:               id,
		RequiresComment:  probeFlag(raw, "requires_comment"),
		SupportsOnDemand: probeFlag(raw, "supports_on_demand"),
	}
	for _, key := range []string{"name", "title"} {
		if name, ok := raw[key].(string); ok && name != "" {
			leaveType.Name = name
			break
		}
	}
	if description, ok := raw["description"].(string); ok {
		leaveType.Description = description
	}
	return leaveType, nil
}

func parseID(value any) (int64, error) {
	switch v := value.(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("peopleforce: unexpected id %v", value)
}
