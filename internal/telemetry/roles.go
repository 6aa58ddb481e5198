package telemetry

import "strings"

// Role classifies well-known channel meanings. Simulators and loggers vary
// the exact channel names (ACC exports "SPEED", others "Ground Speed"), so
// role lookup matches against a per-role alias list, case-insensitively.
type Role int

const (
	RoleTime Role = iota
	RoleDistance
	RoleSpeed
	RoleThrottle
	RoleBrake
	RoleSteering
	RoleLapBeacon
	RoleSectorBeacon
)

var roleAliases = map[Role][]string{
	RoleTime:      {"Time", "TIME"},
	RoleDistance:  {"Distance", "DIST", "LAP_DIST", "Lap Distance", "DISTANCE"},
	RoleSpeed:     {"SPEED", "Speed", "Ground Speed", "GPS Speed"},
	RoleThrottle:  {"THROTTLE", "Throttle", "Throttle Pos"},
	RoleBrake:     {"BRAKE", "Brake", "Brake Pos"},
	RoleSteering:  {"STEERANGLE", "Steering", "Steered Angle", "Steering Angle"},
	RoleLapBeacon:    {"LAP_BEACON", "Beacon", "Lap Beacon", "BEACON"},
	RoleSectorBeacon: {"SECTOR_BEACON", "Sector Beacon", "SPLIT_BEACON", "Split Beacon"},
}

func (r Role) String() string {
	switch r {
	case RoleTime:
		return "time"
	case RoleDistance:
		return "distance"
	case RoleSpeed:
		return "speed"
	case RoleThrottle:
		return "throttle"
	case RoleBrake:
		return "brake"
	case RoleSteering:
		return "steering"
	case RoleLapBeacon:
		return "beacon"
	case RoleSectorBeacon:
		return "sector beacon"
	}
	return "unknown"
}

// MatchRole classifies a bare channel name, case-insensitively.
func MatchRole(name string) (Role, bool) {
	for role := RoleTime; role <= RoleSectorBeacon; role++ {
		for _, alias := range roleAliases[role] {
			if strings.EqualFold(name, alias) {
				return role, true
			}
		}
	}
	return 0, false
}

// FindRole returns the session channel filling the given role. Exact-name
// matches win over case-insensitive ones so a file carrying both "SPEED" and
// "speedEst" resolves predictably.
func (s *Session) FindRole(role Role) (*Channel, bool) {
	aliases, ok := roleAliases[role]
	if !ok {
		return nil, false
	}
	for _, alias := range aliases {
		if c, ok := s.channels[alias]; ok {
			return c, true
		}
	}
	for _, alias := range aliases {
		for _, name := range s.order {
			if strings.EqualFold(name, alias) {
				return s.channels[name], true
			}
		}
	}
	return nil, false
}
