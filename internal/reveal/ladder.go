package reveal

import id "veil/pkg/domain"

// phaseMinimums is the policy table mapping each execution phase to the
// minimum disclosure level it requires. The engine consults this before
// entering a phase; a phase transition can never silently under-disclose.
var phaseMinimums = map[id.Phase]id.DisclosureLevel{
	id.PhaseBriefing:   id.DisclosureNameOnly,
	id.PhaseContact:    id.DisclosureContact,
	id.PhaseRendezvous: id.DisclosureLocation,
	id.PhaseSettlement: id.DisclosureFinancial,
}

// MinimumLevelForPhase returns the disclosure floor for a phase. Unknown
// phases require nothing, which the engine rejects earlier via ParsePhase.
func MinimumLevelForPhase(phase id.Phase) id.DisclosureLevel {
	if level, ok := phaseMinimums[phase]; ok {
		return level
	}
	return id.DisclosureNone
}
