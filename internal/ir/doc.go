// Package ir defines the record types persisted in the traceability store
// and the deterministic identifier scheme shared by every pipeline phase.
//
// The entity hierarchy is a strict forest:
//
//	SystemRequirement 1→N HighLevelRequirement 1→N LowLevelRequirement
//	HighLevelRequirement 1→N TestCase
//	HighLevelRequirement 0→N ArchitectureDecision
//
// Phases hold no private state: everything a phase produces is one of these
// records, which is what makes the pipeline resumable across sessions.
package ir
