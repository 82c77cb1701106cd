// Package pipeline runs the research -> write -> critique loop.
//
// Stages receive a State snapshot and return a Delta; the Orchestrator merges
// deltas (scalars overwrite, messages append) and asks Next for the following
// phase. The Critic increments RevisionCount on every pass and the revision
// cap forces acceptance on the third pass, so a run always terminates.
package pipeline
