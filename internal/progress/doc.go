// Package progress derives completion percentages from catalog state.
//
// Everything here is pure and synchronous: callers load a block or a
// formation for a learner (with CompletedLessons and quiz scores filled in)
// and ask for a number in [0,100]. Empty inputs yield 0, never an error.
//
// Skill scores outside [0,100] are clamped into range before averaging.
package progress
