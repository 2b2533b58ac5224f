// Package split plans and applies genre splits of a playlist.
//
// Planning functions are pure: they take already resolved tracks and return plain values (groups, names,
// descriptions, instructions) that can be written straight into a response. [Apply] is the only function with side
// effects; it creates one playlist per instruction, sequentially, and reports each outcome independently.
//
// # Naming
//
//	SuggestSplitName("Focus Mix", "rock")                       // "Focus Mix • Rock"
//	SuggestMixName("Focus Mix", nil)                            // "Focus Mix"
//	SuggestMixName("Focus Mix", []string{"rock", "jazz"})       // "Focus Mix • Rock & Jazz"
//	SuggestMixName("Focus Mix", []string{"rock", "jazz", "pop"}) // "Focus Mix • Rock, Jazz & Pop"
//
// Four or more genres name the first two and end in "+ More".
package split
