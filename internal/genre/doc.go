// Package genre canonicalizes genre strings and resolves one genre per track.
//
// # Normalization
//
// [Normalize] trims, rejects placeholder tokens ("unknown", "n/a", "misc", ...) and Title-Cases each word.
// [Ensure] substitutes [DefaultGenre] for absent values so every resolved track carries a genre. [Key] is the
// lower-cased form used only for comparisons.
//
// # Resolution
//
// [Resolver] runs a strict fallback cascade. Each stage only sees what the previous one left unresolved:
//
//  1. Catalog: first tag of the first artist with tags, looked up in deduplicated batches of [ArtistBatchSize]
//  2. Batch inference: one [Inferer.InferGenres] call for every remaining track
//  3. Retry: sequential [Inferer.InferGenre] per remaining track
//  4. Default: [DefaultGenre] with source fallback
//
// Inference failures never propagate; a failed artist lookup does.
package genre
