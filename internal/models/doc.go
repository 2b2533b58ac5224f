// Package models defines the plain data types exchanged by the splitx genre pipeline, split planner and HTTP API.
//
// The package contains three categories of types:
//
// 1. Catalog entities: metadata fetched from the streaming catalog
//   - [Track] : Immutable track identity with artist and album references
//   - [Artist] : Artist identity plus ordered genre tags
//   - [Playlist] : Playlist metadata with owner and images
//   - [User] : The authenticated catalog user
//
// 2. Resolution and planning values: produced fresh on every request and never persisted
//   - [EnrichedTrack] : A [Track] carrying its resolved genre and [GenreSource]
//   - [GenreSplit] : A genre-labeled group of tracks with a suggested playlist name
//   - [SplitInstruction] : The parameters needed to materialize one split as a playlist
//
// 3. Results: outcomes of mutating operations
//   - [AppliedSplit], [ApplyResult] : Per-instruction outcomes of applying a split
//   - [CreatedMix] : The playlist created from a genre selection
//
// Every type carries camelCase JSON tags so values can be written directly into HTTP responses.
package models
