// Package tasks runs the smart-split workflow against one user's catalog.
//
// # Operations
//
// [SplitEngine] exposes the read-only operations (list, detail, preview, filter) and the two mutating ones:
//
//  1. [SplitEngine.Apply] : one playlist per split instruction
//     - Instructions without tracks are dropped; an empty batch is rejected before any catalog call
//     - Instructions run sequentially and independently; nothing is rolled back
//
//  2. [SplitEngine.CreateFromGenres] : a single playlist from a genre selection
//     - Tracks are resolved, filtered and deduplicated
//     - A cover image is generated and uploaded when inference is configured. Cover failures never fail the operation
//
// # Progress Reporting
//
// Every operation accepts an optional channel of [ProgressUpdate]. Sends use select with default so a slow or absent
// reader never blocks the engine.
package tasks
