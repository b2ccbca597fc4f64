// Package pipeline provides a framework for executing crawl stages in
// sequence.
//
// A crawl job runs through three stages: URL discovery, per-page SEO
// auditing, and report summarization. Each stage is implemented as a
// Step that receives the accumulated report and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function
// calls because:
// 1. It allows easy addition/removal of stages without modifying core logic
// 2. It provides consistent error handling and logging across stages
// 3. It supports cancellation via context for long-running crawls
//
// The pipeline supports both individual jobs and batch processing of
// multiple sites with concurrency control using errgroup.
package pipeline
