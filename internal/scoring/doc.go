// Package scoring implements the interchangeable sentiment models and the
// batch scoring stage.
//
// Two model families exist: a deterministic lexicon scorer that never fails,
// and a transformer scorer backed by a remote inference service. The Runner
// orchestrates batches: already-scored (item, model) pairs are skipped,
// transformer failures fall back to the lexicon per item, and timeouts defer
// items to the next run instead of dropping them. Every stored score records
// the model that actually produced it.
package scoring
