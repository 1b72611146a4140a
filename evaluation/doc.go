// Package evaluation turns evaluator agent output into a numeric score.
//
// The evaluator-optimizer topology hands the evaluator's final text to a
// Scorer and compares the score against a target. Two scorers ship with the
// package: JSONScorer reads a numeric field from a JSON reply, and
// PatternScorer recognises plain-text forms such as "score: 0.8", "8/10" or
// "80%". Chain combines several scorers, trying each in order.
package evaluation
